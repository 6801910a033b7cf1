// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/loadbalancer"
	"github.com/wuwei-labs/antegen-sub001/submit"
)

type fakeCache struct {
	data map[chain.Address]chain.CachedAccount
}

func (f *fakeCache) Get(address chain.Address) (chain.CachedAccount, bool) {
	v, ok := f.data[address]
	return v, ok
}

func (f *fakeCache) GetOrFetch(_ context.Context, address chain.Address) (chain.CachedAccount, error) {
	v, ok := f.data[address]
	if !ok {
		return chain.CachedAccount{}, chain.ErrAccountNotFound
	}
	return v, nil
}

type fakeBalancer struct {
	decision loadbalancer.Decision
	results  []bool
}

func (f *fakeBalancer) ShouldProcess(chain.Address, chain.Pubkey, int64) loadbalancer.Decision {
	return f.decision
}

func (f *fakeBalancer) RecordExecutionResult(_ chain.Address, success bool, _ int64) {
	f.results = append(f.results, success)
}

type fakeSubmitter struct {
	result submit.Result
	err    error
	calls  int
}

func (f *fakeSubmitter) SubmitAndConfirm(context.Context, submit.BuildInput) (submit.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeRegistrar struct {
	watches map[chain.Address]chain.Address
	wakes   map[chain.Address]WakeKind
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{watches: map[chain.Address]chain.Address{}, wakes: map[chain.Address]WakeKind{}}
}

func (r *fakeRegistrar) RegisterWatch(thread, watched chain.Address)   { r.watches[thread] = watched }
func (r *fakeRegistrar) UnregisterWatch(thread, _ chain.Address)       { delete(r.watches, thread) }
func (r *fakeRegistrar) ScheduleWake(thread chain.Address, kind WakeKind, _ int64) {
	r.wakes[thread] = kind
}
func (r *fakeRegistrar) CancelWake(thread chain.Address, _ WakeKind) { delete(r.wakes, thread) }

func testThread(addr chain.Address) *chain.Thread {
	return &chain.Thread{
		Address: addr,
		Trigger: chain.Trigger{Kind: chain.TriggerNow},
		DefaultFiber: &chain.Fiber{
			ProgramID: chain.Address(fixedPubkeyB58),
			Accounts:  nil,
			Data:      []byte{1, 2, 3},
		},
	}
}

// fixedPubkeyB58 is a valid base58-encoded 32-byte all-zero pubkey,
// sufficient to exercise account-meta construction without a real key.
const fixedPubkeyB58 = "11111111111111111111111111111111"

func newTestActor(t *testing.T, balancer *fakeBalancer, submitter *fakeSubmitter) (*Actor, *fakeRegistrar) {
	t.Helper()
	store := chain.NewConfigStore()
	store.Set(chain.ThreadConfig{Admin: chain.Address(fixedPubkeyB58)})
	reg := newFakeRegistrar()
	cfg := DefaultConfig()
	cfg.Admin = chain.Address(fixedPubkeyB58)
	thread := testThread(chain.Pubkey{1}.Address())
	a := NewActor(thread, cfg, Deps{
		Balancer:    balancer,
		Cache:       &fakeCache{data: map[chain.Address]chain.CachedAccount{}},
		Submitter:   submitter,
		ConfigStore: store,
		Registrar:   reg,
	})
	return a, reg
}

func TestActorSkipsWhenPaused(t *testing.T) {
	balancer := &fakeBalancer{decision: loadbalancer.Process}
	submitter := &fakeSubmitter{result: submit.Result{Status: submit.StatusConfirmed}}
	a, _ := newTestActor(t, balancer, submitter)
	a.thread.Paused = true

	a.evaluate(context.Background(), nil)

	if submitter.calls != 0 {
		t.Fatalf("expected no submission attempt while paused, got %d calls", submitter.calls)
	}
}

func TestActorSkipsWhenBalancerSaysSkip(t *testing.T) {
	balancer := &fakeBalancer{decision: loadbalancer.Skip}
	submitter := &fakeSubmitter{result: submit.Result{Status: submit.StatusConfirmed}}
	a, _ := newTestActor(t, balancer, submitter)

	a.evaluate(context.Background(), nil)

	if submitter.calls != 0 {
		t.Fatalf("expected no submission attempt when balancer says skip, got %d calls", submitter.calls)
	}
}

func TestActorSubmitsWhenReadyAndProcessAllowed(t *testing.T) {
	balancer := &fakeBalancer{decision: loadbalancer.Process}
	submitter := &fakeSubmitter{result: submit.Result{Status: submit.StatusConfirmed}}
	a, _ := newTestActor(t, balancer, submitter)

	a.evaluate(context.Background(), nil)

	if submitter.calls != 1 {
		t.Fatalf("expected exactly one submission attempt, got %d", submitter.calls)
	}
	if len(balancer.results) != 1 || !balancer.results[0] {
		t.Fatalf("expected a single successful RecordExecutionResult call, got %v", balancer.results)
	}
}

func TestActorSchedulesRetryOnExpired(t *testing.T) {
	balancer := &fakeBalancer{decision: loadbalancer.Process}
	submitter := &fakeSubmitter{result: submit.Result{Status: submit.StatusExpired}}
	a, _ := newTestActor(t, balancer, submitter)
	a.cfg.RetryInitialBackoff = time.Millisecond
	a.cfg.RetryMaxBackoff = 5 * time.Millisecond

	a.evaluate(context.Background(), nil)

	if a.retryBackoff != a.cfg.RetryInitialBackoff {
		t.Fatalf("expected retryBackoff to be set to initial backoff, got %v", a.retryBackoff)
	}
}

func TestActorDoesNotRetryDeterministicRejection(t *testing.T) {
	balancer := &fakeBalancer{decision: loadbalancer.Process}
	submitter := &fakeSubmitter{result: submit.Result{Status: submit.StatusFailed, Err: "ThreadPaused"}}
	a, _ := newTestActor(t, balancer, submitter)

	a.evaluate(context.Background(), nil)

	if a.retryBackoff != 0 {
		t.Fatalf("expected no retry scheduled for a deterministic on-chain rejection, got backoff %v", a.retryBackoff)
	}
	if len(balancer.results) != 1 || balancer.results[0] {
		t.Fatalf("expected a single failed RecordExecutionResult call, got %v", balancer.results)
	}
}

func TestActorRegistersAccountWatch(t *testing.T) {
	balancer := &fakeBalancer{decision: loadbalancer.Process}
	submitter := &fakeSubmitter{result: submit.Result{Status: submit.StatusConfirmed}}
	a, reg := newTestActor(t, balancer, submitter)
	a.thread.Trigger = chain.Trigger{Kind: chain.TriggerAccount, WatchAddress: "watched-1"}

	a.syncWatch()

	if reg.watches[a.address] != "watched-1" {
		t.Fatalf("expected watch registered for watched-1, got %v", reg.watches)
	}
}
