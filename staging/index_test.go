// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staging

import (
	"context"
	"testing"
	"time"

	"github.com/wuwei-labs/antegen-sub001/cache"
	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/loadbalancer"
	"github.com/wuwei-labs/antegen-sub001/submit"
)

type noopFetcher struct{}

func (noopFetcher) FetchAccount(context.Context, chain.Address) (chain.CachedAccount, error) {
	return chain.CachedAccount{}, chain.ErrAccountNotFound
}

type noopSubmitter struct{}

func (noopSubmitter) SubmitAndConfirm(context.Context, submit.BuildInput) (submit.Result, error) {
	return submit.Result{Status: submit.StatusConfirmed}, nil
}

func fixedAddr(b byte) chain.Address {
	var p chain.Pubkey
	p[0] = b
	return p.Address()
}

func newTestIndex() *Index {
	deps := Deps{
		Cache:       cache.New(cache.Config{MaxCapacity: 128, AccountTTL: time.Minute}, noopFetcher{}),
		Balancer:    loadbalancer.New(chain.Pubkey{1}, loadbalancer.DefaultConfig()),
		Submitter:   noopSubmitter{},
		ConfigStore: chain.NewConfigStore(),
	}
	cfg := DefaultConfig()
	cfg.ProgramID = fixedAddr(42)
	return New(cfg, deps)
}

func TestDispatchSpawnsActorForNewThread(t *testing.T) {
	idx := newTestIndex()
	addr := fixedAddr(1)
	thread := chain.Thread{
		Address:      addr,
		Trigger:      chain.Trigger{Kind: chain.TriggerNow},
		Schedule:     chain.Schedule{Kind: chain.ScheduleTimed},
		DefaultFiber: &chain.Fiber{ProgramID: fixedAddr(2)},
	}
	data := chain.EncodeThread(thread)

	idx.Dispatch(context.Background(), chain.AccountUpdate{
		Address: addr, Owner: idx.cfg.ProgramID, Data: data, Slot: 1,
	})

	if idx.ActorCount() != 1 {
		t.Fatalf("expected 1 actor spawned, got %d", idx.ActorCount())
	}

	// A second observation of the same address must forward, not respawn.
	idx.Dispatch(context.Background(), chain.AccountUpdate{
		Address: addr, Owner: idx.cfg.ProgramID, Data: data, Slot: 2,
	})
	if idx.ActorCount() != 1 {
		t.Fatalf("expected still 1 actor after re-observation, got %d", idx.ActorCount())
	}
}

func TestDispatchClockUpdatesLastClock(t *testing.T) {
	idx := newTestIndex()
	clock := chain.Clock{Slot: 10, Epoch: 1, Timestamp: 1000}
	data := make([]byte, 40)
	// Encode minimal clock layout matching chain.DecodeClock's expectations.
	putLE64(data[0:8], clock.Slot)
	putLE64(data[16:24], clock.Epoch)
	putLE64(data[32:40], uint64(clock.Timestamp))

	idx.Dispatch(context.Background(), chain.AccountUpdate{
		Address: chain.ClockSysvarAddress, Data: data, Slot: 10,
	})

	if idx.lastClock != clock {
		t.Fatalf("expected lastClock to be updated, got %+v", idx.lastClock)
	}
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestDispatchOtherAccountGoesToCache(t *testing.T) {
	idx := newTestIndex()
	addr := fixedAddr(99)
	idx.Dispatch(context.Background(), chain.AccountUpdate{Address: addr, Data: []byte{1, 2, 3}, Slot: 5})

	cached, ok := idx.deps.Cache.Get(addr)
	if !ok {
		t.Fatalf("expected account to be cached")
	}
	if cached.Slot != 5 {
		t.Fatalf("expected slot 5, got %d", cached.Slot)
	}
}

func TestWakeQueueUpsertSupersedesStaleEntry(t *testing.T) {
	q := newWakeQueue()
	thread := fixedAddr(1)
	q.Upsert(thread, 100)
	q.Upsert(thread, 50)

	ready := q.PopReady(60)
	if len(ready) != 1 || ready[0] != thread {
		t.Fatalf("expected thread ready at 60 with latest value 50, got %v", ready)
	}
}

func TestWakeQueueCancelRemovesEntry(t *testing.T) {
	q := newWakeQueue()
	thread := fixedAddr(1)
	q.Upsert(thread, 10)
	q.Cancel(thread)

	ready := q.PopReady(100)
	if len(ready) != 0 {
		t.Fatalf("expected no ready entries after cancel, got %v", ready)
	}
}

func TestRegisterAndUnregisterWatch(t *testing.T) {
	idx := newTestIndex()
	thread := fixedAddr(1)
	watched := fixedAddr(2)

	idx.RegisterWatch(thread, watched)
	if _, ok := idx.watchedBy[watched][thread]; !ok {
		t.Fatalf("expected watch registered")
	}

	idx.UnregisterWatch(thread, watched)
	if _, ok := idx.watchedBy[watched]; ok {
		t.Fatalf("expected watch set removed once empty")
	}
}
