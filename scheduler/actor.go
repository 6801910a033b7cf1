// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/loadbalancer"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/submit"
)

// Actor is the per-thread scheduler actor (spec §4.F). Every input is
// processed on a single goroutine pulled serially off Actor's mailbox, so
// a submission in flight is never overlapped by a concurrent evaluation
// of the same thread (spec §8 "Per-actor mutual exclusion").
type Actor struct {
	address chain.Address
	cfg     Config

	balancer  Balancer
	cache     AccountCache
	submitter Submitter
	cfgStore  *chain.ConfigStore
	registrar Registrar

	mailbox chan Event
	stop    chan struct{}
	done    chan struct{}

	// state below is owned exclusively by the actor's own goroutine; no
	// lock is needed (spec §3 "Ownership").
	thread        *chain.Thread
	watched       chain.Address // currently registered Trigger::Account watch, "" if none
	readySince    time.Time
	lastEvalClock chain.Clock
	retryBackoff  time.Duration
}

// Deps bundles the shared, lifetime-owned-by-the-supervisor collaborators
// every actor needs (spec §3 "All components share the RPC pool and TPU
// client by lifetime-aligned handles").
type Deps struct {
	Balancer    Balancer
	Cache       AccountCache
	Submitter   Submitter
	ConfigStore *chain.ConfigStore
	Registrar   Registrar
}

// NewActor constructs an actor for thread, reconstructing its scheduling
// state purely from the cached thread record (spec §4.E "Actor state is
// reconstructed from the cached thread record on spawn — no persistent
// state"). Call Start to begin processing.
func NewActor(thread *chain.Thread, cfg Config, deps Deps) *Actor {
	mailboxSize := cfg.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = 32
	}
	return &Actor{
		address:   thread.Address,
		cfg:       cfg,
		balancer:  deps.Balancer,
		cache:     deps.Cache,
		submitter: deps.Submitter,
		cfgStore:  deps.ConfigStore,
		registrar: deps.Registrar,
		mailbox:   make(chan Event, mailboxSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		thread:    thread,
	}
}

// Start launches the actor's mailbox-processing goroutine and registers
// its initial watch/wake state from the seed snapshot.
func (a *Actor) Start(ctx context.Context) {
	a.syncWatch()
	a.syncWake(evaluateTrigger(a.thread, a.lastEvalClock, nil))
	go a.run(ctx)
}

// Send delivers ev to the actor's mailbox, blocking until accepted (or
// the actor stops) so that arrival order is preserved exactly (spec §5
// "Ordering guarantees").
func (a *Actor) Send(ev Event) {
	select {
	case a.mailbox <- ev:
	case <-a.stop:
	}
}

// Stop requests shutdown and waits up to deadline for the actor's
// goroutine to exit, honoring an in-flight submission (spec §4.I "lets
// in-flight submissions complete up to a deadline").
func (a *Actor) Stop(deadline time.Duration) {
	select {
	case a.mailbox <- Shutdown{}:
	default:
	}
	close(a.stop)
	select {
	case <-a.done:
	case <-time.After(deadline):
		log.Warn("scheduler: actor did not stop within deadline", "thread", a.address)
	}
}

func (a *Actor) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.mailbox:
			if _, isShutdown := ev.(Shutdown); isShutdown {
				return
			}
			a.handle(ctx, ev)
		}
	}
}

func (a *Actor) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case ClockTick:
		a.lastEvalClock = e.Clock
		a.evaluate(ctx, nil)
	case ThreadChanged:
		a.thread = e.Thread
		a.syncWatch()
		a.evaluate(ctx, nil)
	case WatchedAccountChanged:
		a.evaluate(ctx, &e.Address)
	case retryTimer:
		a.evaluate(ctx, nil)
	}
}

// syncWatch registers/unregisters this actor's Trigger::Account watch
// with the staging index whenever the watched address changes.
func (a *Actor) syncWatch() {
	var want chain.Address
	if a.thread.Trigger.Kind == chain.TriggerAccount {
		want = a.thread.Trigger.WatchAddress
	}
	if want == a.watched {
		return
	}
	if a.watched != "" {
		a.registrar.UnregisterWatch(a.address, a.watched)
	}
	if want != "" {
		a.registrar.RegisterWatch(a.address, want)
	}
	a.watched = want
}

// syncWake tells the staging index when this thread should next be woken
// for a time/slot/epoch-based trigger (spec §4.E ordered structures).
func (a *Actor) syncWake(r readiness) {
	var kind WakeKind
	switch a.thread.Trigger.Kind {
	case chain.TriggerCron, chain.TriggerInterval, chain.TriggerTimestamp:
		kind = WakeTime
	case chain.TriggerSlot:
		kind = WakeSlot
	case chain.TriggerEpoch:
		kind = WakeEpoch
	default:
		return
	}
	if r.Ready {
		a.registrar.CancelWake(a.address, kind)
		return
	}
	a.registrar.ScheduleWake(a.address, kind, r.Next)
}

// evaluate runs the full algorithm from spec §4.F on every input.
// changedWatch, if non-nil, is the watched address that just changed
// (used to avoid re-fetching every watched address on unrelated inputs).
func (a *Actor) evaluate(ctx context.Context, changedWatch *chain.Address) {
	thread := a.thread
	cfg := a.cfgStore.Get()

	// Step 1.
	if thread.Paused || cfg.Paused {
		return
	}

	// Step 2.
	var watchedData []byte
	if thread.Trigger.Kind == chain.TriggerAccount {
		if changedWatch != nil && *changedWatch != thread.Trigger.WatchAddress {
			return
		}
		if cached, ok := a.cache.Get(thread.Trigger.WatchAddress); ok {
			watchedData = cached.Data
		}
	}
	r := evaluateTrigger(thread, a.lastEvalClock, watchedData)
	a.syncWake(r)
	if !r.Ready {
		a.readySince = time.Time{}
		return
	}
	if a.readySince.IsZero() {
		a.readySince = time.Now()
	}
	timeSinceReady := int64(time.Since(a.readySince).Seconds())

	// Step 3.
	switch a.balancer.ShouldProcess(a.address, thread.LastExecutor, timeSinceReady) {
	case loadbalancer.Skip, loadbalancer.AtCapacity:
		// At_capacity's own "critically overdue" override is already
		// folded into ShouldProcess's verdict, so any non-Process
		// result here means "do not attempt right now."
		return
	}

	// Steps 4-6.
	fiber, fiberAccount, err := a.resolveFiber(ctx, thread)
	if err != nil {
		log.Warn("scheduler: failed to resolve fiber", "thread", a.address, "err", err)
		return
	}

	ix, err := a.buildThreadExec(thread, fiber, fiberAccount)
	if err != nil {
		log.Warn("scheduler: failed to build thread_exec", "thread", a.address, "err", err)
		return
	}

	result, err := a.submitter.SubmitAndConfirm(ctx, submit.BuildInput{
		Instructions:             []solana.Instruction{ix},
		PriorityFeeMicroLamports: fiber.PriorityFee,
		NonceAccount:             thread.NonceAccount,
		TargetLevel:              a.cfg.TargetCommitment,
	})
	a.handleSubmitResult(ctx, result, err)
}

func (a *Actor) handleSubmitResult(ctx context.Context, result submit.Result, err error) {
	now := time.Now().Unix()
	if err != nil {
		log.Warn("scheduler: submission error", "thread", a.address, "err", err)
		a.scheduleRetry(ctx)
		return
	}

	switch result.Status {
	case submit.StatusConfirmed, submit.StatusAlreadyProcessed:
		a.balancer.RecordExecutionResult(a.address, true, now)
		a.retryBackoff = 0
		a.readySince = time.Time{}
	case submit.StatusExpired:
		a.scheduleRetry(ctx)
	case submit.StatusFailed:
		if isDeterministicOnChainError(result.Err) {
			log.Debug("scheduler: deterministic on-chain rejection, waiting for external change", "thread", a.address, "err", result.Err)
			a.balancer.RecordExecutionResult(a.address, false, now)
			a.retryBackoff = 0
			return
		}
		a.balancer.RecordExecutionResult(a.address, false, now)
		a.scheduleRetry(ctx)
	}
}

// isDeterministicOnChainError classifies spec §7 class 5 program errors
// that will fail identically on retry until some external account
// changes, and so must not be retried at the same trigger context.
func isDeterministicOnChainError(msg string) bool {
	m := strings.ToLower(msg)
	for _, s := range []string{"triggernotready", "threadpaused", "fiberaccountrequired", "wrongfiberindex"} {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

// scheduleRetry reschedules this thread's next evaluation after an
// exponential backoff bounded by cfg.RetryMaxBackoff (spec §4.F "Retry
// policy").
func (a *Actor) scheduleRetry(ctx context.Context) {
	if a.retryBackoff <= 0 {
		a.retryBackoff = a.cfg.RetryInitialBackoff
	} else {
		a.retryBackoff *= 2
	}
	if a.retryBackoff > a.cfg.RetryMaxBackoff {
		a.retryBackoff = a.cfg.RetryMaxBackoff
	}
	backoff := a.retryBackoff
	time.AfterFunc(backoff, func() {
		select {
		case <-a.stop:
		case <-ctx.Done():
		default:
			a.Send(retryTimer{})
		}
	})
}
