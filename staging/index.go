// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staging

import (
	"context"
	"sync"

	"github.com/wuwei-labs/antegen-sub001/cache"
	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/scheduler"
)

// Deps bundles the process-lifetime singletons every spawned actor
// shares (spec §3 "All components share the RPC pool and TPU client by
// lifetime-aligned handles").
type Deps struct {
	Cache       *cache.Cache
	Balancer    scheduler.Balancer
	Submitter   scheduler.Submitter
	ConfigStore *chain.ConfigStore
}

// Index is the staging index and actor router (spec §4.E). It is the
// only component holding scheduler.Actor handles.
type Index struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	actors    map[chain.Address]*scheduler.Actor
	watchedBy map[chain.Address]map[chain.Address]struct{} // watched -> set of threads
	wakeTime  *wakeQueue
	wakeSlot  *wakeQueue
	wakeEpoch *wakeQueue
	lastClock chain.Clock

	runCtx context.Context
}

// New constructs an Index. Call Run to begin consuming account updates.
func New(cfg Config, deps Deps) *Index {
	return &Index{
		cfg:       cfg,
		deps:      deps,
		actors:    make(map[chain.Address]*scheduler.Actor),
		watchedBy: make(map[chain.Address]map[chain.Address]struct{}),
		wakeTime:  newWakeQueue(),
		wakeSlot:  newWakeQueue(),
		wakeEpoch: newWakeQueue(),
	}
}

// Run consumes chain.AccountUpdate values from in until ctx is canceled or
// in is closed, dispatching each per spec §4.E. It blocks until done.
func (idx *Index) Run(ctx context.Context, in <-chan chain.AccountUpdate) {
	idx.runCtx = ctx
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-in:
			if !ok {
				return
			}
			idx.Dispatch(ctx, update)
		}
	}
}

// Dispatch routes one account update per spec §4.E's dispatch rules.
func (idx *Index) Dispatch(ctx context.Context, update chain.AccountUpdate) {
	if update.Address == chain.ClockSysvarAddress {
		idx.dispatchClock(ctx, update)
		return
	}

	if update.Owner == idx.cfg.ProgramID && chain.IsThreadConfigAccount(update.Data) {
		cfg, err := chain.DecodeThreadConfig(update.Data)
		if err != nil {
			log.Warn("staging: failed to decode thread config", "address", update.Address, "err", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			log.Warn("staging: rejecting invalid thread config", "address", update.Address, "err", err)
			return
		}
		idx.deps.ConfigStore.Set(*cfg)
		return
	}

	if update.Owner == idx.cfg.ProgramID && chain.IsThreadAccount(update.Data) {
		idx.dispatchThread(ctx, update)
		return
	}

	idx.mu.Lock()
	watchers := idx.watchedBy[update.Address]
	var targets []*scheduler.Actor
	for thread := range watchers {
		if a, ok := idx.actors[thread]; ok {
			targets = append(targets, a)
		}
	}
	idx.mu.Unlock()

	idx.deps.Cache.PutIfNewer(update.Address, chain.CachedAccount{
		Data: update.Data, Slot: update.Slot, Owner: update.Owner,
	})

	for _, a := range targets {
		a.Send(scheduler.WatchedAccountChanged{Address: update.Address})
	}
}

func (idx *Index) dispatchClock(ctx context.Context, update chain.AccountUpdate) {
	clock, err := chain.DecodeClock(update.Data)
	if err != nil {
		log.Warn("staging: failed to decode clock sysvar", "err", err)
		return
	}
	idx.deps.Cache.PutIfNewer(update.Address, chain.CachedAccount{Data: update.Data, Slot: update.Slot, Owner: update.Owner})

	idx.mu.Lock()
	idx.lastClock = clock
	timeReady := idx.wakeTime.PopReady(clock.Timestamp)
	slotReady := idx.wakeSlot.PopReady(int64(clock.Slot))
	epochReady := idx.wakeEpoch.PopReady(int64(clock.Epoch))
	var targets []*scheduler.Actor
	for _, addr := range append(append(timeReady, slotReady...), epochReady...) {
		if a, ok := idx.actors[addr]; ok {
			targets = append(targets, a)
		}
	}
	idx.mu.Unlock()

	for _, a := range targets {
		a.Send(scheduler.ClockTick{Clock: clock})
	}
}

func (idx *Index) dispatchThread(ctx context.Context, update chain.AccountUpdate) {
	thread, err := chain.DecodeThread(update.Address, update.Data)
	if err != nil {
		log.Warn("staging: failed to decode thread account", "address", update.Address, "err", err)
		return
	}
	idx.deps.Cache.PutIfNewer(update.Address, chain.CachedAccount{Data: update.Data, Slot: update.Slot, Owner: update.Owner})

	idx.mu.Lock()
	a, existing := idx.actors[thread.Address]
	if !existing {
		a = scheduler.NewActor(thread, idx.cfg.ActorConfig, scheduler.Deps{
			Balancer:    idx.deps.Balancer,
			Cache:       idx.deps.Cache,
			Submitter:   idx.deps.Submitter,
			ConfigStore: idx.deps.ConfigStore,
			Registrar:   idx,
		})
		idx.actors[thread.Address] = a
	}
	idx.mu.Unlock()

	if !existing {
		log.Info("staging: spawning actor for new thread", "thread", thread.Address)
		a.Start(ctx)
		return
	}
	a.Send(scheduler.ThreadChanged{Thread: thread})
}

// Evict stops and forgets the actor for thread, e.g. on cache eviction of
// the thread account signaling on-chain deletion (spec §4.E "stopped
// when the thread account is evicted/deleted").
func (idx *Index) Evict(thread chain.Address) {
	idx.mu.Lock()
	a, ok := idx.actors[thread]
	delete(idx.actors, thread)
	idx.wakeTime.Cancel(thread)
	idx.wakeSlot.Cancel(thread)
	idx.wakeEpoch.Cancel(thread)
	for watched, set := range idx.watchedBy {
		delete(set, thread)
		if len(set) == 0 {
			delete(idx.watchedBy, watched)
		}
	}
	idx.mu.Unlock()
	if ok {
		a.Stop(idx.cfg.ActorStopDeadline)
	}
}

// Stop stops every live actor, waiting up to ActorStopDeadline each (spec
// §4.I "drains the staging index").
func (idx *Index) Stop() {
	idx.mu.Lock()
	actors := make([]*scheduler.Actor, 0, len(idx.actors))
	for _, a := range idx.actors {
		actors = append(actors, a)
	}
	idx.mu.Unlock()

	var wg sync.WaitGroup
	for _, a := range actors {
		wg.Add(1)
		go func(a *scheduler.Actor) {
			defer wg.Done()
			a.Stop(idx.cfg.ActorStopDeadline)
		}(a)
	}
	wg.Wait()
}

// ActorCount reports the number of currently tracked actors, for metrics.
func (idx *Index) ActorCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.actors)
}

// --- scheduler.Registrar ---

func (idx *Index) RegisterWatch(thread, watched chain.Address) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	set, ok := idx.watchedBy[watched]
	if !ok {
		set = make(map[chain.Address]struct{})
		idx.watchedBy[watched] = set
	}
	set[thread] = struct{}{}
}

func (idx *Index) UnregisterWatch(thread, watched chain.Address) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	set, ok := idx.watchedBy[watched]
	if !ok {
		return
	}
	delete(set, thread)
	if len(set) == 0 {
		delete(idx.watchedBy, watched)
	}
}

func (idx *Index) ScheduleWake(thread chain.Address, kind scheduler.WakeKind, value int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.queueFor(kind).Upsert(thread, value)
}

func (idx *Index) CancelWake(thread chain.Address, kind scheduler.WakeKind) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.queueFor(kind).Cancel(thread)
}

func (idx *Index) queueFor(kind scheduler.WakeKind) *wakeQueue {
	switch kind {
	case scheduler.WakeSlot:
		return idx.wakeSlot
	case scheduler.WakeEpoch:
		return idx.wakeEpoch
	default:
		return idx.wakeTime
	}
}
