// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package loadbalancer is the per-executor singleton that arbitrates
// thread ownership through "natural competition" (spec §4.G): many
// executors may attempt the same thread, the on-chain program admits
// exactly one per fiber slot, and losers detect the loss on the next
// account update and back off.
package loadbalancer

import (
	"sync"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

// Decision is the verdict returned by ShouldProcess.
type Decision uint8

const (
	// Process means the caller should attempt execution.
	Process Decision = iota
	// Skip means another executor owns this thread and is keeping it
	// current.
	Skip
	// AtCapacity means this executor is shedding load and will only
	// attempt critically overdue threads.
	AtCapacity
)

func (d Decision) String() string {
	switch d {
	case Process:
		return "process"
	case Skip:
		return "skip"
	case AtCapacity:
		return "at_capacity"
	default:
		return "unknown"
	}
}

// Config configures the balancer (spec §6, `load_balancer` section).
type Config struct {
	// CapacityThreshold is the number of consecutive losses before a
	// thread's ownership is released.
	CapacityThreshold uint32
	// TakeoverDelaySeconds is how long an overdue thread must wait
	// before a non-owner attempts to claim it.
	TakeoverDelaySeconds int64
	// Enabled disables all arbitration when false — every call returns
	// Process.
	Enabled bool
}

// DefaultConfig mirrors the reference balancer's defaults.
func DefaultConfig() Config {
	return Config{CapacityThreshold: 5, TakeoverDelaySeconds: 10, Enabled: true}
}

type threadTracking struct {
	consecutiveLosses uint32
	owned             bool
	lastAttempt       int64
}

// LoadBalancer is the per-executor singleton described in spec §4.G. All
// methods are safe for concurrent use.
type LoadBalancer struct {
	executor chain.Pubkey
	cfg      Config

	mu         sync.RWMutex
	tracking   map[chain.Address]*threadTracking
	atCapacity bool
}

// New constructs a LoadBalancer for executor.
func New(executor chain.Pubkey, cfg Config) *LoadBalancer {
	return &LoadBalancer{
		executor: executor,
		cfg:      cfg,
		tracking: make(map[chain.Address]*threadTracking),
	}
}

// ShouldProcess is the `should_process` decision from spec §4.G.
// timeSinceReady is seconds since the thread's trigger became ready; it
// is compared against TakeoverDelaySeconds to decide overdue-ness.
func (lb *LoadBalancer) ShouldProcess(thread chain.Address, lastExecutor chain.Pubkey, timeSinceReady int64) Decision {
	if !lb.cfg.Enabled {
		return Process
	}

	isOverdue := timeSinceReady > lb.cfg.TakeoverDelaySeconds

	lb.mu.Lock()
	track := lb.trackingForLocked(thread)

	weExecutedLast := lastExecutor == lb.executor
	if weExecutedLast {
		track.owned = true
		track.consecutiveLosses = 0
	} else if lastExecutor != chain.DefaultPubkey {
		if track.owned {
			track.consecutiveLosses++
			if track.consecutiveLosses >= lb.cfg.CapacityThreshold {
				track.owned = false
				track.consecutiveLosses = 0
			}
		}
	}

	shouldCheckCapacity := track.consecutiveLosses >= lb.cfg.CapacityThreshold
	owned := track.owned
	lb.mu.Unlock()

	if shouldCheckCapacity {
		lb.checkCapacity()
	}

	lb.mu.RLock()
	atCapacity := lb.atCapacity
	lb.mu.RUnlock()

	switch {
	case owned:
		return Process
	case isOverdue && timeSinceReady > lb.cfg.TakeoverDelaySeconds:
		return Process
	case atCapacity:
		if isOverdue && timeSinceReady > (lb.cfg.TakeoverDelaySeconds*3)/2 {
			return Process
		}
		return AtCapacity
	case lastExecutor == chain.DefaultPubkey:
		return Process
	default:
		return Skip
	}
}

// RecordExecutionResult is `record_execution_result` from spec §4.G: on
// success, mark owned and clear losses; on loss, increment losses and
// escalate at_capacity if warranted.
func (lb *LoadBalancer) RecordExecutionResult(thread chain.Address, success bool, currentTimestamp int64) {
	lb.mu.Lock()
	track := lb.trackingForLocked(thread)
	track.lastAttempt = currentTimestamp

	if success {
		wasUnowned := !track.owned
		track.owned = true
		track.consecutiveLosses = 0
		if wasUnowned {
			lb.atCapacity = false
		}
		lb.mu.Unlock()
		return
	}

	escalate := false
	if track.owned {
		track.consecutiveLosses++
		if track.consecutiveLosses >= lb.cfg.CapacityThreshold {
			track.owned = false
			track.consecutiveLosses = 0
			escalate = true
		}
	}
	lb.mu.Unlock()

	if escalate {
		lb.checkCapacity()
	}
}

// ResetThread drops tracking for a thread, e.g. after it is deleted.
func (lb *LoadBalancer) ResetThread(thread chain.Address) {
	lb.mu.Lock()
	delete(lb.tracking, thread)
	lb.mu.Unlock()
}

// Stats reports current ownership/capacity counters for metrics.
type Stats struct {
	TotalTracked      int
	OwnedThreads      int
	ThreadsWithLosses int
	AtCapacity        bool
}

// Stats returns a snapshot of current tracking statistics.
func (lb *LoadBalancer) Stats() Stats {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	s := Stats{TotalTracked: len(lb.tracking), AtCapacity: lb.atCapacity}
	for _, t := range lb.tracking {
		if t.owned {
			s.OwnedThreads++
		}
		if t.consecutiveLosses > 0 {
			s.ThreadsWithLosses++
		}
	}
	return s
}

func (lb *LoadBalancer) trackingForLocked(thread chain.Address) *threadTracking {
	t, ok := lb.tracking[thread]
	if !ok {
		t = &threadTracking{}
		lb.tracking[thread] = t
	}
	return t
}

// checkCapacity re-derives the at_capacity gauge: if we own at least one
// thread and are losing more than half of what we own, we are shedding
// load (spec §4.G "Re-evaluate the global at_capacity flag").
func (lb *LoadBalancer) checkCapacity() {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	ownedCount := 0
	lossCount := 0
	for _, t := range lb.tracking {
		if t.owned {
			ownedCount++
		}
		if t.consecutiveLosses > 0 {
			lossCount++
		}
	}
	if ownedCount > 0 && lossCount > ownedCount/2 {
		lb.atCapacity = true
	}
}
