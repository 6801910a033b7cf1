// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import (
	"sync"
	"time"

	"github.com/wuwei-labs/antegen-sub001/log"
)

// CircuitState is one of Closed, Open, HalfOpen (spec §4.A).
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards a single endpoint against cascading failures.
// State transitions follow Closed->Open->HalfOpen->(Closed|Open); any other
// transition is a bug (spec §8 invariant).
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastStateChange time.Time

	// halfOpenInFlight tracks whether a trial request is outstanding, so
	// only one probe is ever eligible at a time in HalfOpen (spec §4.A).
	halfOpenInFlight bool
}

// NewCircuitBreaker constructs a breaker in the Closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: Closed, lastStateChange: time.Now()}
}

// State returns the current state, first applying the Open->HalfOpen
// timeout transition if due.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionFromOpenLocked()
	return b.state
}

// TryReserveProbe reports whether the caller may issue a request right
// now, reserving the single HalfOpen trial slot if applicable.
func (b *CircuitBreaker) TryReserveProbe() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionFromOpenLocked()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		b.halfOpenInFlight = true
		return true
	default: // Open
		return false
	}
}

func (b *CircuitBreaker) maybeTransitionFromOpenLocked() {
	if b.state != Open {
		return
	}
	if time.Since(b.lastStateChange) >= b.cfg.ResetTimeout {
		b.state = HalfOpen
		b.lastStateChange = time.Now()
		b.successCount = 0
		b.halfOpenInFlight = false
	}
}

// RecordSuccess reports a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.successCount++
		b.halfOpenInFlight = false
		if b.successCount >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.lastStateChange = time.Now()
			b.failureCount = 0
			b.successCount = 0
			log.Info("circuit breaker closed", "successes", b.cfg.SuccessThreshold)
		}
	case Closed:
		b.failureCount = 0
	case Open:
		// Shouldn't happen; ignore.
	}
}

// RecordFailure reports a failed call.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = Open
			b.lastStateChange = time.Now()
			log.Warn("circuit breaker opened", "failures", b.cfg.FailureThreshold)
		}
	case HalfOpen:
		b.state = Open
		b.lastStateChange = time.Now()
		b.successCount = 0
		b.halfOpenInFlight = false
		log.Warn("circuit breaker reopened after failure in half-open state")
	case Open:
		// Already open; ignore.
	}
}

// Reset forces the breaker back to Closed, used on manual operator
// intervention or when an endpoint is re-added to the pool.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenInFlight = false
	b.lastStateChange = time.Now()
}

// ForceOpen transitions directly to Open regardless of the failure
// threshold, used by the health checker once its own unhealthy_threshold
// is reached (spec §4.A).
func (b *CircuitBreaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		b.state = Open
		b.lastStateChange = time.Now()
		b.halfOpenInFlight = false
	}
}

// TimeInCurrentState reports how long the breaker has held its state.
func (b *CircuitBreaker) TimeInCurrentState() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.lastStateChange)
}
