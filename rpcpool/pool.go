// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool/transport"
)

// endpointState is the mutable, per-endpoint bookkeeping the pool
// maintains across calls (spec §4.A "Endpoint state").
type endpointState struct {
	cfg EndpointConfig

	breaker     *CircuitBreaker
	limiter     *RateLimiter
	nextID      uint64
	roundRobin  int32

	mu          sync.RWMutex
	lastLatency time.Duration
}

func (e *endpointState) setLastLatency(d time.Duration) {
	e.mu.Lock()
	e.lastLatency = d
	e.mu.Unlock()
}

func (e *endpointState) getLastLatency() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastLatency
}

func (e *endpointState) compatibleWith(role Role) bool {
	if e.cfg.Role == RoleBoth {
		return true
	}
	return e.cfg.Role == role
}

// Pool dispatches JSON-RPC calls across configured endpoints with
// failover, rate limiting, and circuit breaking (spec §4.A).
type Pool struct {
	cfg        Config
	httpClient *http.Client
	endpoints  []*endpointState
	health     *healthChecker
	rrCounter  uint64
}

// New builds a pool from cfg and starts its background health checker.
func New(cfg Config) *Pool {
	p := &Pool{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, ecfg := range cfg.Endpoints {
		p.endpoints = append(p.endpoints, &endpointState{
			cfg:     ecfg,
			breaker: NewCircuitBreaker(cfg.CircuitBreaker),
			limiter: NewRateLimiter(cfg.RateLimit),
		})
	}
	p.health = newHealthChecker(cfg.HealthCheck, p.endpoints, p.probeHealth)
	go p.health.run()
	return p
}

// Shutdown stops the background health checker.
func (p *Pool) Shutdown() {
	p.health.shutdown()
}

// eligible returns the endpoints compatible with role whose circuit
// allows a request right now, without reserving anything.
func (p *Pool) eligible(role Role) []*endpointState {
	out := make([]*endpointState, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		if !ep.compatibleWith(role) {
			continue
		}
		if ep.breaker.State() == Open {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// selectEndpoint picks one eligible endpoint per the configured strategy.
func (p *Pool) selectEndpoint(role Role) *endpointState {
	candidates := p.eligible(role)
	if len(candidates) == 0 {
		return nil
	}

	switch p.cfg.Strategy {
	case StrategyStrictPriority:
		best := candidates[0]
		for _, ep := range candidates[1:] {
			if ep.cfg.Priority < best.cfg.Priority {
				best = ep
			}
		}
		return best
	case StrategyLowestLatency:
		best := candidates[0]
		for _, ep := range candidates[1:] {
			if ep.getLastLatency() < best.getLastLatency() {
				best = ep
			}
		}
		return best
	case StrategyWeightedPriority:
		// Higher priority (lower number) endpoints are picked
		// proportionally more often, weighted by 1/(priority+1).
		total := 0.0
		weights := make([]float64, len(candidates))
		for i, ep := range candidates {
			w := 1.0 / float64(ep.cfg.Priority+1)
			weights[i] = w
			total += w
		}
		r := rand.Float64() * total
		for i, w := range weights {
			if r < w {
				return candidates[i]
			}
			r -= w
		}
		return candidates[len(candidates)-1]
	default: // StrategyRoundRobin
		idx := atomic.AddUint64(&p.rrCounter, 1)
		return candidates[idx%uint64(len(candidates))]
	}
}

// Call dispatches method/params to the healthiest role-compatible
// endpoint, retrying with exponential backoff and jitter across
// potentially different endpoints on each attempt (spec §4.A "Retry").
func (p *Pool) Call(ctx context.Context, role Role, method string, params []interface{}, reply interface{}) error {
	retry := p.cfg.Retry
	backoff := retry.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		ep := p.selectEndpoint(role)
		if ep == nil {
			return &CallError{Class: ErrNoHealthyEndpoint}
		}

		if !ep.limiter.TryAcquire() {
			lastErr = &CallError{Endpoint: ep.cfg.URL, Class: ErrRateLimited}
		} else {
			probing := ep.breaker.State() == HalfOpen
			if probing && !ep.breaker.TryReserveProbe() {
				lastErr = &CallError{Endpoint: ep.cfg.URL, Class: ErrEndpointUnavailable}
			} else {
				start := time.Now()
				id := atomic.AddUint64(&ep.nextID, 1)
				err := transport.Send(ctx, p.httpClient, ep.cfg.URL, id, method, params, reply)
				ep.setLastLatency(time.Since(start))

				if err == nil {
					ep.breaker.RecordSuccess()
					return nil
				}
				ep.breaker.RecordFailure()
				lastErr = classify(ep.cfg.URL, err)
			}
		}

		if attempt == retry.MaxAttempts-1 {
			break
		}

		wait := jittered(backoff, retry.JitterFraction)
		log.Debug("rpc call retrying", "method", method, "attempt", attempt+1, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * retry.Multiplier)
		if backoff > retry.MaxBackoff {
			backoff = retry.MaxBackoff
		}
	}
	return lastErr
}

func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	lo := 1 - fraction
	span := 2 * fraction
	factor := lo + rand.Float64()*span
	return time.Duration(float64(d) * factor)
}

// classify maps a raw transport error to the taxonomy in spec §4.A. The
// transport layer does not currently distinguish status codes beyond
// success/failure, so anything it reports is treated as EndpointUnavailable
// unless the call's context deadline was exceeded (Timeout).
func classify(endpoint string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Endpoint: endpoint, Class: ErrTimeout, Err: err}
	}
	return &CallError{Endpoint: endpoint, Class: ErrEndpointUnavailable, Err: err}
}

// probeHealth issues a getHealth call against ep for the background
// health checker.
func (p *Pool) probeHealth(ctx context.Context, ep *endpointState) error {
	var reply interface{}
	id := atomic.AddUint64(&ep.nextID, 1)
	return transport.Send(ctx, p.httpClient, ep.cfg.URL, id, "getHealth", nil, &reply)
}

// WaitHealthy blocks until getVersion succeeds against at least one
// configured endpoint, or ctx is done. It is the pool-level readiness gate
// the supervisor waits on before spawning ingestion, so the first account
// updates are not lost to a cluster that has not accepted connections yet.
func (p *Pool) WaitHealthy(ctx context.Context, pollInterval time.Duration) error {
	var reply interface{}
	for {
		if err := p.Call(ctx, RoleBoth, "getVersion", nil, &reply); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
