// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import (
	"context"
	"sync"
	"time"

	"github.com/wuwei-labs/antegen-sub001/log"
)

// healthChecker polls every endpoint's getHealth on a fixed interval.
// Consecutive failures reaching UnhealthyThreshold force the endpoint's
// circuit breaker open (spec §4.A).
type healthChecker struct {
	cfg       HealthCheckConfig
	endpoints []*endpointState
	caller    func(ctx context.Context, ep *endpointState) error

	mu       sync.Mutex
	failures map[string]int

	stop chan struct{}
	done chan struct{}
}

func newHealthChecker(cfg HealthCheckConfig, endpoints []*endpointState, caller func(ctx context.Context, ep *endpointState) error) *healthChecker {
	return &healthChecker{
		cfg:       cfg,
		endpoints: endpoints,
		caller:    caller,
		failures:  make(map[string]int),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (h *healthChecker) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.checkAll()
		}
	}
}

func (h *healthChecker) checkAll() {
	for _, ep := range h.endpoints {
		ep := ep
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Timeout)
		start := time.Now()
		err := h.caller(ctx, ep)
		cancel()

		h.mu.Lock()
		if err != nil {
			h.failures[ep.cfg.URL]++
			if h.failures[ep.cfg.URL] >= h.cfg.UnhealthyThreshold {
				ep.breaker.ForceOpen()
				log.Warn("endpoint failed health check threshold", "url", ep.cfg.URL, "consecutive_failures", h.failures[ep.cfg.URL])
			}
		} else {
			h.failures[ep.cfg.URL] = 0
			ep.setLastLatency(time.Since(start))
		}
		h.mu.Unlock()
	}
}

func (h *healthChecker) shutdown() {
	close(h.stop)
	<-h.done
}
