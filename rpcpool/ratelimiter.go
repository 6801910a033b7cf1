// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-endpoint token bucket. TryAcquire is non-blocking;
// Acquire suspends until a token is available (spec §4.A).
type RateLimiter struct {
	limiter *rate.Limiter
	cfg     RateLimitConfig
}

// NewRateLimiter builds a token bucket refilling at RequestsPerSecond with
// a ceiling of BurstCapacity tokens.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstCapacity),
		cfg:     cfg,
	}
}

// TryAcquire attempts to take one token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// Acquire blocks (respecting ctx) until a token is available, returning
// how long the caller waited.
func (r *RateLimiter) Acquire(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

// AvailableTokens reports the current burst headroom, for diagnostics.
func (r *RateLimiter) AvailableTokens() float64 {
	return float64(r.limiter.Tokens())
}
