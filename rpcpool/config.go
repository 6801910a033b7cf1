// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpcpool is the executor's sole outbound channel for JSON-RPC
// calls: account reads, transaction sends, status polls, and health
// checks, dispatched across one or more endpoints with failover,
// per-endpoint rate limiting, and circuit breaking (spec §4.A).
package rpcpool

import "time"

// Role restricts which calls may be routed to an endpoint.
type Role uint8

const (
	RoleBoth Role = iota
	RoleSubmission
	RoleDatasource
)

// Strategy selects how a healthy, role-compatible endpoint is picked.
type Strategy uint8

const (
	StrategyRoundRobin Strategy = iota
	StrategyWeightedPriority
	StrategyLowestLatency
	StrategyStrictPriority
)

// EndpointConfig describes one configured RPC endpoint.
type EndpointConfig struct {
	URL      string
	WSURL    string
	Priority int
	Role     Role
}

// CircuitBreakerConfig configures the breaker shared by every endpoint.
type CircuitBreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	SuccessThreshold int
}

// DefaultCircuitBreakerConfig mirrors the reference client's defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:      30 * time.Second,
		SuccessThreshold:  3,
	}
}

// RateLimitConfig configures the per-endpoint token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
}

// DefaultRateLimitConfig mirrors the reference client's defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 50, BurstCapacity: 100}
}

// HealthCheckConfig configures the background health checker.
type HealthCheckConfig struct {
	Interval           time.Duration
	Timeout            time.Duration
	UnhealthyThreshold int
}

// DefaultHealthCheckConfig mirrors the reference client's defaults.
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Interval:           30 * time.Second,
		Timeout:            5 * time.Second,
		UnhealthyThreshold: 3,
	}
}

// RetryConfig configures exponential backoff with jitter for failed calls.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	Multiplier      float64
	MaxBackoff      time.Duration
	JitterFraction  float64 // e.g. 0.2 means backoff *= [0.8, 1.2]
}

// DefaultRetryConfig mirrors the reference client's defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		Multiplier:     2.0,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.2,
	}
}

// Config is the top-level RPC pool configuration (spec §6, `rpc` section).
type Config struct {
	Endpoints      []EndpointConfig
	CircuitBreaker CircuitBreakerConfig
	RateLimit      RateLimitConfig
	HealthCheck    HealthCheckConfig
	Retry          RetryConfig
	Strategy       Strategy
}
