// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerClosedToOpen(t *testing.T) {
	b := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, ResetTimeout: 10 * time.Millisecond})
	require.Equal(t, Closed, b.State())

	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Closed, b.State())
	b.RecordFailure()
	require.Equal(t, Open, b.State())
}

func TestCircuitBreakerOpenToHalfOpenToClosed(t *testing.T) {
	b := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, ResetTimeout: 5 * time.Millisecond})
	b.RecordFailure()
	require.Equal(t, Open, b.State())

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	require.True(t, b.TryReserveProbe())
	require.False(t, b.TryReserveProbe(), "only one probe allowed at a time in HalfOpen")

	b.RecordSuccess()
	require.Equal(t, HalfOpen, b.State())
	b.RecordSuccess()
	require.Equal(t, Closed, b.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, ResetTimeout: 5 * time.Millisecond})
	b.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	require.Equal(t, Open, b.State())
}

func TestCircuitBreakerSuccessResetsFailureCountInClosed(t *testing.T) {
	b := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, ResetTimeout: time.Second})
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Closed, b.State(), "success should have reset the failure counter")
}
