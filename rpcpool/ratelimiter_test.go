// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstThenExhausted(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstCapacity: 2})

	require.True(t, rl.TryAcquire())
	require.True(t, rl.TryAcquire())
	require.False(t, rl.TryAcquire(), "burst capacity exhausted")
}
