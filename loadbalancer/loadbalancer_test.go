// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package loadbalancer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

func pubkey(b byte) chain.Pubkey {
	var p chain.Pubkey
	p[0] = b
	return p
}

func addr(b byte) chain.Address {
	return chain.Address(string([]byte{b}))
}

func TestShouldProcessClaimsUnownedThread(t *testing.T) {
	lb := New(pubkey(1), DefaultConfig())
	d := lb.ShouldProcess(addr(1), chain.DefaultPubkey, 0)
	require.Equal(t, Process, d)
}

func TestShouldProcessSkipsWhenAnotherExecutorOwnsAndCurrent(t *testing.T) {
	lb := New(pubkey(1), DefaultConfig())
	d := lb.ShouldProcess(addr(1), pubkey(2), 0)
	require.Equal(t, Skip, d)
}

func TestShouldProcessTakesOverWhenOverdue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TakeoverDelaySeconds = 10
	lb := New(pubkey(1), cfg)
	d := lb.ShouldProcess(addr(1), pubkey(2), 11)
	require.Equal(t, Process, d)
}

func TestOwnershipReleasedAfterCapacityThresholdLosses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapacityThreshold = 3
	cfg.TakeoverDelaySeconds = 1000
	lb := New(pubkey(1), cfg)

	// Claim ownership.
	lb.ShouldProcess(addr(1), pubkey(1), 0)

	// Lose 3 times in a row to another executor; ownership must release.
	lb.ShouldProcess(addr(1), pubkey(2), 0)
	lb.ShouldProcess(addr(1), pubkey(2), 0)
	d := lb.ShouldProcess(addr(1), pubkey(2), 0)
	require.Equal(t, Skip, d)
}

func TestAtCapacityEscalatesWhenLossesExceedHalfOwned(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapacityThreshold = 2
	cfg.TakeoverDelaySeconds = 1000
	lb := New(pubkey(1), cfg)

	// Own threads A and B.
	lb.ShouldProcess(addr(1), pubkey(1), 0)
	lb.ShouldProcess(addr(2), pubkey(1), 0)
	// Lose A once: A stays owned with one loss.
	lb.RecordExecutionResult(addr(1), false, 1)
	// Lose B twice: the second loss reaches the threshold, releases B and
	// triggers a capacity check: ownedCount=1 (A), lossCount=1 (A) > 1/2=0.
	lb.RecordExecutionResult(addr(2), false, 2)
	lb.RecordExecutionResult(addr(2), false, 3)

	require.True(t, lb.Stats().AtCapacity)
}

func TestRecordExecutionResultSuccessClearsLosses(t *testing.T) {
	lb := New(pubkey(1), DefaultConfig())
	lb.ShouldProcess(addr(1), pubkey(2), 0) // someone else owns it, no loss yet (not owned by us)
	lb.RecordExecutionResult(addr(1), true, 100)

	d := lb.ShouldProcess(addr(1), pubkey(2), 0)
	require.Equal(t, Process, d, "after a recorded success we should own and keep processing")
}

func TestDisabledAlwaysProcesses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	lb := New(pubkey(1), cfg)
	require.Equal(t, Process, lb.ShouldProcess(addr(1), pubkey(2), 0))
}
