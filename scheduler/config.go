// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler is the per-thread scheduler actor (spec §4.F): one
// actor per live thread, owning trigger evaluation, claim attempts
// (via the load balancer), exec build, and retry/backoff. Every input
// (clock tick, account change, internal retry timer, shutdown) is
// delivered through a single bounded mailbox so an actor's evaluations
// are strictly serialized and never overlap a submission in flight.
package scheduler

import (
	"time"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/submit"
)

// Config configures retry/backoff and mailbox sizing (spec §6 `processor`
// section plus the actor-local pieces not covered by submit.Config).
type Config struct {
	// Executor is this process's own pubkey, used for PAYER substitution
	// and last_executor comparisons.
	Executor chain.Pubkey

	// Admin is the thread config's admin account, included in every
	// built thread_exec instruction (spec §4.F step 5).
	Admin chain.Address

	MailboxSize int

	// RetryInitialBackoff/RetryMaxBackoff bound the actor-level retry
	// timer scheduled after a retryable submission failure (spec §4.F
	// "Retry policy"), distinct from submit.Config's own internal
	// per-attempt retry loop.
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration

	// TargetCommitment is the confirmation level SubmitAndConfirm must
	// reach for a submission to count as a win.
	TargetCommitment submit.CommitmentLevel
}

// DefaultConfig mirrors the reference processor's actor-local defaults.
func DefaultConfig() Config {
	return Config{
		MailboxSize:         32,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     30 * time.Second,
		TargetCommitment:    submit.CommitmentConfirmed,
	}
}
