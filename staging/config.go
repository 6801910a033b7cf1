// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package staging is the staging index and actor router (spec §4.E):
// the sole holder of scheduler actor handles, the thread-account and
// watched-account indexes, and the ordered wake structures that turn
// clock ticks into per-actor evaluations. It is the message-channel side
// of the cache-actor cyclic dependency (spec §9 "Break it with a message
// channel") — the cache never calls actors directly, only staging does,
// driven by the ingestion stream and cache eviction notifications.
package staging

import (
	"time"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/scheduler"
)

// Config configures the staging index.
type Config struct {
	// ProgramID identifies which account owner marks a Thread/Fiber
	// account, distinguishing it from any other account observed on the
	// shared ingestion channel.
	ProgramID chain.Address

	// UpdateChannelBuffer bounds the ingestion-to-staging channel.
	UpdateChannelBuffer int

	// ActorConfig is passed through to every spawned scheduler.Actor.
	ActorConfig scheduler.Config

	// ActorStopDeadline bounds how long Stop waits for an individual
	// actor's in-flight submission to finish during shutdown (spec §4.I
	// "lets in-flight submissions complete up to a deadline").
	ActorStopDeadline time.Duration
}

// DefaultConfig mirrors the reference implementation's staging defaults.
func DefaultConfig() Config {
	return Config{
		UpdateChannelBuffer: 4096,
		ActorConfig:         scheduler.DefaultConfig(),
		ActorStopDeadline:   5 * time.Second,
	}
}
