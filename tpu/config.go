// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tpu maintains QUIC connections to the upcoming slot leaders and
// exposes a fire-and-forget send path for serialized transactions (spec
// §4.B). It shares endpoint configuration with rpcpool but speaks directly
// to each leader's QUIC transaction-ingest port instead of going through
// JSON-RPC.
package tpu

import "time"

// Config configures the leader tracker and connection pool (spec §6,
// `tpu` section).
type Config struct {
	// WebsocketURL is the slot-subscription endpoint used to track the
	// current slot so the leader schedule window can be refreshed.
	WebsocketURL string

	// NumConnections is carried from configuration but not read by
	// Client, which keeps a single QUIC connection per leader.
	NumConnections int

	// LeadersFanout is the number of upcoming leaders a transaction is
	// broadcast to.
	LeadersFanout int

	// WorkerChannelSize bounds the internal send queue.
	WorkerChannelSize int

	// MaxReconnectAttempts bounds the dial attempts, with doubling
	// backoff, made for one send to a leader with no open connection.
	// The leader stays in the fanout set either way; the next send to it
	// dials again.
	MaxReconnectAttempts int

	// LeaderScheduleRefresh is how often the tracker re-derives the
	// fanout leader set from the current slot.
	LeaderScheduleRefresh time.Duration

	// DialTimeout bounds a single QUIC handshake attempt.
	DialTimeout time.Duration
}

// DefaultConfig mirrors the reference client's defaults.
func DefaultConfig() Config {
	return Config{
		NumConnections:        1,
		LeadersFanout:         4,
		WorkerChannelSize:     512,
		MaxReconnectAttempts:  4,
		LeaderScheduleRefresh: 2 * time.Second,
		DialTimeout:           2 * time.Second,
	}
}
