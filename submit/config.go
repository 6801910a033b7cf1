// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package submit is the submission engine (spec §4.H): simulate, sign,
// send (TPU-first with RPC fallback), and confirm a compiled instruction
// set.
package submit

import "time"

// Mode selects how a built transaction is sent (spec §4.H "Send").
type Mode uint8

const (
	ModeRPCOnly Mode = iota
	ModeTPUOnly
	ModeTPUWithFallback
)

// Config configures the engine (spec §6, `processor` section).
type Config struct {
	SimulateBeforeSubmit  bool
	ComputeUnitMultiplier float64
	MaxComputeUnits       uint32
	MaxConfirmationTime   time.Duration
	ConfirmPollInterval   time.Duration
	MaxRetries            int
	Mode                  Mode
	// FallbackDelay is how long TpuWithFallback waits for a TPU-only
	// confirmation before also sending via RPC (spec §4.H "Send").
	FallbackDelay time.Duration
}

// DefaultConfig mirrors the reference submitter's defaults.
func DefaultConfig() Config {
	return Config{
		SimulateBeforeSubmit:  true,
		ComputeUnitMultiplier: 1.2,
		MaxComputeUnits:       1_400_000,
		MaxConfirmationTime:   30 * time.Second,
		ConfirmPollInterval:   500 * time.Millisecond,
		MaxRetries:            3,
		Mode:                  ModeTPUWithFallback,
		FallbackDelay:         2 * time.Second,
	}
}
