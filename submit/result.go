// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package submit

import "github.com/wuwei-labs/antegen-sub001/chain"

// Status is the terminal or in-flight state of a submitted transaction
// (spec §4.H "Post-send confirmation").
type Status uint8

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
	StatusExpired
	StatusAlreadyProcessed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	case StatusAlreadyProcessed:
		return "already_processed"
	default:
		return "unknown"
	}
}

// CommitmentLevel mirrors the cluster's confirmation levels.
type CommitmentLevel uint8

const (
	CommitmentProcessed CommitmentLevel = iota
	CommitmentConfirmed
	CommitmentFinalized
)

func (c CommitmentLevel) atLeast(other CommitmentLevel) bool { return c >= other }

// Result is the outcome of Engine.SubmitAndConfirm.
type Result struct {
	Signature chain.Signature
	Status    Status
	Level     CommitmentLevel
	Err       string
}
