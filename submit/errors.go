// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package submit

import (
	"errors"
	"strings"
)

var (
	// ErrSimulationFailed wraps an on-chain program error surfaced during
	// simulation (spec §7 class 5) — never retried at the same trigger
	// context.
	ErrSimulationFailed = errors.New("submit: simulation failed")
	// ErrSignerMismatch is a fatal submission error (spec §7 class 6).
	ErrSignerMismatch = errors.New("submit: signer mismatch")
)

// isRetryableSendError classifies a raw sendTransaction/simulate error
// string per spec §7 class 6: transient (blockhash, duplicate) retry;
// fatal (signer mismatch) surface.
func isRetryableSendError(msg string) bool {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "blockhash not found"):
		return true
	case strings.Contains(m, "already processed"):
		return true
	case strings.Contains(m, "rate limit"):
		return true
	case strings.Contains(m, "timed out"):
		return true
	default:
		return false
	}
}

// isAlreadyProcessed reports whether msg indicates the transaction had
// already landed — per spec §7 class 6, treated as success.
func isAlreadyProcessed(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already processed")
}
