// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "errors"

// Config/data-model level sentinel errors (spec §7, class 1 and 5).
var (
	ErrInvalidFeeSplit           = errors.New("chain: executor_fee_bps + core_team_bps != 10000")
	ErrThreadHasNoFibersToExecute = errors.New("chain: thread has no fibers to execute")
	ErrThreadPaused              = errors.New("chain: thread is paused")
	ErrTriggerNotReady           = errors.New("chain: trigger not ready")
	ErrWrongFiberIndex           = errors.New("chain: wrong fiber index")
	ErrFiberAccountRequired      = errors.New("chain: fiber account required")
	ErrAccountNotFound          = errors.New("chain: account not found")
	ErrClockDataTooShort        = errors.New("chain: clock sysvar data too short")
	ErrInvalidAddress           = errors.New("chain: address does not decode to a 32-byte pubkey")
	ErrWrongDiscriminator       = errors.New("chain: account discriminator does not match expected type")
	ErrUnknownTriggerKind       = errors.New("chain: unknown trigger kind byte")
	ErrUnknownScheduleKind      = errors.New("chain: unknown schedule kind byte")
)
