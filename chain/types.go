// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain holds the on-chain data model consumed (read-only) by the
// executor: threads, triggers, fibers, the global fee schedule, and the
// account-update/cache records derived from them.
package chain

import "time"

// Address is a base58-encoded account address, mirroring how the on-chain
// program and every ingestion source identify accounts.
type Address string

// Signature is a base58-encoded transaction signature.
type Signature string

// Pubkey is the raw 32-byte form of an Address, used wherever account metas
// or hashing need the underlying bytes rather than the base58 string.
type Pubkey [32]byte

// DefaultPubkey is the zero pubkey, used by the on-chain program to mean
// "no executor has ever claimed this thread".
var DefaultPubkey Pubkey

// Payer is the sentinel account pubkey embedded by the on-chain program in a
// fiber's serialized instruction to mark "substitute the executor's own
// key here before signing". It is an all-ones pubkey with its last byte
// reserved to keep it distinguishable from a real all-ones key in the
// (exceedingly unlikely) case one is ever derived.
var Payer = Pubkey{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00,
}

// Clock is the decoded content of the clock sysvar account, carried on
// every ClockTick delivered to staging and scheduler actors.
type Clock struct {
	Slot      uint64
	Epoch     uint64
	Timestamp int64 // unix seconds
}

// TriggerKind tags the Trigger union.
type TriggerKind uint8

const (
	TriggerNow TriggerKind = iota
	TriggerCron
	TriggerInterval
	TriggerTimestamp
	TriggerSlot
	TriggerEpoch
	TriggerAccount
)

// Trigger is the tagged union of scheduling conditions a thread can carry.
// Only the fields relevant to Kind are populated.
type Trigger struct {
	Kind TriggerKind

	// Cron
	CronSchedule string
	JitterBound  int64 // seconds; 0 means no jitter
	Skippable    bool

	// Interval
	IntervalSeconds int64

	// Timestamp
	UnixTimestamp int64

	// Slot
	TargetSlot uint64

	// Epoch
	TargetEpoch uint64

	// Account
	WatchAddress Address
	Offset       uint32
	Size         uint32
}

// ScheduleKind tags the Schedule union.
type ScheduleKind uint8

const (
	ScheduleTimed ScheduleKind = iota
	ScheduleBlock
	ScheduleOnChange
)

// Schedule is the on-chain program's bookkeeping of a thread's last firing,
// read (never written) by the executor to decide readiness.
type Schedule struct {
	Kind ScheduleKind

	// Timed: prev/next are unix timestamps.
	// Block: prev/next are slots.
	Prev int64
	Next int64

	// OnChange
	PrevHash uint64
}

// Fiber is one compiled instruction step of a thread.
type Fiber struct {
	ProgramID    Address
	Accounts     []AccountMeta
	Data         []byte
	PriorityFee  uint64
}

// AccountMeta is one account reference within a fiber's compiled
// instruction.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Thread is the on-chain scheduled-execution record, as read by the
// executor. Fields not consumed by this client are omitted.
type Thread struct {
	Address       Address
	Authority     Address
	ID            string
	Bump          uint8
	Trigger       Trigger
	Schedule      Schedule
	FiberIDs      []uint32
	FiberCursor   uint32
	DefaultFiber  *Fiber
	LastExecutor  Pubkey
	LastErrorTime int64
	Paused        bool
	NonceAccount  Address // zero value means "no durable nonce"
}

// HasNonce reports whether the thread uses a durable nonce account instead
// of a recent blockhash for transaction construction.
func (t *Thread) HasNonce() bool {
	return t.NonceAccount != ""
}

// CurrentFiberIndex returns the fiber index the thread will execute next,
// honoring the inline-default-fiber special case described in spec §4.F.
func (t *Thread) CurrentFiberIndex() (idx uint32, useDefault bool) {
	if t.FiberCursor == 0 && t.DefaultFiber != nil {
		return 0, true
	}
	return t.FiberCursor, false
}

// ThreadConfig is the process-wide, on-chain global fee schedule. It is
// refreshed whenever its account changes and is treated as read-only
// shared state by every scheduler actor.
type ThreadConfig struct {
	CommissionFeeLamports uint64
	ExecutorFeeBps        uint16
	CoreTeamBps           uint16
	GracePeriodSeconds    int64
	FeeDecaySeconds       int64
	Paused                bool
	Admin                 Address
}

// Validate enforces the fee-split invariant from spec §8: the two basis
// point shares must sum to exactly 10000. A config that fails this check
// must never be consumed by the submission engine.
func (c *ThreadConfig) Validate() error {
	if uint32(c.ExecutorFeeBps)+uint32(c.CoreTeamBps) != 10000 {
		return ErrInvalidFeeSplit
	}
	return nil
}

// EffectiveCommission computes the decayed commission at chain time t
// seconds since the thread became ready, per spec §6's wire-exact formula.
func (c *ThreadConfig) EffectiveCommission(secondsSinceReady int64) uint64 {
	if secondsSinceReady < 0 {
		secondsSinceReady = 0
	}
	overGrace := secondsSinceReady - c.GracePeriodSeconds
	if overGrace <= 0 {
		return c.CommissionFeeLamports
	}
	if c.FeeDecaySeconds <= 0 || overGrace >= c.FeeDecaySeconds {
		return 0
	}
	remaining := float64(c.FeeDecaySeconds-overGrace) / float64(c.FeeDecaySeconds)
	return uint64(float64(c.CommissionFeeLamports) * remaining)
}

// Split divides an effective commission into executor/core-team shares
// according to the config's basis points.
func (c *ThreadConfig) Split(effective uint64) (executorShare, coreTeamShare uint64) {
	executorShare = effective * uint64(c.ExecutorFeeBps) / 10000
	coreTeamShare = effective - executorShare
	return
}

// AccountUpdate is the normalized event produced by every ingestion
// adapter and consumed by the unified account cache.
type AccountUpdate struct {
	Address Address
	Owner   Address
	Data    []byte
	Slot    uint64
}

// CachedAccount is the value type stored by the unified account cache.
type CachedAccount struct {
	Data       []byte
	Slot       uint64
	Owner      Address
	Lamports   uint64
	ObservedAt time.Time
}
