// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import "github.com/wuwei-labs/antegen-sub001/chain"

// WakeKind tags which ordered structure a scheduled wake belongs to
// (spec §4.E: "a min-heap of (next_trigger_time, thread_address)... a
// sorted set (next_trigger_slot, thread_address) and similarly for
// epochs").
type WakeKind uint8

const (
	WakeTime WakeKind = iota
	WakeSlot
	WakeEpoch
)

// Registrar is the staging index's half of the cyclic dependency between
// actors and the staging index (spec §9 "Break it with a message
// channel"): an actor never holds a reference to another actor or to the
// cache directly for routing purposes, it only tells the index what it
// needs to be woken for next.
type Registrar interface {
	// RegisterWatch records that thread cares about changes to watched
	// (Trigger::Account), so the staging index's inverted index forwards
	// future updates to that address to this actor.
	RegisterWatch(thread, watched chain.Address)
	// UnregisterWatch removes a previously registered watch, e.g. when a
	// thread's trigger configuration changes.
	UnregisterWatch(thread, watched chain.Address)
	// ScheduleWake upserts thread's next wake point in the given ordered
	// structure, consumed by the index on the next relevant clock tick.
	ScheduleWake(thread chain.Address, kind WakeKind, value int64)
	// CancelWake removes any pending wake scheduled for thread in kind's
	// structure, used when a trigger becomes one-shot-consumed or the
	// thread stops being tracked.
	CancelWake(thread chain.Address, kind WakeKind)
}
