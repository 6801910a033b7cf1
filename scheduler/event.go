// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import "github.com/wuwei-labs/antegen-sub001/chain"

// Event is the tagged union of actor mailbox inputs (spec §4.F "Inputs").
type Event interface{ isEvent() }

// ClockTick is (a): a new clock sysvar observation.
type ClockTick struct{ Clock chain.Clock }

// ThreadChanged is (b): a fresh snapshot of the thread account itself.
type ThreadChanged struct{ Thread *chain.Thread }

// WatchedAccountChanged is (c): the Trigger::Account watched address was
// updated; the actor re-reads it from the cache to re-hash.
type WatchedAccountChanged struct{ Address chain.Address }

// retryTimer is (d): an internal backoff timer fired.
type retryTimer struct{}

// Shutdown is (e): the actor must stop at the next opportunity.
type Shutdown struct{}

func (ClockTick) isEvent()             {}
func (ThreadChanged) isEvent()         {}
func (WatchedAccountChanged) isEvent() {}
func (retryTimer) isEvent()            {}
func (Shutdown) isEvent()              {}
