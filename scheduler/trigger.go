// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// cronParser accepts the six-field form used throughout spec §8's
// examples (seconds minutes hours day-of-month month day-of-week), e.g.
// "0 */5 * * * *".
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextOccurrence computes the next scheduled unix timestamp for a Cron
// trigger after prev, before jitter is applied. An unparsable expression
// is treated as never-ready rather than panicking — a malformed on-chain
// trigger must not crash the actor.
func nextOccurrence(expr string, prev int64) (int64, bool) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return 0, false
	}
	return schedule.Next(unixTime(prev)).Unix(), true
}

// readiness is the outcome of evaluating a thread's trigger against the
// current clock (spec §4.F step 2).
type readiness struct {
	Ready bool
	// Next is the trigger's next firing point, in the unit relevant to
	// its kind (unix seconds, slot, or epoch); used to schedule the next
	// wake in the staging index's ordered structures. Meaningless for
	// Account and one-shot-consumed Now triggers.
	Next int64
}

// evaluateTrigger implements spec §4.F step 2's per-kind readiness rules.
// watchedData is the current cached bytes of an Account trigger's watched
// address, or nil for every other kind.
func evaluateTrigger(thread *chain.Thread, clock chain.Clock, watchedData []byte) readiness {
	t := thread.Trigger
	switch t.Kind {
	case chain.TriggerNow:
		// "ready when a fresh Now schedule has never been consumed."
		// The on-chain schedule records a firing by advancing Prev off
		// its zero value, so an un-consumed Now trigger is identified by
		// Schedule.Prev == 0.
		return readiness{Ready: thread.Schedule.Prev == 0}

	case chain.TriggerCron:
		next, ok := nextOccurrence(t.CronSchedule, thread.Schedule.Prev)
		if !ok {
			return readiness{}
		}
		next += chain.JitterOffset(thread.Address, thread.Schedule.Prev, t.JitterBound)
		return readiness{Ready: clock.Timestamp >= next, Next: next}

	case chain.TriggerInterval:
		next := thread.Schedule.Prev + t.IntervalSeconds
		next += chain.JitterOffset(thread.Address, thread.Schedule.Prev, t.JitterBound)
		return readiness{Ready: clock.Timestamp >= next, Next: next}

	case chain.TriggerTimestamp:
		return readiness{Ready: clock.Timestamp >= t.UnixTimestamp, Next: t.UnixTimestamp}

	case chain.TriggerSlot:
		return readiness{Ready: clock.Slot >= t.TargetSlot, Next: int64(t.TargetSlot)}

	case chain.TriggerEpoch:
		return readiness{Ready: clock.Epoch >= t.TargetEpoch, Next: int64(t.TargetEpoch)}

	case chain.TriggerAccount:
		if watchedData == nil {
			return readiness{}
		}
		h := chain.TriggerHash(watchedData, t.Offset, t.Size)
		return readiness{Ready: h != thread.Schedule.PrevHash}

	default:
		return readiness{}
	}
}
