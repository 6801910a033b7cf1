// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

// ClockSysvarAddress is the well-known address of the clock sysvar
// account, whose data decodes to a Clock. Every ingestion adapter
// variant subscribes to it in addition to the thread program (spec §4.D).
const ClockSysvarAddress Address = "SysvarC1ock11111111111111111111111111111111"

// DecodeClock parses the clock sysvar's account data. The sysvar is a
// fixed 40-byte little-endian layout: slot(8) + epoch_start_timestamp(8)
// + epoch(8) + leader_schedule_epoch(8) + unix_timestamp(8).
func DecodeClock(data []byte) (Clock, error) {
	if len(data) < 40 {
		return Clock{}, ErrClockDataTooShort
	}
	return Clock{
		Slot:      leUint64(data[0:8]),
		Epoch:     leUint64(data[16:24]),
		Timestamp: int64(leUint64(data[32:40])),
	}, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
