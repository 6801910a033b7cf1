// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "github.com/cespare/xxhash/v2"

// TriggerHash computes the 64-bit non-cryptographic hash the on-chain
// program uses to detect account-trigger changes (spec §6, "wire-exact
// constraints"). It must be byte-identical to the program's computation,
// so this function and its choice of hash (xxhash64) are load-bearing:
// changing it requires changing the program in lockstep.
//
// The range hashed is data[offset:min(offset+size, len(data))], inclusive
// of a short read rather than an out-of-bounds panic — accounts can be
// resized by their owner between observations.
func TriggerHash(data []byte, offset, size uint32) uint64 {
	start := int(offset)
	if start > len(data) {
		start = len(data)
	}
	end := start + int(size)
	if end > len(data) {
		end = len(data)
	}
	return xxhash.Sum64(data[start:end])
}

// JitterOffset derives a deterministic per-thread jitter offset in
// [0, bound) from the thread address and the schedule's previous firing
// time, so every executor computes the same next-firing time for the same
// thread without on-chain coordination (spec §4.F).
//
// Open question (spec §9): the exact bit pattern of the jitter function is
// not fully pinned by the distilled source; this implementation commits to
// xxhash64(address || prev) mod bound and the on-chain program must match.
func JitterOffset(address Address, prev int64, bound int64) int64 {
	if bound <= 0 {
		return 0
	}
	h := xxhash.New()
	_, _ = h.Write([]byte(address))
	var buf [8]byte
	putInt64(buf[:], prev)
	_, _ = h.Write(buf[:])
	return int64(h.Sum64() % uint64(bound))
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}
