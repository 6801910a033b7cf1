// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package plugin

// The Agave/Solana geyser plugin ABI is Rust-only (a cdylib exposing the
// GeyserPlugin trait); a Go binary cannot implement that trait directly.
// Embedding this adapter therefore means pairing it with a minimal Rust
// cdylib shim that forwards update_account/update_slot_status calls over
// a Unix domain socket to this process, which decodes them and calls
// Source.PushUpdate. That shim lives outside this module; this file only
// documents the boundary it must honor so the wire format stays in sync.

// WireUpdate is the fixed-layout record the Rust shim writes to the
// socket for every account write: 32-byte pubkey, 32-byte owner, 8-byte
// little-endian slot, 8-byte little-endian data length, then the data.
// This package has no socket listener and no decoder for this framing;
// PushUpdate is the exported entry point for code that decodes it.
type WireUpdate struct {
	Pubkey [32]byte
	Owner  [32]byte
	Slot   uint64
	Data   []byte
}
