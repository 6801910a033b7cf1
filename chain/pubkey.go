// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "github.com/mr-tron/base58"

// Address returns the base58 string form of p.
func (p Pubkey) Address() Address {
	return Address(base58.Encode(p[:]))
}

// AddressToPubkey decodes a base58 account address into its raw 32-byte
// form, as needed wherever account metas or hashing require bytes rather
// than the string the rest of the system passes around (spec §3).
func AddressToPubkey(a Address) (Pubkey, error) {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return Pubkey{}, err
	}
	if len(raw) != 32 {
		return Pubkey{}, ErrInvalidAddress
	}
	var p Pubkey
	copy(p[:], raw)
	return p, nil
}
