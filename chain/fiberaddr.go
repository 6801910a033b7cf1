// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "github.com/gagliardetto/solana-go"

// ThreadProgramID is the on-chain program that owns thread, fiber, and
// config accounts.
const ThreadProgramID Address = "AgV3xRAdyTe1wW4gTW2oAnzHiAGofsxC7jBVGGkzUQbY"

// NetworkProgramID is the on-chain program that owns the shared executor
// registry and builder accounts consulted during fee distribution.
const NetworkProgramID Address = "AgNet6qmh75bjFULcS9RQijUoWwkCtSiSwXM1K3Ujn6Z"

var (
	seedThreadFiber = []byte("thread_fiber")
	seedConfig      = []byte("config")
	seedRegistry    = []byte("registry")
)

func findProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	pid, err := AddressToPubkey(programID)
	if err != nil {
		return "", err
	}
	pk, _, err := solana.FindProgramAddress(seeds, solana.PublicKeyFromBytes(pid[:]))
	if err != nil {
		return "", err
	}
	var p Pubkey
	copy(p[:], pk[:])
	return p.Address(), nil
}

// DeriveFiberAddress computes the program-derived address of a thread's
// fiber account at index, for threads whose fibers are separate accounts
// rather than an inline default fiber (spec §3 "Fiber"), seeded the same
// way the thread program itself does: [b"thread_fiber", thread, index].
func DeriveFiberAddress(thread Address, index uint32) (Address, error) {
	threadPk, err := AddressToPubkey(thread)
	if err != nil {
		return "", err
	}
	return findProgramAddress([][]byte{seedThreadFiber, threadPk[:], {byte(index)}}, ThreadProgramID)
}

// DeriveConfigAddress computes the program-derived address of the thread
// program's single global config account, seeded with [b"config"].
func DeriveConfigAddress() (Address, error) {
	return findProgramAddress([][]byte{seedConfig}, ThreadProgramID)
}

// DeriveRegistryAddress computes the program-derived address of the
// network program's single global registry account, seeded with
// [b"registry"], against the network program rather than the thread
// program since the registry is owned by a separate on-chain program.
func DeriveRegistryAddress() (Address, error) {
	return findProgramAddress([][]byte{seedRegistry}, NetworkProgramID)
}
