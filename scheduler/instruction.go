// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

// resolveFiber returns the fiber the thread will execute next, fetching
// it through the cache on demand if it is a separate account (spec §4.F
// step 4). fiberAccount is the empty address when the thread uses its
// inline default fiber, which has no account of its own to reference in
// the compiled instruction.
func (a *Actor) resolveFiber(ctx context.Context, thread *chain.Thread) (fiber chain.Fiber, fiberAccount chain.Address, err error) {
	idx, useDefault := thread.CurrentFiberIndex()
	if useDefault {
		return *thread.DefaultFiber, "", nil
	}
	if int(idx) >= len(thread.FiberIDs) {
		return chain.Fiber{}, "", chain.ErrThreadHasNoFibersToExecute
	}

	addr, err := chain.DeriveFiberAddress(thread.Address, thread.FiberIDs[idx])
	if err != nil {
		return chain.Fiber{}, "", err
	}
	cached, err := a.cache.GetOrFetch(ctx, addr)
	if err != nil {
		return chain.Fiber{}, "", err
	}
	fiber, err = chain.DecodeFiberAccount(cached.Data)
	return fiber, addr, err
}

// substitutePayer replaces every PAYER sentinel pubkey in accounts with
// the executor's own key (spec §6 "Compiled-instruction payer
// substitution"), which must happen before signing.
func substitutePayer(accounts []chain.AccountMeta, executor chain.Pubkey) []chain.AccountMeta {
	out := make([]chain.AccountMeta, len(accounts))
	for i, m := range accounts {
		if m.Pubkey == chain.Payer {
			m.Pubkey = executor
		}
		out[i] = m
	}
	return out
}

// buildThreadExec assembles the thread_exec instruction from (thread,
// config, fiber if any, nonce account, executor signer, admin, registry,
// and the fiber's declared accounts) per spec §4.F step 5. Account
// ordering is fixed so that, given identical inputs, two executors
// compile byte-identical account metas (spec §8 round-trip law).
func (a *Actor) buildThreadExec(thread *chain.Thread, fiber chain.Fiber, fiberAccount chain.Address) (solana.Instruction, error) {
	threadPk, err := chain.AddressToPubkey(thread.Address)
	if err != nil {
		return nil, err
	}
	configAddr, err := chain.DeriveConfigAddress()
	if err != nil {
		return nil, err
	}
	configPk, err := chain.AddressToPubkey(configAddr)
	if err != nil {
		return nil, err
	}
	adminPk, err := chain.AddressToPubkey(a.cfg.Admin)
	if err != nil {
		return nil, err
	}
	registryAddr, err := chain.DeriveRegistryAddress()
	if err != nil {
		return nil, err
	}
	registryPk, err := chain.AddressToPubkey(registryAddr)
	if err != nil {
		return nil, err
	}
	programPk, err := chain.AddressToPubkey(fiber.ProgramID)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(solanaKey(threadPk), true, false),
		solana.NewAccountMeta(solanaKey(configPk), false, false),
	}
	if fiberAccount != "" {
		fiberPk, err := chain.AddressToPubkey(fiberAccount)
		if err != nil {
			return nil, err
		}
		metas = append(metas, solana.NewAccountMeta(solanaKey(fiberPk), false, false))
	}
	if thread.HasNonce() {
		noncePk, err := chain.AddressToPubkey(thread.NonceAccount)
		if err != nil {
			return nil, err
		}
		metas = append(metas, solana.NewAccountMeta(solanaKey(noncePk), true, false))
	}
	metas = append(metas,
		solana.NewAccountMeta(solanaKey(a.cfg.Executor), true, true),
		solana.NewAccountMeta(solanaKey(adminPk), false, false),
		solana.NewAccountMeta(solanaKey(registryPk), false, false),
	)

	for _, m := range substitutePayer(fiber.Accounts, a.cfg.Executor) {
		metas = append(metas, solana.NewAccountMeta(solanaKey(m.Pubkey), m.IsWritable, m.IsSigner))
	}

	return solana.NewInstruction(solanaKey(programPk), metas, fiber.Data), nil
}

func solanaKey(p chain.Pubkey) solana.PublicKey {
	return solana.PublicKeyFromBytes(p[:])
}
