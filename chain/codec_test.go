// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "testing"

func fixedAddr(b byte) Address {
	var p Pubkey
	p[0] = b
	return p.Address()
}

func TestThreadRoundTrip(t *testing.T) {
	in := Thread{
		Authority: fixedAddr(1),
		ID:        "my-thread",
		Bump:      254,
		Trigger: Trigger{
			Kind:         TriggerCron,
			CronSchedule: "0 */5 * * * *",
			JitterBound:  30,
			Skippable:    true,
		},
		Schedule: Schedule{Kind: ScheduleTimed, Prev: 100, Next: 400},
		FiberIDs: []uint32{0, 1, 2},
		DefaultFiber: &Fiber{
			ProgramID: fixedAddr(2),
			Accounts: []AccountMeta{
				{Pubkey: Pubkey{3}, IsSigner: true, IsWritable: true},
				{Pubkey: Payer, IsSigner: true, IsWritable: false},
			},
			Data:        []byte{9, 9, 9},
			PriorityFee: 5000,
		},
		LastExecutor:  Pubkey{4},
		LastErrorTime: 42,
		Paused:        false,
		NonceAccount:  fixedAddr(5),
	}

	data := EncodeThread(in)
	if !IsThreadAccount(data) {
		t.Fatalf("expected encoded data to carry the thread discriminator")
	}

	out, err := DecodeThread(fixedAddr(9), data)
	if err != nil {
		t.Fatalf("DecodeThread: %v", err)
	}

	if out.Authority != in.Authority || out.ID != in.ID || out.Bump != in.Bump {
		t.Fatalf("authority/id/bump mismatch: %+v vs %+v", out, in)
	}
	if out.Trigger.Kind != in.Trigger.Kind || out.Trigger.CronSchedule != in.Trigger.CronSchedule {
		t.Fatalf("trigger mismatch: %+v vs %+v", out.Trigger, in.Trigger)
	}
	if out.Schedule != in.Schedule {
		t.Fatalf("schedule mismatch: %+v vs %+v", out.Schedule, in.Schedule)
	}
	if len(out.FiberIDs) != 3 || out.FiberIDs[2] != 2 {
		t.Fatalf("fiber ids mismatch: %v", out.FiberIDs)
	}
	if out.DefaultFiber == nil || out.DefaultFiber.ProgramID != in.DefaultFiber.ProgramID {
		t.Fatalf("default fiber mismatch: %+v", out.DefaultFiber)
	}
	if len(out.DefaultFiber.Accounts) != 2 || out.DefaultFiber.Accounts[1].Pubkey != Payer {
		t.Fatalf("default fiber accounts mismatch: %+v", out.DefaultFiber.Accounts)
	}
	if out.NonceAccount != in.NonceAccount {
		t.Fatalf("nonce account mismatch: %q vs %q", out.NonceAccount, in.NonceAccount)
	}
}

func TestThreadRoundTripNoDefaultFiberNoNonce(t *testing.T) {
	in := Thread{
		Authority: fixedAddr(1),
		ID:        "no-default",
		Trigger:   Trigger{Kind: TriggerNow},
		Schedule:  Schedule{Kind: ScheduleTimed},
	}
	data := EncodeThread(in)
	out, err := DecodeThread(fixedAddr(9), data)
	if err != nil {
		t.Fatalf("DecodeThread: %v", err)
	}
	if out.DefaultFiber != nil {
		t.Fatalf("expected nil default fiber, got %+v", out.DefaultFiber)
	}
	if out.NonceAccount != "" {
		t.Fatalf("expected empty nonce account, got %q", out.NonceAccount)
	}
	if out.HasNonce() {
		t.Fatalf("HasNonce should be false")
	}
}

func TestFiberAccountRoundTrip(t *testing.T) {
	in := Fiber{
		ProgramID: fixedAddr(7),
		Accounts: []AccountMeta{
			{Pubkey: Pubkey{1, 2, 3}, IsSigner: false, IsWritable: true},
		},
		Data:        []byte{0xde, 0xad, 0xbe, 0xef},
		PriorityFee: 123,
	}
	data := EncodeFiberAccount(in)
	if !IsFiberAccount(data) {
		t.Fatalf("expected fiber discriminator")
	}
	out, err := DecodeFiberAccount(data)
	if err != nil {
		t.Fatalf("DecodeFiberAccount: %v", err)
	}
	if out.ProgramID != in.ProgramID || out.PriorityFee != in.PriorityFee {
		t.Fatalf("mismatch: %+v vs %+v", out, in)
	}
	if len(out.Accounts) != 1 || out.Accounts[0].Pubkey != in.Accounts[0].Pubkey {
		t.Fatalf("accounts mismatch: %+v", out.Accounts)
	}
}

func TestThreadConfigRoundTrip(t *testing.T) {
	in := ThreadConfig{
		CommissionFeeLamports: 10000,
		ExecutorFeeBps:        8000,
		CoreTeamBps:           2000,
		GracePeriodSeconds:    60,
		FeeDecaySeconds:       300,
		Paused:                true,
		Admin:                 fixedAddr(8),
	}
	data := EncodeThreadConfig(in)
	if !IsThreadConfigAccount(data) {
		t.Fatalf("expected thread config discriminator")
	}
	out, err := DecodeThreadConfig(data)
	if err != nil {
		t.Fatalf("DecodeThreadConfig: %v", err)
	}
	if *out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("expected valid fee split, got %v", err)
	}
}

func TestDecodeWrongDiscriminator(t *testing.T) {
	data := EncodeFiberAccount(Fiber{ProgramID: fixedAddr(1)})
	if _, err := DecodeThread(fixedAddr(1), data); err != ErrWrongDiscriminator {
		t.Fatalf("expected ErrWrongDiscriminator, got %v", err)
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, err := DecodeThread(fixedAddr(1), ThreadDiscriminator[:]); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}
