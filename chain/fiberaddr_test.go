// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "testing"

func TestDeriveFiberAddressDeterministic(t *testing.T) {
	thread := Pubkey{1, 2, 3}.Address()

	a1, err := DeriveFiberAddress(thread, 0)
	if err != nil {
		t.Fatalf("DeriveFiberAddress: %v", err)
	}
	a2, err := DeriveFiberAddress(thread, 0)
	if err != nil {
		t.Fatalf("DeriveFiberAddress: %v", err)
	}
	if a1 != a2 {
		t.Fatalf("derivation not deterministic: %s != %s", a1, a2)
	}

	a3, err := DeriveFiberAddress(thread, 1)
	if err != nil {
		t.Fatalf("DeriveFiberAddress: %v", err)
	}
	if a1 == a3 {
		t.Fatalf("different fiber indices derived the same address")
	}
}

func TestDeriveFiberAddressInvalidThread(t *testing.T) {
	if _, err := DeriveFiberAddress("not-base58!!", 0); err == nil {
		t.Fatal("expected error for invalid thread address")
	}
}

func TestDeriveConfigAndRegistryAddressStable(t *testing.T) {
	c1, err := DeriveConfigAddress()
	if err != nil {
		t.Fatalf("DeriveConfigAddress: %v", err)
	}
	c2, err := DeriveConfigAddress()
	if err != nil {
		t.Fatalf("DeriveConfigAddress: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("config PDA not stable: %s != %s", c1, c2)
	}

	r, err := DeriveRegistryAddress()
	if err != nil {
		t.Fatalf("DeriveRegistryAddress: %v", err)
	}
	if r == c1 {
		t.Fatalf("config and registry PDAs collided: %s", r)
	}
}
