// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"

	"github.com/wuwei-labs/antegen-sub001/log"
)

// LoadKeypair loads the executor's signing key from a Solana-style JSON
// keypair file (a byte-array encoding of the 64-byte secret key). If no
// file exists at path, a fresh keypair is generated and written there, so
// a first run never needs an out-of-band provisioning step.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read keypair file %s: %w", path, err)
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: failed to stat keypair file %s: %w", path, err)
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("config: failed to generate keypair: %w", err)
	}
	if err := key.SaveToFile(path); err != nil {
		return nil, fmt.Errorf("config: failed to write keypair file %s: %w", path, err)
	}
	log.Info("config: generated new executor keypair", "path", path, "pubkey", key.PublicKey())
	return key, nil
}
