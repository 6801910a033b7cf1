// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ingest defines the account-update ingestion capability (spec
// §4.D) and its concrete adapters: an embedded-plugin receiver, an
// indexer (Carbon-style) gRPC subscriber, and a raw RPC
// programSubscribe/accountSubscribe adapter. Every variant feeds the same
// shared channel of chain.AccountUpdate.
package ingest

import (
	"context"
	"encoding/base64"

	"github.com/mr-tron/base58"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
)

// Source is the capability every ingestion adapter variant implements
// (spec §4.D). Start must seed initial clock state before returning, and
// Stop must be idempotent.
type Source interface {
	Start(ctx context.Context, out chan<- chain.AccountUpdate) error
	Stop()
}

// SeedClock fetches the clock sysvar once through pool and emits it on
// out, per spec §4.D "All variants must seed initial state on start by
// fetching the clock sysvar once via the pool and emitting it." Every
// concrete adapter calls this at the start of its Start method.
func SeedClock(ctx context.Context, pool *rpcpool.Pool, out chan<- chain.AccountUpdate) error {
	var reply struct {
		Value struct {
			Data  []string `json:"data"`
			Owner string   `json:"owner"`
		} `json:"value"`
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
	}

	params := []interface{}{
		string(chain.ClockSysvarAddress),
		map[string]interface{}{"encoding": "base64"},
	}
	if err := pool.Call(ctx, rpcpool.RoleDatasource, "getAccountInfo", params, &reply); err != nil {
		return err
	}
	if len(reply.Value.Data) == 0 {
		log.Warn("ingest: clock sysvar not found during seed")
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(reply.Value.Data[0])
	if err != nil {
		return err
	}

	update := chain.AccountUpdate{
		Address: chain.ClockSysvarAddress,
		Owner:   chain.Address(reply.Value.Owner),
		Data:    data,
		Slot:    reply.Context.Slot,
	}
	select {
	case out <- update:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// decodeAccountData decodes a Solana RPC account payload, which is either
// a base64 string wrapped as [data, "base64"] or a raw base58 string
// depending on the endpoint's configured encoding.
func decodeAccountData(raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, nil
		}
		s, _ := v[0].(string)
		return base64.StdEncoding.DecodeString(s)
	case string:
		return base58.Decode(v)
	default:
		return nil, nil
	}
}
