// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package plugin is the embedded-plugin ingestion adapter variant (spec
// §4.D variant 1): updates arrive synchronously from a host validator
// process and must be filtered and forwarded without ever blocking the
// caller. The host boundary is a Rust shim outside this module that
// forwards updates over a Unix domain socket (see cgo.go); this file holds
// the adapter logic, entered through PushUpdate.
package plugin

import (
	"context"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/ingest"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
)

// Config configures which accounts the plugin forwards.
type Config struct {
	ProgramID   chain.Address
	ChannelSize int
}

// Source implements ingest.Source for the embedded-plugin variant. Unlike
// the other variants it has no background connection of its own: the host
// validator calls PushUpdate synchronously on its own threads, so Start
// only performs the initial clock seed.
type Source struct {
	cfg  Config
	pool *rpcpool.Pool
	out  chan<- chain.AccountUpdate
}

func New(cfg Config, pool *rpcpool.Pool) *Source {
	return &Source{cfg: cfg, pool: pool}
}

var _ ingest.Source = (*Source)(nil)

func (s *Source) Start(ctx context.Context, out chan<- chain.AccountUpdate) error {
	s.out = out
	return ingest.SeedClock(ctx, s.pool, out)
}

func (s *Source) Stop() {}

// PushUpdate is called by the host-boundary shim for every account write
// the validator observes. It filters to accounts owned by the configured
// program or equal to the clock sysvar (spec §4.D variant 1) and forwards
// on a non-blocking send: a full channel is logged and dropped, since the
// plugin must never block the host validator's accounts-db write path.
func (s *Source) PushUpdate(update chain.AccountUpdate) {
	if update.Owner != s.cfg.ProgramID && update.Address != chain.ClockSysvarAddress {
		return
	}
	select {
	case s.out <- update:
	default:
		log.Warn("plugin: channel full, dropping account update", "address", update.Address)
	}
}
