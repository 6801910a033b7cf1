// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tpu

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
)

// leaderInfo is one entry of getClusterNodes, trimmed to the fields the
// tracker needs.
type leaderInfo struct {
	Pubkey  string  `json:"pubkey"`
	TPUQuic *string `json:"tpuQuic"`
}

// LeaderTracker maintains the set of QUIC addresses for the next
// cfg.LeadersFanout slot leaders, refreshed on a timer and nudged by a
// slot-subscription websocket feed (spec §4.B "refreshed from a
// leader-schedule feed that tracks the current slot via websocket").
type LeaderTracker struct {
	cfg  Config
	pool *rpcpool.Pool

	mu      sync.RWMutex
	leaders []string // QUIC dial addresses, in fanout order

	stop chan struct{}
	done chan struct{}
}

// NewLeaderTracker constructs a tracker. Call Start to begin refreshing.
func NewLeaderTracker(cfg Config, pool *rpcpool.Pool) *LeaderTracker {
	return &LeaderTracker{
		cfg:  cfg,
		pool: pool,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Leaders returns a snapshot of the current fanout leader addresses.
func (t *LeaderTracker) Leaders() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.leaders))
	copy(out, t.leaders)
	return out
}

// Start launches the refresh loop and the slot-subscription nudge feed. It
// blocks until the initial refresh has been attempted, so the first send
// sees that refresh's leader set. If the initial refresh fails, the set
// starts empty and Start still returns nil.
func (t *LeaderTracker) Start(ctx context.Context) error {
	if err := t.refresh(ctx); err != nil {
		log.Warn("tpu: initial leader schedule fetch failed, starting empty", "err", err)
	}

	go t.refreshLoop(ctx)
	go t.subscribeLoop(ctx)
	return nil
}

func (t *LeaderTracker) refreshLoop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.cfg.LeaderScheduleRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.refresh(ctx); err != nil {
				log.Debug("tpu: leader schedule refresh failed", "err", err)
			}
		}
	}
}

// subscribeLoop holds a slotSubscribe websocket open and triggers an
// immediate refresh on every notification, reconnecting with backoff on
// disconnect (same shape as the ingest rpcsub adapter, spec §4.D variant 3).
func (t *LeaderTracker) subscribeLoop(ctx context.Context) {
	backoff := 500 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := t.runSubscription(ctx); err != nil {
			log.Debug("tpu: slot subscription dropped, reconnecting", "err", err, "backoff", backoff)
		}

		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (t *LeaderTracker) runSubscription(ctx context.Context) error {
	if t.cfg.WebsocketURL == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.cfg.WebsocketURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "slotSubscribe",
		"params":  []interface{}{},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	for {
		var msg json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if err := t.refresh(ctx); err != nil {
			log.Debug("tpu: leader schedule refresh after slot notification failed", "err", err)
		}
	}
}

func (t *LeaderTracker) refresh(ctx context.Context) error {
	var slotReply uint64
	if err := t.pool.Call(ctx, rpcpool.RoleDatasource, "getSlot", nil, &slotReply); err != nil {
		return err
	}

	var slotLeaders []string
	if err := t.pool.Call(ctx, rpcpool.RoleDatasource, "getSlotLeaders", []interface{}{slotReply, t.cfg.LeadersFanout}, &slotLeaders); err != nil {
		return err
	}

	var nodes []leaderInfo
	if err := t.pool.Call(ctx, rpcpool.RoleDatasource, "getClusterNodes", nil, &nodes); err != nil {
		return err
	}

	addrByPubkey := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n.TPUQuic != nil && *n.TPUQuic != "" {
			addrByPubkey[n.Pubkey] = *n.TPUQuic
		}
	}

	seen := make(map[string]struct{}, len(slotLeaders))
	addrs := make([]string, 0, len(slotLeaders))
	for _, pk := range slotLeaders {
		addr, ok := addrByPubkey[pk]
		if !ok {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}

	t.mu.Lock()
	t.leaders = addrs
	t.mu.Unlock()
	return nil
}

// Stop halts the refresh and subscription loops.
func (t *LeaderTracker) Stop() {
	close(t.stop)
	<-t.done
}
