// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpcsub is the raw-RPC ingestion adapter variant (spec §4.D
// variant 3): programSubscribe for the thread program plus
// accountSubscribe for the clock sysvar over a single websocket
// connection, reconnecting with capped exponential backoff on disconnect.
package rpcsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/ingest"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
)

// Config configures the adapter (spec §6, `datasources` section).
type Config struct {
	WebsocketURL   string
	ProgramID      chain.Address
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig mirrors the reference adapter's reconnect defaults.
func DefaultConfig() Config {
	return Config{InitialBackoff: 500 * time.Millisecond, MaxBackoff: 30 * time.Second}
}

type subKind int

const (
	subProgram subKind = iota
	subClock
)

// Source implements ingest.Source.
type Source struct {
	cfg  Config
	pool *rpcpool.Pool

	stop chan struct{}
	done chan struct{}
}

// New constructs the raw-RPC adapter. pool is used only for the initial
// clock seed (spec §4.D); live updates arrive over the websocket.
func New(cfg Config, pool *rpcpool.Pool) *Source {
	return &Source{cfg: cfg, pool: pool, stop: make(chan struct{}), done: make(chan struct{})}
}

var _ ingest.Source = (*Source)(nil)

func (s *Source) Start(ctx context.Context, out chan<- chain.AccountUpdate) error {
	if err := ingest.SeedClock(ctx, s.pool, out); err != nil {
		log.Warn("rpcsub: initial clock seed failed", "err", err)
	}
	go s.run(ctx, out)
	return nil
}

func (s *Source) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

func (s *Source) run(ctx context.Context, out chan<- chain.AccountUpdate) {
	defer close(s.done)
	bo := cbackoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialBackoff
	bo.MaxInterval = s.cfg.MaxBackoff

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		err := s.subscribeOnce(ctx, out)
		if err == nil {
			return // context canceled cleanly
		}
		wait := bo.NextBackOff()
		log.Warn("rpcsub: subscription dropped, reconnecting", "err", err, "backoff", wait)

		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type subscribeAck struct {
	ID     int   `json:"id"`
	Result int64 `json:"result"`
}

type notification struct {
	Method string `json:"method"`
	Params struct {
		Subscription int64           `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type accountValue struct {
	Lamports uint64        `json:"lamports"`
	Owner    string        `json:"owner"`
	Data     []interface{} `json:"data"`
}

type accountNotificationResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value accountValue `json:"value"`
}

type programNotificationResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Pubkey  string       `json:"pubkey"`
		Account accountValue `json:"account"`
	} `json:"value"`
}

func (s *Source) subscribeOnce(ctx context.Context, out chan<- chain.AccountUpdate) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.WebsocketURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeRequest{
		JSONRPC: "2.0", ID: 1, Method: "programSubscribe",
		Params: []interface{}{string(s.cfg.ProgramID), map[string]interface{}{"encoding": "base64", "commitment": "confirmed"}},
	}); err != nil {
		return err
	}
	if err := conn.WriteJSON(subscribeRequest{
		JSONRPC: "2.0", ID: 2, Method: "accountSubscribe",
		Params: []interface{}{string(chain.ClockSysvarAddress), map[string]interface{}{"encoding": "base64", "commitment": "confirmed"}},
	}); err != nil {
		return err
	}

	var mu sync.Mutex
	kindBySub := make(map[int64]subKind)

	closed := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(closed)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ack subscribeAck
		if err := json.Unmarshal(raw, &ack); err == nil && ack.ID != 0 {
			mu.Lock()
			switch ack.ID {
			case 1:
				kindBySub[ack.Result] = subProgram
			case 2:
				kindBySub[ack.Result] = subClock
			}
			mu.Unlock()
			continue
		}

		var n notification
		if err := json.Unmarshal(raw, &n); err != nil {
			log.Debug("rpcsub: unparseable message", "err", err)
			continue
		}

		mu.Lock()
		kind, ok := kindBySub[n.Params.Subscription]
		mu.Unlock()
		if !ok {
			continue
		}

		update, err := decodeNotification(kind, n.Params.Result, s.cfg.ProgramID)
		if err != nil {
			log.Debug("rpcsub: failed to decode notification", "err", err)
			continue
		}

		select {
		case out <- update:
		case <-ctx.Done():
			return nil
		}
	}
}

func decodeNotification(kind subKind, raw json.RawMessage, programID chain.Address) (chain.AccountUpdate, error) {
	switch kind {
	case subClock:
		var r accountNotificationResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return chain.AccountUpdate{}, err
		}
		data, err := decodeBase64Pair(r.Value.Data)
		if err != nil {
			return chain.AccountUpdate{}, err
		}
		return chain.AccountUpdate{Address: chain.ClockSysvarAddress, Owner: chain.Address(r.Value.Owner), Data: data, Slot: r.Context.Slot}, nil
	default:
		var r programNotificationResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return chain.AccountUpdate{}, err
		}
		data, err := decodeBase64Pair(r.Value.Account.Data)
		if err != nil {
			return chain.AccountUpdate{}, err
		}
		return chain.AccountUpdate{Address: chain.Address(r.Value.Pubkey), Owner: programID, Data: data, Slot: r.Context.Slot}, nil
	}
}

func decodeBase64Pair(data []interface{}) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	s, _ := data[0].(string)
	return base64.StdEncoding.DecodeString(s)
}
