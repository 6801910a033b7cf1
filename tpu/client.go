// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tpu

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/wuwei-labs/antegen-sub001/log"
)

// ErrUnavailable is returned by Send once MarkUnavailable has been called,
// so callers can fall back to RPC submission. The client never calls
// MarkUnavailable itself; no send or dial error sets the flag.
var ErrUnavailable = errors.New("tpu: client unavailable, fall back to rpc")

// ErrQueueFull is returned when the internal send queue cannot accept
// another transaction.
var ErrQueueFull = errors.New("tpu: send queue full")

// Stats carries cumulative send counters, polled by the ambient metrics
// registry.
type Stats struct {
	Sent   uint64
	Failed uint64
}

// Client maintains QUIC connections to the current fanout leader set and
// exposes a fire-and-forget send path (spec §4.B). A single instance is
// shared by every caller; concurrency is bounded only by the internal
// channel, not by per-connection locking.
type Client struct {
	cfg     Config
	tracker *LeaderTracker

	queue chan []byte

	connsMu sync.Mutex
	conns   map[string]*quic.Conn

	unavailable atomic.Bool

	sent   atomic.Uint64
	failed atomic.Uint64

	stop chan struct{}
	done chan struct{}
}

// NewClient constructs a Client bound to tracker's leader set. Call Start
// to begin the background send worker.
func NewClient(cfg Config, tracker *LeaderTracker) *Client {
	return &Client{
		cfg:     cfg,
		tracker: tracker,
		queue:   make(chan []byte, cfg.WorkerChannelSize),
		conns:   make(map[string]*quic.Conn),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the background worker that drains the send queue and
// broadcasts each transaction to the current fanout leader set.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			c.closeAll()
			return
		case <-ctx.Done():
			c.closeAll()
			return
		case wireTx := <-c.queue:
			c.broadcast(ctx, wireTx)
		}
	}
}

// Send enqueues a serialized transaction for fire-and-forget broadcast to
// the fanout leader set. It does not wait for, or return, any
// acknowledgement — confirmation is the caller's responsibility via RPC
// polling (spec §4.B).
func (c *Client) Send(wireTx []byte) error {
	if c.unavailable.Load() {
		return ErrUnavailable
	}
	select {
	case c.queue <- wireTx:
		return nil
	default:
		return ErrQueueFull
	}
}

// Unavailable reports whether MarkUnavailable has been called on this
// client.
func (c *Client) Unavailable() bool {
	return c.unavailable.Load()
}

// Stats returns a snapshot of cumulative counters.
func (c *Client) Stats() Stats {
	return Stats{Sent: c.sent.Load(), Failed: c.failed.Load()}
}

func (c *Client) broadcast(ctx context.Context, wireTx []byte) {
	leaders := c.tracker.Leaders()
	if len(leaders) == 0 {
		c.failed.Add(1)
		log.Debug("tpu: no known leaders, dropping transaction")
		return
	}

	var wg sync.WaitGroup
	for _, addr := range leaders {
		addr := addr
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.sendTo(ctx, addr, wireTx); err != nil {
				c.failed.Add(1)
				log.Debug("tpu: send to leader failed", "addr", addr, "err", err)
				return
			}
			c.sent.Add(1)
		}()
	}
	wg.Wait()
}

func (c *Client) sendTo(ctx context.Context, addr string, wireTx []byte) error {
	conn, err := c.connFor(ctx, addr)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	stream, err := conn.OpenUniStreamSync(streamCtx)
	if err != nil {
		c.dropConn(addr)
		return err
	}
	defer stream.Close()

	_, err = stream.Write(wireTx)
	return err
}

// connFor returns a cached QUIC connection to addr, dialing a fresh one
// with bounded retries if none exists or the cached one has closed.
func (c *Client) connFor(ctx context.Context, addr string) (*quic.Conn, error) {
	c.connsMu.Lock()
	if conn, ok := c.conns[addr]; ok {
		c.connsMu.Unlock()
		return conn, nil
	}
	c.connsMu.Unlock()

	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{"solana-tpu"},
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxReconnectAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
		conn, err := quic.DialAddr(dialCtx, addr, tlsConf, nil)
		cancel()
		if err == nil {
			c.connsMu.Lock()
			c.conns[addr] = conn
			c.connsMu.Unlock()
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *Client) dropConn(addr string) {
	c.connsMu.Lock()
	defer c.connsMu.Unlock()
	if conn, ok := c.conns[addr]; ok {
		conn.CloseWithError(0, "")
		delete(c.conns, addr)
	}
}

func (c *Client) closeAll() {
	c.connsMu.Lock()
	defer c.connsMu.Unlock()
	for addr, conn := range c.conns {
		conn.CloseWithError(0, "")
		delete(c.conns, addr)
	}
}

// MarkUnavailable flags the client as unusable, so subsequent Send calls
// fail fast with ErrUnavailable and callers fall back to RPC submission.
func (c *Client) MarkUnavailable() {
	c.unavailable.Store(true)
}

// Shutdown stops the background worker and closes all connections.
func (c *Client) Shutdown() {
	close(c.stop)
	<-c.done
}
