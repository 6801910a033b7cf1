// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache is the unified account cache (spec §4.C): a bounded,
// TTL-bounded, LRU map from address to the latest observed account state.
// It is the sole deduplication primitive for ingestion and the read-through
// path for on-demand fetches.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/log"
)

// Fetcher reads an account through the RPC pool on a cache miss. It must
// return ErrAccountNotFound (via errors.Is) for the "account not yet
// created" case so Cache can apply the bounded retry policy from spec
// §4.C / §7 class 8.
type Fetcher interface {
	FetchAccount(ctx context.Context, address chain.Address) (chain.CachedAccount, error)
}

// EvictionReason distinguishes why an entry left the cache, for metrics
// and logging only — the notification contract is otherwise identical.
type EvictionReason int

const (
	EvictionExplicit EvictionReason = iota
	EvictionCapacity
	EvictionTTL
)

// Eviction is delivered on the broadcast channel returned by Subscribe.
type Eviction struct {
	Address chain.Address
	Reason  EvictionReason
}

// Config configures capacity and TTL (spec §6, `cache` section).
type Config struct {
	MaxCapacity   int
	AccountTTL    time.Duration
	FetchRetry    FetchRetryConfig
}

// FetchRetryConfig bounds the get_or_fetch retry loop for the expected
// AccountNotFound race on just-created accounts.
type FetchRetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultFetchRetryConfig is the account-creation race tolerance: five
// attempts, backing off from 200ms and doubling up to 2s.
func DefaultFetchRetryConfig() FetchRetryConfig {
	return FetchRetryConfig{MaxAttempts: 5, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

// Cache is the unified account cache. All methods are safe for concurrent
// use; put_if_newer is the sole write path and is atomic with respect to
// the stored slot (spec §8 "Cache monotonicity").
type Cache struct {
	cfg     Config
	fetcher Fetcher

	mu    sync.RWMutex
	inner *lru.LRU[chain.Address, chain.CachedAccount]

	subs   map[chan Eviction]struct{}
	subsMu sync.Mutex

	group singleflight.Group

	// invalidating holds the address Invalidate is removing, so the LRU's
	// eviction callback can tag that removal as explicit.
	invalidating atomic.Pointer[chain.Address]
}

// New constructs a Cache. The underlying LRU's single eviction callback
// routes through notifyEviction, so every eviction path — explicit,
// capacity-driven, or TTL-driven — yields exactly one notification (spec
// §4.C invariant iii). Removals made by Invalidate are tagged
// EvictionExplicit; capacity and TTL evictions are both tagged
// EvictionCapacity, and EvictionTTL is never reported.
func New(cfg Config, fetcher Fetcher) *Cache {
	c := &Cache{
		cfg:     cfg,
		fetcher: fetcher,
		subs:    make(map[chan Eviction]struct{}),
	}
	c.inner = lru.NewLRU[chain.Address, chain.CachedAccount](cfg.MaxCapacity, func(key chain.Address, _ chain.CachedAccount) {
		reason := EvictionCapacity
		if p := c.invalidating.Load(); p != nil && *p == key {
			reason = EvictionExplicit
		}
		c.notifyEviction(Eviction{Address: key, Reason: reason})
	}, cfg.AccountTTL)
	return c
}

// Subscribe returns a channel that receives every eviction notification.
// The caller must drain it; a full channel drops the notification (it is
// diagnostic, not authoritative — staging re-derives state from the next
// observed AccountUpdate regardless).
func (c *Cache) Subscribe(buffer int) (ch chan Eviction, cancel func()) {
	ch = make(chan Eviction, buffer)
	c.subsMu.Lock()
	c.subs[ch] = struct{}{}
	c.subsMu.Unlock()
	return ch, func() {
		c.subsMu.Lock()
		delete(c.subs, ch)
		c.subsMu.Unlock()
		close(ch)
	}
}

func (c *Cache) notifyEviction(e Eviction) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- e:
		default:
			log.Warn("cache eviction subscriber backpressure, dropping notification", "address", e.Address)
		}
	}
}

// PutIfNewer inserts account only if it is strictly newer (by slot) than
// whatever is currently stored, per spec §4.C. It is the sole dedup
// primitive: ingestion adapters must route every observed account through
// this method and nothing else.
func (c *Cache) PutIfNewer(address chain.Address, account chain.CachedAccount) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.inner.Get(address)
	if ok && account.Slot <= existing.Slot {
		return false
	}
	c.inner.Add(address, account)
	return true
}

// Get returns a snapshot of the cached account, or false on miss.
func (c *Cache) Get(address chain.Address) (chain.CachedAccount, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Get(address)
}

// Invalidate removes address and emits exactly one eviction notification.
func (c *Cache) Invalidate(address chain.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidating.Store(&address)
	c.inner.Remove(address)
	c.invalidating.Store(nil)
}

// GetOrFetch returns the cached value, or on miss issues a bounded-retry
// RPC read through the Fetcher. Concurrent misses for the same address are
// coalesced via singleflight so only one RPC read is in flight at a time
// (spec §4.C, §5 "Suspension points").
func (c *Cache) GetOrFetch(ctx context.Context, address chain.Address) (chain.CachedAccount, error) {
	if v, ok := c.Get(address); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(string(address), func() (interface{}, error) {
		if v, ok := c.Get(address); ok {
			return v, nil
		}
		acct, err := c.fetchWithRetry(ctx, address)
		if err != nil {
			return chain.CachedAccount{}, err
		}
		c.PutIfNewer(address, acct)
		return acct, nil
	})
	if err != nil {
		return chain.CachedAccount{}, err
	}
	return v.(chain.CachedAccount), nil
}

func (c *Cache) fetchWithRetry(ctx context.Context, address chain.Address) (chain.CachedAccount, error) {
	rc := c.cfg.FetchRetry
	if rc.MaxAttempts <= 0 {
		rc = DefaultFetchRetryConfig()
	}
	backoff := rc.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		acct, err := c.fetcher.FetchAccount(ctx, address)
		if err == nil {
			return acct, nil
		}
		lastErr = err
		if !IsAccountNotFound(err) {
			// Non-AccountNotFound errors surface immediately (spec §7 class 8).
			return chain.CachedAccount{}, err
		}
		if attempt == rc.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return chain.CachedAccount{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > rc.MaxBackoff {
			backoff = rc.MaxBackoff
		}
	}
	return chain.CachedAccount{}, lastErr
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Len()
}
