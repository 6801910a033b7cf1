// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

func testConfig() Config {
	return Config{MaxCapacity: 64, AccountTTL: time.Minute, FetchRetry: DefaultFetchRetryConfig()}
}

func addr(b byte) chain.Address {
	return chain.Address([]byte{b})
}

func TestPutIfNewerRejectsStaleSlot(t *testing.T) {
	c := New(testConfig(), nil)
	a := addr(1)

	require.True(t, c.PutIfNewer(a, chain.CachedAccount{Slot: 10}))
	require.False(t, c.PutIfNewer(a, chain.CachedAccount{Slot: 5}), "stale slot must be rejected")
	require.False(t, c.PutIfNewer(a, chain.CachedAccount{Slot: 10}), "equal slot must be rejected")
	require.True(t, c.PutIfNewer(a, chain.CachedAccount{Slot: 11}))

	v, ok := c.Get(a)
	require.True(t, ok)
	require.Equal(t, uint64(11), v.Slot)
}

func TestInvalidateEmitsExactlyOneNotification(t *testing.T) {
	c := New(testConfig(), nil)
	a := addr(2)
	c.PutIfNewer(a, chain.CachedAccount{Slot: 1})

	ch, cancel := c.Subscribe(4)
	defer cancel()

	c.Invalidate(a)
	c.Invalidate(a) // second call on an already-absent key must be a no-op

	select {
	case ev := <-ch:
		require.Equal(t, a, ev.Address)
		require.Equal(t, EvictionExplicit, ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected eviction notification")
	}

	select {
	case ev := <-ch:
		t.Fatalf("expected no second notification, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := c.Get(a)
	require.False(t, ok)
}

type fakeFetcher struct {
	calls     int32
	notFoundN int32
	result    chain.CachedAccount
}

func (f *fakeFetcher) FetchAccount(ctx context.Context, address chain.Address) (chain.CachedAccount, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= atomic.LoadInt32(&f.notFoundN) {
		return chain.CachedAccount{}, chain.ErrAccountNotFound
	}
	return f.result, nil
}

func TestGetOrFetchRetriesOnAccountNotFound(t *testing.T) {
	fetcher := &fakeFetcher{notFoundN: 2, result: chain.CachedAccount{Slot: 42}}
	cfg := testConfig()
	cfg.FetchRetry = FetchRetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	c := New(cfg, fetcher)

	v, err := c.GetOrFetch(context.Background(), addr(3))
	require.NoError(t, err)
	require.Equal(t, uint64(42), v.Slot)
	require.Equal(t, int32(3), atomic.LoadInt32(&fetcher.calls))
}

func TestGetOrFetchDeduplicatesConcurrentMisses(t *testing.T) {
	fetcher := &fakeFetcher{result: chain.CachedAccount{Slot: 7}}
	c := New(testConfig(), fetcher)
	a := addr(4)

	const n = 16
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.GetOrFetch(context.Background(), a)
			results <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-results)
	}

	require.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls), "concurrent misses for the same address must be coalesced")
}

func TestGetOrFetchSurfacesNonNotFoundErrorImmediately(t *testing.T) {
	fetcher := &errFetcher{}
	cfg := testConfig()
	cfg.FetchRetry = FetchRetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	c := New(cfg, fetcher)

	_, err := c.GetOrFetch(context.Background(), addr(5))
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls), "non-AccountNotFound errors must not be retried")
}

type errFetcher struct{ calls int32 }

func (f *errFetcher) FetchAccount(ctx context.Context, address chain.Address) (chain.CachedAccount, error) {
	atomic.AddInt32(&f.calls, 1)
	return chain.CachedAccount{}, context.DeadlineExceeded
}
