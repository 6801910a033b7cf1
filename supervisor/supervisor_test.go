// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wuwei-labs/antegen-sub001/cache"
	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
)

// TestMain uses goleak to verify tests in this package do not leak
// unexpected goroutines (the rpc pool and health checker each own one).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type json2Response struct {
	Result interface{} `json:"result"`
	Error  interface{} `json:"error"`
	ID     uint64      `json:"id"`
}

func newStubRPCServer(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     uint64 `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		require.True(t, ok, "unexpected method %s", req.Method)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(json2Response{Result: result, ID: req.ID}))
	}))
}

func newTestPool(t *testing.T, url string) *rpcpool.Pool {
	t.Helper()
	cfg := rpcpool.Config{
		Endpoints:      []rpcpool.EndpointConfig{{URL: url, Role: rpcpool.RoleBoth}},
		CircuitBreaker: rpcpool.DefaultCircuitBreakerConfig(),
		RateLimit:      rpcpool.RateLimitConfig{RequestsPerSecond: 1000, BurstCapacity: 1000},
		HealthCheck:    rpcpool.HealthCheckConfig{Interval: time.Hour, Timeout: time.Second, UnhealthyThreshold: 100},
		Retry:          rpcpool.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, Multiplier: 1, MaxBackoff: time.Millisecond, JitterFraction: 0},
	}
	pool := rpcpool.New(cfg)
	t.Cleanup(pool.Shutdown)
	return pool
}

func TestRPCFetcherDecodesExistingAccount(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	srv := newStubRPCServer(t, map[string]interface{}{
		"getAccountInfo": map[string]interface{}{
			"context": map[string]interface{}{"slot": 42},
			"value": map[string]interface{}{
				"data":     []interface{}{payload, "base64"},
				"owner":    "11111111111111111111111111111111",
				"lamports": 1000,
			},
		},
	})
	defer srv.Close()

	pool := newTestPool(t, srv.URL)
	fetcher := &rpcFetcher{pool: pool}

	acct, err := fetcher.FetchAccount(context.Background(), chain.Address("Addr111"))
	require.NoError(t, err)
	require.Equal(t, uint64(42), acct.Slot)
	require.Equal(t, []byte("hello"), acct.Data)
	require.Equal(t, uint64(1000), acct.Lamports)
}

func TestRPCFetcherReturnsAccountNotFoundOnNullValue(t *testing.T) {
	srv := newStubRPCServer(t, map[string]interface{}{
		"getAccountInfo": map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   nil,
		},
	})
	defer srv.Close()

	pool := newTestPool(t, srv.URL)
	fetcher := &rpcFetcher{pool: pool}

	_, err := fetcher.FetchAccount(context.Background(), chain.Address("Addr111"))
	require.True(t, cache.IsAccountNotFound(err))
}

func TestEvictionReasonLabel(t *testing.T) {
	require.Equal(t, "explicit", evictionReasonLabel(cache.EvictionExplicit))
	require.Equal(t, "ttl", evictionReasonLabel(cache.EvictionTTL))
	require.Equal(t, "capacity", evictionReasonLabel(cache.EvictionCapacity))
}
