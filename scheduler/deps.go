// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"

	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/loadbalancer"
	"github.com/wuwei-labs/antegen-sub001/submit"
)

// AccountCache is the slice of cache.Cache an actor needs: read-through
// access to watched-account and fiber-account state. *cache.Cache
// satisfies this structurally.
type AccountCache interface {
	Get(address chain.Address) (chain.CachedAccount, bool)
	GetOrFetch(ctx context.Context, address chain.Address) (chain.CachedAccount, error)
}

// Balancer is the slice of loadbalancer.LoadBalancer an actor needs.
// *loadbalancer.LoadBalancer satisfies this structurally.
type Balancer interface {
	ShouldProcess(thread chain.Address, lastExecutor chain.Pubkey, timeSinceReady int64) loadbalancer.Decision
	RecordExecutionResult(thread chain.Address, success bool, currentTimestamp int64)
}

// Submitter is the slice of submit.Engine an actor needs. *submit.Engine
// satisfies this structurally.
type Submitter interface {
	SubmitAndConfirm(ctx context.Context, in submit.BuildInput) (submit.Result, error)
}
