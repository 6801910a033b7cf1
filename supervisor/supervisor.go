// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supervisor is the root supervisor (spec §4.I): it builds every
// component in dependency order, waits for the cluster to become
// reachable before spawning ingestion (the connection-waiter / readiness
// gate supplemented feature, grounded on
// crates/client/src/utils/connection_waiter.rs), and drives graceful
// shutdown on either of the two signals a process is conventionally
// asked to stop with.
package supervisor

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/wuwei-labs/antegen-sub001/cache"
	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/config"
	"github.com/wuwei-labs/antegen-sub001/ingest"
	"github.com/wuwei-labs/antegen-sub001/ingest/carbon"
	"github.com/wuwei-labs/antegen-sub001/ingest/plugin"
	"github.com/wuwei-labs/antegen-sub001/ingest/rpcsub"
	"github.com/wuwei-labs/antegen-sub001/loadbalancer"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/metrics"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
	"github.com/wuwei-labs/antegen-sub001/staging"
	"github.com/wuwei-labs/antegen-sub001/submit"
	"github.com/wuwei-labs/antegen-sub001/tpu"
)

// healthyPollInterval is how often WaitHealthy retries getVersion against
// the pool during start-up.
const healthyPollInterval = 2 * time.Second

// healthyTimeout bounds the overall start-up wait, mirroring the
// reference connection waiter's five-minute ceiling.
const healthyTimeout = 5 * time.Minute

// metricsPollInterval is how often the ambient gauges are refreshed from
// each component's own accessors.
const metricsPollInterval = 10 * time.Second

// Supervisor owns every process-lifetime component and the order in
// which they are built, started, and torn down.
type Supervisor struct {
	cfg     *config.Config
	signer  solana.PrivateKey
	metrics *metrics.Registry

	pool          *rpcpool.Pool
	cacheInst     *cache.Cache
	leaderTracker *tpu.LeaderTracker
	tpuClient     *tpu.Client
	engine        *submit.Engine
	balancer      *loadbalancer.LoadBalancer
	index         *staging.Index
	source        ingest.Source

	lastTPUSent   uint64
	lastTPUFailed uint64
}

// New constructs a Supervisor. Call Run to build every component and
// drive the process until shutdown.
func New(cfg *config.Config, signer solana.PrivateKey, reg *metrics.Registry) *Supervisor {
	return &Supervisor{cfg: cfg, signer: signer, metrics: reg}
}

// Run builds every component in dependency order (pool → cache+tpu →
// submission engine → staging index → ingestion adapter), blocks until a
// shutdown signal or ctx is canceled, then tears down in reverse order:
// ingestion first, then the staging index drained up to its actor
// deadline, then the TPU client and pool (spec §4.I).
func (s *Supervisor) Run(parentCtx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	s.pool = rpcpool.New(s.cfg.RPCPoolConfig())

	healthCtx, cancelHealth := context.WithTimeout(ctx, healthyTimeout)
	err := s.pool.WaitHealthy(healthCtx, healthyPollInterval)
	cancelHealth()
	if err != nil {
		s.pool.Shutdown()
		return fmt.Errorf("supervisor: no healthy rpc endpoint within %s: %w", healthyTimeout, err)
	}
	log.Info("supervisor: rpc pool healthy")

	s.cacheInst = cache.New(s.cfg.CacheConfig(), &rpcFetcher{pool: s.pool})

	tpuEnabled := false
	if tpuCfg, ok := s.cfg.TPUClientConfig(); ok {
		s.leaderTracker = tpu.NewLeaderTracker(tpuCfg, s.pool)
		if err := s.leaderTracker.Start(ctx); err != nil {
			log.Warn("supervisor: leader tracker start reported an error, continuing degraded", "err", err)
		}
		s.tpuClient = tpu.NewClient(tpuCfg, s.leaderTracker)
		s.tpuClient.Start(ctx)
		tpuEnabled = true
		log.Info("supervisor: tpu client started")
	} else {
		log.Info("supervisor: tpu disabled by configuration, rpc-only submission")
	}

	s.engine = submit.New(s.cfg.SubmitConfig(tpuEnabled), s.pool, s.tpuClient, s.signer)

	executorPubkey := chain.Pubkey(s.signer.PublicKey())
	s.balancer = loadbalancer.New(executorPubkey, s.cfg.LoadBalancerConfig())

	actorCfg := s.cfg.SchedulerConfig(executorPubkey)
	stagingCfg := s.cfg.StagingConfig(actorCfg)
	configStore := chain.NewConfigStore()
	s.index = staging.New(stagingCfg, staging.Deps{
		Cache:       s.cacheInst,
		Balancer:    s.balancer,
		Submitter:   s.engine,
		ConfigStore: configStore,
	})

	evictions, cancelEvictionsFn := s.cacheInst.Subscribe(256)
	var cancelOnce sync.Once
	cancelEvictions := func() { cancelOnce.Do(cancelEvictionsFn) }
	defer cancelEvictions()
	evictionsDone := make(chan struct{})
	go s.forwardEvictions(evictions, evictionsDone)

	source, err := s.buildSource()
	if err != nil {
		return fmt.Errorf("supervisor: building ingestion adapter: %w", err)
	}
	s.source = source

	updates := make(chan chain.AccountUpdate, stagingCfg.UpdateChannelBuffer)
	if err := s.source.Start(ctx, updates); err != nil {
		return fmt.Errorf("supervisor: starting ingestion adapter: %w", err)
	}
	log.Info("supervisor: ingestion started", "kind", s.cfg.Datasources.Kind)

	indexDone := make(chan struct{})
	go func() {
		defer close(indexDone)
		s.index.Run(context.Background(), updates)
	}()

	metricsDone := make(chan struct{})
	go s.metricsLoop(ctx, metricsDone)

	<-ctx.Done()
	log.Info("supervisor: shutdown signal received, draining")

	s.source.Stop()
	close(updates)
	<-indexDone

	s.index.Stop()
	cancelEvictions()
	<-evictionsDone
	<-metricsDone

	if s.tpuClient != nil {
		s.tpuClient.Shutdown()
	}
	if s.leaderTracker != nil {
		s.leaderTracker.Stop()
	}
	s.pool.Shutdown()

	log.Info("supervisor: shutdown complete")
	return nil
}

func (s *Supervisor) forwardEvictions(evictions <-chan cache.Eviction, done chan<- struct{}) {
	defer close(done)
	for e := range evictions {
		s.metrics.CacheEvictionsTotal.WithLabelValues(evictionReasonLabel(e.Reason)).Inc()
		s.index.Evict(e.Address)
	}
}

func evictionReasonLabel(r cache.EvictionReason) string {
	switch r {
	case cache.EvictionExplicit:
		return "explicit"
	case cache.EvictionTTL:
		return "ttl"
	default:
		return "capacity"
	}
}

func (s *Supervisor) metricsLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(metricsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.CacheSize.Set(float64(s.cacheInst.Len()))
			s.metrics.ActorsActive.Set(float64(s.index.ActorCount()))
			lbStats := s.balancer.Stats()
			atCapacity := 0.0
			if lbStats.AtCapacity {
				atCapacity = 1
			}
			s.metrics.LoadBalancerAtCapacity.Set(atCapacity)
			if s.tpuClient != nil {
				tpuStats := s.tpuClient.Stats()
				s.metrics.TPUSendsTotal.Add(float64(tpuStats.Sent - s.lastTPUSent))
				s.metrics.TPUSendsFailed.Add(float64(tpuStats.Failed - s.lastTPUFailed))
				s.lastTPUSent, s.lastTPUFailed = tpuStats.Sent, tpuStats.Failed
				s.metrics.TPULeaderCount.Set(float64(len(s.leaderTracker.Leaders())))
			}
		}
	}
}

// buildSource constructs the ingestion adapter variant named by
// Datasources.Kind (spec §4.D).
func (s *Supervisor) buildSource() (ingest.Source, error) {
	switch s.cfg.Datasources.Kind {
	case "plugin":
		return plugin.New(s.cfg.PluginSourceConfig(), s.pool), nil
	case "carbon":
		return carbon.New(s.cfg.CarbonSourceConfig(), s.pool), nil
	case "rpcsub", "":
		return rpcsub.New(s.cfg.RPCSubSourceConfig(), s.pool), nil
	default:
		return nil, fmt.Errorf("unknown datasources.kind %q", s.cfg.Datasources.Kind)
	}
}

// rpcFetcher implements cache.Fetcher over the shared rpcpool.Pool,
// translating a null getAccountInfo result into chain.ErrAccountNotFound
// so Cache.GetOrFetch applies its bounded retry policy (spec §4.C, §7
// class 8) instead of surfacing the miss immediately.
type rpcFetcher struct {
	pool *rpcpool.Pool
}

func (f *rpcFetcher) FetchAccount(ctx context.Context, address chain.Address) (chain.CachedAccount, error) {
	var reply struct {
		Value *struct {
			Data     []string `json:"data"`
			Owner    string   `json:"owner"`
			Lamports uint64   `json:"lamports"`
		} `json:"value"`
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
	}
	params := []interface{}{string(address), map[string]interface{}{"encoding": "base64"}}
	if err := f.pool.Call(ctx, rpcpool.RoleDatasource, "getAccountInfo", params, &reply); err != nil {
		return chain.CachedAccount{}, err
	}
	if reply.Value == nil {
		return chain.CachedAccount{}, chain.ErrAccountNotFound
	}

	var data []byte
	if len(reply.Value.Data) > 0 {
		decoded, err := base64.StdEncoding.DecodeString(reply.Value.Data[0])
		if err != nil {
			return chain.CachedAccount{}, err
		}
		data = decoded
	}

	return chain.CachedAccount{
		Data:     data,
		Slot:     reply.Context.Slot,
		Owner:    chain.Address(reply.Value.Owner),
		Lamports: reply.Value.Lamports,
	}, nil
}
