// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config is the viper-backed configuration loader for the
// executor's single startup file (spec §6 "Configuration"). It decodes
// the file's sections into plain structs and exposes one Build method per
// downstream package, so supervisor wiring never touches viper directly.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/wuwei-labs/antegen-sub001/cache"
	"github.com/wuwei-labs/antegen-sub001/chain"
	"github.com/wuwei-labs/antegen-sub001/ingest/carbon"
	"github.com/wuwei-labs/antegen-sub001/ingest/plugin"
	"github.com/wuwei-labs/antegen-sub001/ingest/rpcsub"
	"github.com/wuwei-labs/antegen-sub001/loadbalancer"
	"github.com/wuwei-labs/antegen-sub001/rpcpool"
	"github.com/wuwei-labs/antegen-sub001/scheduler"
	"github.com/wuwei-labs/antegen-sub001/staging"
	"github.com/wuwei-labs/antegen-sub001/submit"
	"github.com/wuwei-labs/antegen-sub001/tpu"
)

// ErrNoEndpoints is returned when the `rpc` section is empty (spec §7
// class 1 "missing endpoint").
var ErrNoEndpoints = errors.New("config: rpc section must list at least one endpoint")

// ExecutorConfig is the `executor` section.
type ExecutorConfig struct {
	KeypairPath     string `mapstructure:"keypair_path"`
	ForgoCommission bool   `mapstructure:"forgo_commission"`
	// AdminAccount is the thread config admin account baked into every
	// spawned actor's built thread_exec instruction (spec §4.F step 5).
	// Not listed among spec §6's required executor fields, but an actor
	// cannot build a single instruction without it, so it is read here
	// rather than re-derived per thread.
	AdminAccount string `mapstructure:"admin_account"`
}

// EndpointConfig is one entry of the `rpc` array.
type EndpointConfig struct {
	URL      string `mapstructure:"url"`
	WSURL    string `mapstructure:"ws_url"`
	Priority int    `mapstructure:"priority"`
	Role     string `mapstructure:"role"`
}

// TPUConfig is the `tpu` section.
type TPUConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	WebsocketURL      string `mapstructure:"websocket_url"`
	NumConnections    int    `mapstructure:"num_connections"`
	LeadersFanout     int    `mapstructure:"leaders_fanout"`
	WorkerChannelSize int    `mapstructure:"worker_channel_size"`
}

// CacheConfig is the `cache` section.
type CacheConfig struct {
	MaxCapacity    int   `mapstructure:"max_capacity"`
	AccountTTLSecs int64 `mapstructure:"account_ttl_secs"`
}

// LoadBalancerConfig is the `load_balancer` section. GracePeriodSecs and
// EvictionBufferSecs are decoded from the file but not read by any
// component; the balancer itself only consumes CapacityThreshold and
// TakeoverDelaySeconds (spec §4.G).
type LoadBalancerConfig struct {
	GracePeriodSecs      int64  `mapstructure:"grace_period_secs"`
	EvictionBufferSecs   int64  `mapstructure:"eviction_buffer_secs"`
	CapacityThreshold    uint32 `mapstructure:"capacity_threshold"`
	TakeoverDelaySeconds int64  `mapstructure:"takeover_delay_seconds"`
}

// ProcessorConfig is the `processor` section.
type ProcessorConfig struct {
	MaxConcurrentThreads  int     `mapstructure:"max_concurrent_threads"`
	SimulateBeforeSubmit  bool    `mapstructure:"simulate_before_submit"`
	ComputeUnitMultiplier float64 `mapstructure:"compute_unit_multiplier"`
	MaxComputeUnits       uint32  `mapstructure:"max_compute_units"`
}

// DatasourcesConfig is the `datasources` section. Kind selects which
// ingest adapter variant the supervisor constructs; the remaining fields
// are read by whichever variant Kind names.
type DatasourcesConfig struct {
	Kind         string `mapstructure:"kind"` // "plugin", "carbon", or "rpcsub"
	ProgramID    string `mapstructure:"program_id"`
	Commitment   string `mapstructure:"commitment"`
	Endpoint     string `mapstructure:"endpoint"`      // carbon
	Token        string `mapstructure:"token"`         // carbon
	UseTLS       bool   `mapstructure:"use_tls"`       // carbon
	WebsocketURL string `mapstructure:"websocket_url"` // rpcsub
	ChannelSize  int    `mapstructure:"channel_size"`  // plugin
}

// Config is the fully decoded configuration file.
type Config struct {
	Executor     ExecutorConfig     `mapstructure:"executor"`
	RPC          []EndpointConfig   `mapstructure:"rpc"`
	RPCStrategy  string             `mapstructure:"rpc_strategy"`
	TPU          TPUConfig          `mapstructure:"tpu"`
	Cache        CacheConfig        `mapstructure:"cache"`
	LoadBalancer LoadBalancerConfig `mapstructure:"load_balancer"`
	Processor    ProcessorConfig    `mapstructure:"processor"`
	Datasources  DatasourcesConfig  `mapstructure:"datasources"`
}

// Load reads and decodes the configuration file at path. Viper picks the
// format (YAML, TOML, JSON, ...) from the file's extension; a file with no
// extension is read as YAML.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	rpcDefault := rpcpool.DefaultRetryConfig()
	hcDefault := rpcpool.DefaultHealthCheckConfig()
	cbDefault := rpcpool.DefaultCircuitBreakerConfig()
	rlDefault := rpcpool.DefaultRateLimitConfig()
	tpuDefault := tpu.DefaultConfig()
	lbDefault := loadbalancer.DefaultConfig()
	submitDefault := submit.DefaultConfig()

	v.SetDefault("rpc_strategy", "round_robin")
	v.SetDefault("tpu.enabled", true)
	v.SetDefault("tpu.num_connections", tpuDefault.NumConnections)
	v.SetDefault("tpu.leaders_fanout", tpuDefault.LeadersFanout)
	v.SetDefault("tpu.worker_channel_size", tpuDefault.WorkerChannelSize)
	v.SetDefault("cache.max_capacity", 100_000)
	v.SetDefault("cache.account_ttl_secs", 300)
	v.SetDefault("load_balancer.capacity_threshold", lbDefault.CapacityThreshold)
	v.SetDefault("load_balancer.takeover_delay_seconds", lbDefault.TakeoverDelaySeconds)
	v.SetDefault("load_balancer.grace_period_secs", 0)
	v.SetDefault("load_balancer.eviction_buffer_secs", 60)
	v.SetDefault("processor.max_concurrent_threads", 0) // 0 means unbounded
	v.SetDefault("processor.simulate_before_submit", submitDefault.SimulateBeforeSubmit)
	v.SetDefault("processor.compute_unit_multiplier", submitDefault.ComputeUnitMultiplier)
	v.SetDefault("processor.max_compute_units", submitDefault.MaxComputeUnits)
	v.SetDefault("datasources.kind", "rpcsub")
	v.SetDefault("datasources.commitment", "confirmed")

	// Retained for documentation of every default this loader assumes even
	// though they are not independently overridable per-section yet.
	_ = rpcDefault
	_ = hcDefault
	_ = cbDefault
	_ = rlDefault
}

// Validate enforces the structural requirements spec §7 class 1 lists as
// fatal startup errors.
func (c *Config) Validate() error {
	if len(c.RPC) == 0 {
		return ErrNoEndpoints
	}
	if c.Executor.KeypairPath == "" {
		return errors.New("config: executor.keypair_path is required")
	}
	if c.Datasources.ProgramID == "" {
		return errors.New("config: datasources.program_id is required")
	}
	return nil
}

// RPCPoolConfig builds the rpcpool.Config the supervisor constructs the
// endpoint pool from.
func (c *Config) RPCPoolConfig() rpcpool.Config {
	endpoints := make([]rpcpool.EndpointConfig, 0, len(c.RPC))
	for _, e := range c.RPC {
		endpoints = append(endpoints, rpcpool.EndpointConfig{
			URL:      e.URL,
			WSURL:    e.WSURL,
			Priority: e.Priority,
			Role:     parseRole(e.Role),
		})
	}
	return rpcpool.Config{
		Endpoints:      endpoints,
		CircuitBreaker: rpcpool.DefaultCircuitBreakerConfig(),
		RateLimit:      rpcpool.DefaultRateLimitConfig(),
		HealthCheck:    rpcpool.DefaultHealthCheckConfig(),
		Retry:          rpcpool.DefaultRetryConfig(),
		Strategy:       parseStrategy(c.RPCStrategy),
	}
}

// TPUClientConfig builds the tpu.Config the supervisor constructs the
// leader tracker and client from. ok is false when tpu.enabled is false,
// in which case the supervisor must run with ModeRPCOnly.
func (c *Config) TPUClientConfig() (cfg tpu.Config, ok bool) {
	if !c.TPU.Enabled {
		return tpu.Config{}, false
	}
	cfg = tpu.DefaultConfig()
	cfg.WebsocketURL = c.TPU.WebsocketURL
	if c.TPU.NumConnections > 0 {
		cfg.NumConnections = c.TPU.NumConnections
	}
	if c.TPU.LeadersFanout > 0 {
		cfg.LeadersFanout = c.TPU.LeadersFanout
	}
	if c.TPU.WorkerChannelSize > 0 {
		cfg.WorkerChannelSize = c.TPU.WorkerChannelSize
	}
	return cfg, true
}

// CacheConfig builds the cache.Config the supervisor constructs the
// unified account cache from.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		MaxCapacity: c.Cache.MaxCapacity,
		AccountTTL:  time.Duration(c.Cache.AccountTTLSecs) * time.Second,
		FetchRetry:  cache.DefaultFetchRetryConfig(),
	}
}

// LoadBalancerConfig builds the loadbalancer.Config.
func (c *Config) LoadBalancerConfig() loadbalancer.Config {
	return loadbalancer.Config{
		CapacityThreshold:    c.LoadBalancer.CapacityThreshold,
		TakeoverDelaySeconds: c.LoadBalancer.TakeoverDelaySeconds,
		Enabled:              true,
	}
}

// SubmitConfig builds the submit.Config the supervisor constructs the
// submission engine from. tpuEnabled mirrors whether a tpu.Client was
// actually built, since submit.New also forces ModeRPCOnly on a nil
// client but the mode chosen here should already reflect configuration.
func (c *Config) SubmitConfig(tpuEnabled bool) submit.Config {
	cfg := submit.DefaultConfig()
	cfg.SimulateBeforeSubmit = c.Processor.SimulateBeforeSubmit
	if c.Processor.ComputeUnitMultiplier > 0 {
		cfg.ComputeUnitMultiplier = c.Processor.ComputeUnitMultiplier
	}
	if c.Processor.MaxComputeUnits > 0 {
		cfg.MaxComputeUnits = c.Processor.MaxComputeUnits
	}
	if !tpuEnabled {
		cfg.Mode = submit.ModeRPCOnly
	}
	return cfg
}

// SchedulerConfig builds the per-actor scheduler.Config.
func (c *Config) SchedulerConfig(executor chain.Pubkey) scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.Executor = executor
	cfg.Admin = chain.Address(c.Executor.AdminAccount)
	cfg.TargetCommitment = parseCommitment(c.Datasources.Commitment)
	return cfg
}

// StagingConfig builds the staging.Config.
func (c *Config) StagingConfig(actorCfg scheduler.Config) staging.Config {
	cfg := staging.DefaultConfig()
	cfg.ProgramID = chain.Address(c.Datasources.ProgramID)
	cfg.ActorConfig = actorCfg
	return cfg
}

// PluginSourceConfig builds the plugin adapter's Config. Call only when
// Datasources.Kind == "plugin".
func (c *Config) PluginSourceConfig() plugin.Config {
	size := c.Datasources.ChannelSize
	if size == 0 {
		size = 4096
	}
	return plugin.Config{ProgramID: chain.Address(c.Datasources.ProgramID), ChannelSize: size}
}

// CarbonSourceConfig builds the carbon adapter's Config. Call only when
// Datasources.Kind == "carbon".
func (c *Config) CarbonSourceConfig() carbon.Config {
	cfg := carbon.DefaultConfig()
	cfg.Endpoint = c.Datasources.Endpoint
	cfg.Token = c.Datasources.Token
	cfg.ProgramID = chain.Address(c.Datasources.ProgramID)
	cfg.UseTLS = c.Datasources.UseTLS
	return cfg
}

// RPCSubSourceConfig builds the rpcsub adapter's Config. Call only when
// Datasources.Kind == "rpcsub" (the default).
func (c *Config) RPCSubSourceConfig() rpcsub.Config {
	cfg := rpcsub.DefaultConfig()
	cfg.WebsocketURL = c.Datasources.WebsocketURL
	cfg.ProgramID = chain.Address(c.Datasources.ProgramID)
	return cfg
}

func parseRole(s string) rpcpool.Role {
	switch s {
	case "submission":
		return rpcpool.RoleSubmission
	case "datasource":
		return rpcpool.RoleDatasource
	default:
		return rpcpool.RoleBoth
	}
}

func parseStrategy(s string) rpcpool.Strategy {
	switch s {
	case "weighted_priority":
		return rpcpool.StrategyWeightedPriority
	case "lowest_latency":
		return rpcpool.StrategyLowestLatency
	case "strict_priority":
		return rpcpool.StrategyStrictPriority
	default:
		return rpcpool.StrategyRoundRobin
	}
}

func parseCommitment(s string) submit.CommitmentLevel {
	switch s {
	case "processed":
		return submit.CommitmentProcessed
	case "finalized":
		return submit.CommitmentFinalized
	default:
		return submit.CommitmentConfirmed
	}
}
