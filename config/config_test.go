// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wuwei-labs/antegen-sub001/rpcpool"
	"github.com/wuwei-labs/antegen-sub001/submit"
)

const sampleConfig = `
executor:
  keypair_path: /tmp/executor-keypair.json
  forgo_commission: true
rpc:
  - url: https://rpc-a.example.com
    ws_url: wss://rpc-a.example.com
    priority: 0
    role: both
  - url: https://rpc-b.example.com
    priority: 1
    role: datasource
rpc_strategy: strict_priority
tpu:
  enabled: true
  websocket_url: wss://rpc-a.example.com
  num_connections: 2
  leaders_fanout: 3
cache:
  max_capacity: 50000
  account_ttl_secs: 120
load_balancer:
  capacity_threshold: 7
  takeover_delay_seconds: 15
processor:
  simulate_before_submit: false
  compute_unit_multiplier: 1.5
datasources:
  kind: carbon
  program_id: 11111111111111111111111111111111
  commitment: finalized
  endpoint: geyser.example.com:443
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "executor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
	return path
}

func TestLoadDecodesAllSections(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Executor.ForgoCommission)
	require.Len(t, cfg.RPC, 2)
	require.Equal(t, "strict_priority", cfg.RPCStrategy)
	require.Equal(t, 2, cfg.TPU.NumConnections)
	require.Equal(t, 50000, cfg.Cache.MaxCapacity)
	require.EqualValues(t, 7, cfg.LoadBalancer.CapacityThreshold)
	require.Equal(t, "carbon", cfg.Datasources.Kind)
}

func TestRPCPoolConfigTranslatesRolesAndStrategy(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	poolCfg := cfg.RPCPoolConfig()
	require.Equal(t, rpcpool.StrategyStrictPriority, poolCfg.Strategy)
	require.Len(t, poolCfg.Endpoints, 2)
	require.Equal(t, rpcpool.RoleBoth, poolCfg.Endpoints[0].Role)
	require.Equal(t, rpcpool.RoleDatasource, poolCfg.Endpoints[1].Role)
}

func TestSubmitConfigForcesRPCOnlyWhenTPUDisabled(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	submitCfg := cfg.SubmitConfig(false)
	require.Equal(t, submit.ModeRPCOnly, submitCfg.Mode)
	require.False(t, submitCfg.SimulateBeforeSubmit)
}

func TestValidateRejectsMissingEndpoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "executor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor:\n  keypair_path: /tmp/x.json\ndatasources:\n  program_id: abc\n"), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrNoEndpoints)
}
