// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryMetricExactlyOnce(t *testing.T) {
	r := New()

	r.RPCRequestsTotal.WithLabelValues("getAccountInfo", "ok").Inc()
	r.CacheSize.Set(42)
	r.TPUSendsTotal.Inc()
	r.SubmissionAttemptsTotal.WithLabelValues("confirmed").Inc()
	r.LoadBalancerAtCapacity.Set(1)

	mfs, err := r.Gatherer().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		require.False(t, names[mf.GetName()], "duplicate metric family %s", mf.GetName())
		names[mf.GetName()] = true
	}
	require.True(t, names["executor_cache_size"])
	require.True(t, names["executor_load_balancer_at_capacity"])
}

func TestNewIsIndependentAcrossInstances(t *testing.T) {
	a := New()
	b := New()

	a.TPUSendsTotal.Inc()

	mfsA, err := a.Gatherer().Gather()
	require.NoError(t, err)
	mfsB, err := b.Gatherer().Gather()
	require.NoError(t, err)

	var aVal, bVal float64
	for _, mf := range mfsA {
		if mf.GetName() == "executor_tpu_sends_total" {
			aVal = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range mfsB {
		if mf.GetName() == "executor_tpu_sends_total" {
			bVal = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(1), aVal)
	require.Equal(t, float64(0), bVal)
}
