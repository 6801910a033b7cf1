// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics is the ambient Prometheus metrics registry: one
// process-wide Registry wrapping a dedicated prometheus.Registry, with
// one typed metric per counter/gauge the other components report
// against. The HTTP exporter that would serve this registry is out of
// scope; supervisor wires components to the Registry's methods, not to
// any transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the executor reports. All fields are safe
// for concurrent use, per prometheus's own guarantees.
type Registry struct {
	reg *prometheus.Registry

	RPCRequestsTotal     *prometheus.CounterVec
	RPCCallDuration      *prometheus.HistogramVec
	RPCCircuitBreakerOpen *prometheus.GaugeVec

	CacheSize           prometheus.Gauge
	CacheEvictionsTotal *prometheus.CounterVec
	CacheFetchRetries   prometheus.Counter

	TPUSendsTotal  prometheus.Counter
	TPUSendsFailed prometheus.Counter
	TPULeaderCount prometheus.Gauge

	ActorsSpawnedTotal prometheus.Counter
	ActorsActive       prometheus.Gauge

	SubmissionAttemptsTotal *prometheus.CounterVec
	SubmissionRetriesTotal  prometheus.Counter
	SubmissionConfirmedTotal prometheus.Counter

	LoadBalancerAtCapacity prometheus.Gauge
	LoadBalancerSkipsTotal prometheus.Counter

	IngestDroppedTotal *prometheus.CounterVec
}

// New constructs a Registry with every metric registered against a fresh
// prometheus.Registry (kept separate from prometheus's global default
// registry so tests never collide with each other).
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,

		RPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "rpc", Name: "requests_total",
			Help: "JSON-RPC calls dispatched by the pool, by method and outcome.",
		}, []string{"method", "outcome"}),
		RPCCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "executor", Subsystem: "rpc", Name: "call_duration_seconds",
			Help:    "JSON-RPC call latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCircuitBreakerOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "executor", Subsystem: "rpc", Name: "circuit_breaker_open",
			Help: "1 if the endpoint's circuit breaker is open, else 0.",
		}, []string{"endpoint"}),

		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "executor", Subsystem: "cache", Name: "size",
			Help: "Current number of entries held by the unified account cache.",
		}),
		CacheEvictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "cache", Name: "evictions_total",
			Help: "Cache evictions by reason.",
		}, []string{"reason"}),
		CacheFetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "cache", Name: "fetch_retries_total",
			Help: "get_or_fetch retry attempts against AccountNotFound.",
		}),

		TPUSendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "tpu", Name: "sends_total",
			Help: "Transactions broadcast to leaders over QUIC.",
		}),
		TPUSendsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "tpu", Name: "sends_failed_total",
			Help: "Per-leader TPU sends that failed.",
		}),
		TPULeaderCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "executor", Subsystem: "tpu", Name: "leader_count",
			Help: "Current fanout leader set size.",
		}),

		ActorsSpawnedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "scheduler", Name: "actors_spawned_total",
			Help: "Per-thread scheduler actors spawned since start.",
		}),
		ActorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "executor", Subsystem: "scheduler", Name: "actors_active",
			Help: "Currently live per-thread scheduler actors.",
		}),

		SubmissionAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "submit", Name: "attempts_total",
			Help: "Submission attempts by terminal status.",
		}, []string{"status"}),
		SubmissionRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "submit", Name: "retries_total",
			Help: "Submission retries issued by the engine's retry loop.",
		}),
		SubmissionConfirmedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "submit", Name: "confirmed_total",
			Help: "Submissions that reached the target commitment level.",
		}),

		LoadBalancerAtCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "executor", Subsystem: "load_balancer", Name: "at_capacity",
			Help: "1 if this executor is currently shedding load, else 0.",
		}),
		LoadBalancerSkipsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "load_balancer", Name: "skips_total",
			Help: "ShouldProcess decisions that returned Skip.",
		}),

		IngestDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "executor", Subsystem: "ingest", Name: "dropped_total",
			Help: "Account updates dropped on ingestion backpressure, by adapter.",
		}, []string{"adapter"}),
	}

	reg.MustRegister(
		r.RPCRequestsTotal, r.RPCCallDuration, r.RPCCircuitBreakerOpen,
		r.CacheSize, r.CacheEvictionsTotal, r.CacheFetchRetries,
		r.TPUSendsTotal, r.TPUSendsFailed, r.TPULeaderCount,
		r.ActorsSpawnedTotal, r.ActorsActive,
		r.SubmissionAttemptsTotal, r.SubmissionRetriesTotal, r.SubmissionConfirmedTotal,
		r.LoadBalancerAtCapacity, r.LoadBalancerSkipsTotal,
		r.IngestDroppedTotal,
	)
	return r
}

// Gatherer exposes the underlying prometheus.Registry as a
// prometheus.Gatherer, for whatever exporter a deployment wires in later
// (out of scope here; see package doc).
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
