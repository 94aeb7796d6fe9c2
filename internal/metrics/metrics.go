// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

// Package metrics provides Prometheus instrumentation for the discovery
// pipeline: provider fan-out, funnel stages, browser pool utilization,
// cache efficiency, and source health breaker state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total provider search calls by outcome",
		},
		[]string{"provider", "outcome"}, // "success", "auth", "rate_limited", "timeout", "malformed", "skipped"
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of provider search calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_candidates_total",
			Help: "Total raw candidates returned per provider",
		},
		[]string{"provider"},
	)

	// Funnel Metrics
	FunnelStageResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_stage_results_total",
			Help: "Candidates processed per funnel stage by outcome",
		},
		[]string{"stage", "outcome"}, // "passed", "rejected", "skipped", "abandoned"
	)

	FunnelRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_rejections_total",
			Help: "Candidate rejections by reason",
		},
		[]string{"reason"},
	)

	// Browser Pool Metrics
	BrowserContextsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "browser_contexts_in_use",
			Help: "Browser verification contexts currently acquired",
		},
	)

	BrowserAcquireWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browser_context_acquire_wait_seconds",
			Help:    "Time spent waiting for a free browser context",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verified_cache_hits_total",
			Help: "Verified-product cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verified_cache_misses_total",
			Help: "Verified-product cache misses (including expired entries)",
		},
	)

	CacheDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verified_cache_degraded_total",
			Help: "Cache calls bypassed due to backend unavailability",
		},
	)

	// Source Health Metrics
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_health_breaker_state",
			Help: "Source health breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_health_transitions_total",
			Help: "Source health breaker state transitions",
		},
		[]string{"provider", "from", "to"},
	)

	// Search Metrics
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end duration of product searches",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results_returned",
			Help:    "Number of verified products returned per search",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20},
		},
	)

	SearchEmpty = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_empty_total",
			Help: "Searches that returned no verified products",
		},
	)
)
