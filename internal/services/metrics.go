package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. HTTP-level series live in the middleware package; these
// cover the insight pipeline itself.
var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_lookups_total",
			Help: "Cache lookup outcomes per request (semantic hit, prompt hit, miss).",
		},
		[]string{"outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_seconds",
			Help:    "Insight workflow call duration by outcome.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	extractorFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_extractor_failures_total",
			Help: "Parameter extraction attempts that failed or timed out (best effort, swallowed).",
		},
	)
)
