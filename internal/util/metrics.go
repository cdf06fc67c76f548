package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_refresh_total",
		Help: "Total number of ledger snapshot rebuilds",
	})

	LedgerLinesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_lines_dropped_total",
		Help: "Total number of order lines dropped during ingestion",
	})

	LedgerSnapshotSKUs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_snapshot_skus",
		Help: "Number of distinct SKUs in the current ledger snapshot",
	})

	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_runs_total",
		Help: "Total number of analysis runs",
	}, []string{"status"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_seconds",
		Help:    "Duration of full analysis runs",
		Buckets: prometheus.DefBuckets,
	})

	ItemsetsMinedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemsets_mined_total",
		Help: "Total number of itemsets mined, by bundle size",
	}, []string{"size"})

	BundlesSelectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bundles_selected_total",
		Help: "Total number of bundle candidates returned",
	})

	OptimizationRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optimization_runs_total",
		Help: "Total number of local search optimization runs",
	})

	OptimizationIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimization_iterations",
		Help:    "Iterations taken by local search before converging",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 30},
	})

	OpportunityBundlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opportunity_bundles_total",
		Help: "Total number of opportunity bundles detected, by type",
	}, []string{"type"})

	DetectorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_failures_total",
		Help: "Total number of opportunity detector failures",
	}, []string{"detector"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"kind"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"kind"})

	BundlesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bundles_saved_total",
		Help: "Total number of bundles persisted",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
