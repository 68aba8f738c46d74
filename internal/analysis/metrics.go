package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total number of analysis runs, by outcome",
		},
		[]string{"status"}, // ok, errors, cancelled
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_run_duration_seconds",
			Help:    "Duration of whole analysis runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_items_total",
			Help: "Total number of (symbol, period type) items processed, by outcome",
		},
		[]string{"period_type", "status"}, // ok, error
	)

	itemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_item_duration_seconds",
			Help:    "Duration of one (symbol, period type) item",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period_type"},
	)
)
