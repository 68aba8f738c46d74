package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_failures_total",
			Help: "Total number of analyzer stages that failed and were skipped",
		},
		[]string{"analyzer"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyzer_stage_duration_seconds",
			Help:    "Duration of a single analyzer stage",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"analyzer"},
	)
)
