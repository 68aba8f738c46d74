package screener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invalidQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screener_invalid_queries_total",
			Help: "Number of persisted screener queries ignored because they failed validation",
		},
	)

	screenedSymbols = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_symbols_total",
			Help: "Number of symbols evaluated by the screener",
		},
		[]string{"period_type", "result"}, // result: match, no_match, no_data
	)
)
