package bars

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var derivedBarsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "derived_bars_total",
		Help: "Total number of derived bars written, by period type and operation",
	},
	[]string{"period_type", "operation"}, // operation: "insert" or "update"
)

// endOfTime bounds open-ended range loads
var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// DeriveResult counts the derived bars written by one Derive call
type DeriveResult struct {
	Inserted int
	Updated  int
}

// Deriver builds coarser period types from finer stored candles
type Deriver struct {
	store  storage.CandleStorage
	limits models.ClampLimits
}

// NewDeriver creates a deriver writing to store; derived OHLCV values are
// clamped to limits before they are stored
func NewDeriver(store storage.CandleStorage, limits models.ClampLimits) *Deriver {
	return &Deriver{store: store, limits: limits}
}

// Derive aggregates a symbol's source candles into target candles and upserts them.
// Unless full is set, only buckets at or after the latest stored target bucket are
// recomputed; older buckets are closed. Existing buckets keep their annotations
// until the next chain pass. Running Derive twice without new source data
// inserts nothing.
func (d *Deriver) Derive(ctx context.Context, symbol string, source, target models.PeriodType, full bool) (DeriveResult, error) {
	var result DeriveResult
	if !source.Less(target) {
		return result, fmt.Errorf("%w: %s -> %s", ErrNotFiner, source, target)
	}

	var from time.Time
	if !full {
		latest, err := d.store.LatestCandle(ctx, symbol, target)
		if err != nil {
			return result, fmt.Errorf("failed to load latest %s bar: %w", target, err)
		}
		if latest != nil {
			from = latest.Period
		}
	}

	var (
		candles []*models.Candle
		err     error
	)
	if from.IsZero() {
		candles, err = d.store.LoadCandles(ctx, symbol, source)
	} else {
		candles, err = d.store.LoadRange(ctx, symbol, source, from, endOfTime)
	}
	if err != nil {
		return result, fmt.Errorf("failed to load %s bars: %w", source, err)
	}
	if len(candles) == 0 {
		return result, nil
	}

	buckets, err := Aggregate(candles, target)
	if err != nil {
		return result, err
	}
	for i, b := range buckets {
		buckets[i] = b.Clamp(d.limits)
	}

	upserted, err := d.store.UpsertBars(ctx, buckets)
	if err != nil {
		return result, fmt.Errorf("failed to store %s bars: %w", target, err)
	}

	result = DeriveResult{Inserted: upserted.Inserted, Updated: upserted.Updated}
	derivedBarsTotal.WithLabelValues(string(target), "insert").Add(float64(result.Inserted))
	derivedBarsTotal.WithLabelValues(string(target), "update").Add(float64(result.Updated))

	logger.WithContext(ctx).Debug("Derived bars",
		logger.String("source", string(source)),
		logger.String("target", string(target)),
		logger.Bool("full", full),
		logger.Int("inserted", result.Inserted),
		logger.Int("updated", result.Updated),
	)

	return result, nil
}
