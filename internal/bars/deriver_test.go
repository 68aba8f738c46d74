package bars

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedDays stores n consecutive daily bars starting on Monday 2024-05-06
func seedDays(t *testing.T, store storage.CandleStorage, n int) []*models.Candle {
	t.Helper()
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	candles := make([]*models.Candle, n)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = daily("AAPL", start.AddDate(0, 0, i), p, p+2, p-2, p+1, 1000)
	}
	_, err := store.UpsertBars(context.Background(), candles)
	require.NoError(t, err)
	return candles
}

func TestDeriver_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seedDays(t, store, 12) // one full week and one partial

	deriver := NewDeriver(store, models.ClampLimits{})

	first, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)
	assert.Equal(t, DeriveResult{Inserted: 2}, first)

	second, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Updated)

	weeks, err := store.LoadCandles(ctx, "AAPL", models.PeriodW)
	require.NoError(t, err)
	assert.Len(t, weeks, 2)
	assert.Equal(t, int64(7000), weeks[0].Volume)
	assert.Equal(t, int64(5000), weeks[1].Volume)
}

func TestDeriver_IncrementalRecomputesOpenBucket(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	days := seedDays(t, store, 9)
	deriver := NewDeriver(store, models.ClampLimits{})

	_, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)

	// A late correction in the closed week and a new bar in the open week
	corrected := days[0].Clone()
	corrected.High = 500
	next := daily("AAPL", days[8].Period.AddDate(0, 0, 1), 120, 130, 110, 125, 1000)
	_, err = store.UpsertBars(ctx, []*models.Candle{corrected, next})
	require.NoError(t, err)

	result, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)
	assert.Equal(t, DeriveResult{Updated: 1}, result)

	weeks, _ := store.LoadCandles(ctx, "AAPL", models.PeriodW)
	assert.NotEqual(t, 500.0, weeks[0].High)
	assert.Equal(t, int64(3000), weeks[1].Volume)
	assert.Equal(t, 125.0, weeks[1].Close)

	// A full derivation picks up the correction
	result, err = deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, true)
	require.NoError(t, err)
	assert.Equal(t, DeriveResult{Updated: 2}, result)

	weeks, _ = store.LoadCandles(ctx, "AAPL", models.PeriodW)
	assert.Equal(t, 500.0, weeks[0].High)
}

func TestDeriver_KeepsAnnotationsOfUpdatedBuckets(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seedDays(t, store, 3)
	deriver := NewDeriver(store, models.ClampLimits{})

	_, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)

	week, _ := store.LatestCandle(ctx, "AAPL", models.PeriodW)
	week.SetIndicator("sma_10", models.Some(101))
	require.NoError(t, store.SaveAnnotations(ctx, []*models.Candle{week}))

	_, err = deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)

	week, _ = store.LatestCandle(ctx, "AAPL", models.PeriodW)
	v, ok := week.Indicator("sma_10")
	assert.True(t, ok)
	assert.Equal(t, 101.0, v)
}

func TestDeriver_ClampsDerivedBars(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seedDays(t, store, 5)

	deriver := NewDeriver(store, models.ClampLimits{MaxVolume: 4000})
	_, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodW, false)
	require.NoError(t, err)

	week, _ := store.LatestCandle(ctx, "AAPL", models.PeriodW)
	assert.Equal(t, int64(4000), week.Volume)
	assert.Equal(t, 5000.0, week.TruncatedValues["volume"])
}

func TestDeriver_Errors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	deriver := NewDeriver(store, models.ClampLimits{})

	_, err := deriver.Derive(ctx, "AAPL", models.PeriodW, models.PeriodD, false)
	assert.ErrorIs(t, err, ErrNotFiner)

	result, err := deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodM, false)
	require.NoError(t, err)
	assert.Equal(t, DeriveResult{}, result)

	store.LoadErr = errors.New("db down")
	_, err = deriver.Derive(ctx, "AAPL", models.PeriodD, models.PeriodM, false)
	assert.Error(t, err)
}
