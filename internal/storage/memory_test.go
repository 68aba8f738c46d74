package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func bar(symbol string, i int, close float64) *models.Candle {
	return models.NewCandle(symbol, models.PeriodD, day(i), close, close+1, close-1, close, 100)
}

func TestMemoryCandleStorage_UpsertAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCandleStorage()

	result, err := store.UpsertBars(ctx, []*models.Candle{bar("AAPL", 2, 12), bar("AAPL", 0, 10), bar("AAPL", 1, 11)})
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 3}, result)

	candles, err := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	for i, c := range candles {
		assert.Equal(t, day(i), c.Period)
	}

	result, err = store.UpsertBars(ctx, []*models.Candle{bar("AAPL", 2, 20), bar("AAPL", 3, 13)})
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 1, Updated: 1}, result)

	latest, err := store.LatestCandle(ctx, "AAPL", models.PeriodD)
	require.NoError(t, err)
	assert.Equal(t, day(3), latest.Period)

	missing, err := store.LatestCandle(ctx, "MSFT", models.PeriodD)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryCandleStorage_AnnotationsSurviveUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCandleStorage()
	_, err := store.UpsertBars(ctx, []*models.Candle{bar("AAPL", 0, 10)})
	require.NoError(t, err)

	annotated := bar("AAPL", 0, 10)
	annotated.SetIndicator("sma_5", models.Some(9.5))
	annotated.AddAlert("rvol_spike")
	require.NoError(t, store.SaveAnnotations(ctx, []*models.Candle{annotated}))

	_, err = store.UpsertBars(ctx, []*models.Candle{bar("AAPL", 0, 11)})
	require.NoError(t, err)

	candles, _ := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	require.Len(t, candles, 1)
	assert.Equal(t, 11.0, candles[0].Close)
	v, ok := candles[0].Indicator("sma_5")
	assert.True(t, ok)
	assert.Equal(t, 9.5, v)
	assert.True(t, candles[0].Alerts.Has("rvol_spike"))

	require.NoError(t, store.ClearAnnotations(ctx, "AAPL", models.PeriodD))
	candles, _ = store.LoadCandles(ctx, "AAPL", models.PeriodD)
	assert.Empty(t, candles[0].Indicators)
	assert.Empty(t, candles[0].Alerts)
}

func TestMemoryCandleStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCandleStorage()
	_, _ = store.UpsertBars(ctx, []*models.Candle{bar("AAPL", 0, 10)})

	candles, _ := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	candles[0].Close = 999
	candles[0].SetIndicator("x", models.Some(1))

	again, _ := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	assert.Equal(t, 10.0, again[0].Close)
	assert.Empty(t, again[0].Indicators)
}

func TestMemoryCandleStorage_LoadRangeAndSymbols(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCandleStorage()
	for i := 0; i < 5; i++ {
		_, _ = store.UpsertBars(ctx, []*models.Candle{bar("MSFT", i, 10), bar("AAPL", i, 10)})
	}

	candles, err := store.LoadRange(ctx, "AAPL", models.PeriodD, day(1), day(3))
	require.NoError(t, err)
	assert.Len(t, candles, 3)

	symbols, err := store.ListSymbols(ctx, models.PeriodD)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	symbols, _ = store.ListSymbols(ctx, models.PeriodW)
	assert.Empty(t, symbols)
}

func TestMemoryCandleStorage_InjectedErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCandleStorage()
	store.LoadErr = errors.New("db down")
	store.WriteErr = errors.New("read only")

	_, err := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	assert.Error(t, err)
	_, err = store.UpsertBars(ctx, []*models.Candle{bar("AAPL", 0, 1)})
	assert.Error(t, err)
	assert.Error(t, store.SaveAnnotations(ctx, nil))
}
