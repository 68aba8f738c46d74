package screener

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

func seedLatest(t *testing.T, store *storage.MemoryCandleStorage, symbol string, close float64, indicators map[string]float64, alerts ...string) {
	t.Helper()
	ctx := context.Background()
	period := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	older := models.NewCandle(symbol, models.PeriodD, period.AddDate(0, 0, -1), 1, 1, 1, 1, 10)
	latest := models.NewCandle(symbol, models.PeriodD, period, close, close, close, close, 100)
	_, err := store.UpsertBars(ctx, []*models.Candle{older, latest})
	require.NoError(t, err)

	for k, v := range indicators {
		latest.SetIndicator(k, models.Some(v))
	}
	for _, a := range alerts {
		latest.AddAlert(a)
	}
	require.NoError(t, store.SaveAnnotations(ctx, []*models.Candle{latest}))
}

func symbolsOf(results []models.ScreenResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Symbol
	}
	return out
}

func TestScreener_FiltersAndRanks(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seedLatest(t, store, "AAPL", 180, map[string]float64{"rvol_20": 2.5})
	seedLatest(t, store, "MSFT", 400, map[string]float64{"rvol_20": 3.1})
	seedLatest(t, store, "IBM", 150, map[string]float64{"rvol_20": 0.8})
	seedLatest(t, store, "TSLA", 200, map[string]float64{"rvol_20": 2.5})

	q := mustParse(t, `{"indicator":"rvol_20","compare":">=","value":2}`)
	s := NewScreener(store)

	results, err := s.Screen(context.Background(), q, nil, models.PeriodD, ScreenOptions{OrderBy: "rvol_20"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT", "AAPL", "TSLA"}, symbolsOf(results))
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, models.Some(3.1), results[0].Value)
	assert.Equal(t, 3, results[2].Rank)

	results, err = s.Screen(context.Background(), q, nil, models.PeriodD, ScreenOptions{OrderBy: "#close", SortOrder: models.SortOrderAsc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, symbolsOf(results))
}

func TestScreener_MissingOrderValuesLast(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seedLatest(t, store, "AAPL", 10, nil, "ema_cross_up")
	seedLatest(t, store, "MSFT", 10, map[string]float64{"lrsi_fast": 0.2}, "ema_cross_up")

	q := mustParse(t, `"ema_cross_up"`)
	results, err := NewScreener(store).Screen(context.Background(), q, []string{"AAPL", "MSFT"}, models.PeriodD, ScreenOptions{OrderBy: "lrsi_fast", SortOrder: models.SortOrderAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT", "AAPL"}, symbolsOf(results))
	assert.False(t, results[1].Value.Valid)
}

func TestScreener_NilQueryAndUnknownSymbols(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seedLatest(t, store, "AAPL", 10, nil)

	results, err := NewScreener(store).Screen(context.Background(), nil, []string{"AAPL", "NOPE"}, models.PeriodD, ScreenOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, symbolsOf(results))
}

func TestScreener_Errors(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	s := NewScreener(store)

	_, err := s.Screen(context.Background(), nil, nil, models.PeriodType("Q"), ScreenOptions{})
	assert.ErrorIs(t, err, models.ErrInvalidPeriodType)

	_, err = s.Screen(context.Background(), nil, nil, models.PeriodD, ScreenOptions{OrderBy: "#bogus"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	store.LoadErr = errors.New("connection refused")
	_, err = s.Screen(context.Background(), nil, []string{"AAPL"}, models.PeriodD, ScreenOptions{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.LoadErr = nil
	_, err = s.Screen(ctx, nil, []string{"AAPL"}, models.PeriodD, ScreenOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
