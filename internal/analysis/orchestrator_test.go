package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/analyzer"
	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) Start(_ context.Context, total int) {
	r.events = append(r.events, fmt.Sprintf("start:%d", total))
}

func (r *recordingReporter) ItemStart(_ context.Context, symbol string, index int) {
	r.events = append(r.events, fmt.Sprintf("item:%s:%d", symbol, index))
}

func (r *recordingReporter) End(_ context.Context) {
	r.events = append(r.events, "end")
}

func (r *recordingReporter) Error(_ context.Context, message, symbol string, pt models.PeriodType) {
	r.events = append(r.events, fmt.Sprintf("error:%s:%s", symbol, pt))
}

func (r *recordingReporter) count(prefix string) int {
	n := 0
	for _, ev := range r.events {
		if strings.HasPrefix(ev, prefix) {
			n++
		}
	}
	return n
}

// boomAnalyzer always fails
type boomAnalyzer struct{}

func (boomAnalyzer) Name() string             { return "boom" }
func (boomAnalyzer) IndicatorTypes() []string { return nil }
func (boomAnalyzer) AlertTypes() []string     { return nil }

func (boomAnalyzer) Analyze(context.Context, []*models.Candle) ([]*models.Candle, error) {
	return nil, errors.New("exploded")
}

var monday = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func daily(symbol string, i int, close float64) *models.Candle {
	return models.NewCandle(symbol, models.PeriodD, monday.AddDate(0, 0, i), close, close+1, close-1, close, 1000+int64(i)*10)
}

// seed stores 14 daily bars (two full weeks) for each symbol
func seed(t *testing.T, store storage.CandleStorage, symbols ...string) {
	t.Helper()
	for n, symbol := range symbols {
		candles := make([]*models.Candle, 14)
		for i := range candles {
			candles[i] = daily(symbol, i, 100*float64(n+1)+float64(i))
		}
		_, err := store.UpsertBars(context.Background(), candles)
		require.NoError(t, err)
	}
}

func testTables() *config.AnalysisTables {
	return &config.AnalysisTables{
		Analyzers: map[models.PeriodType][]config.AnalyzerSpec{
			models.PeriodD: {
				{Type: "sma", Params: map[string]float64{"period": 3}},
				{Type: "vwrrs"},
			},
			models.PeriodW: {
				{Type: "sma", Params: map[string]float64{"period": 2}},
				{Type: "vwrrs"},
			},
		},
		Derivatives: map[models.PeriodType]models.PeriodType{
			models.PeriodW: models.PeriodD,
		},
	}
}

func newTestOrchestrator(store storage.CandleStorage, tables *config.AnalysisTables, reporter Reporter) *Orchestrator {
	return NewOrchestrator(store, tables, reporter, Options{
		PeriodTypes:     []models.PeriodType{models.PeriodD, models.PeriodW},
		ReferenceSymbol: "SPY",
	})
}

func TestOrchestrator_RunAnnotatesAndDerives(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "AAPL", "SPY")
	reporter := &recordingReporter{}

	errs := newTestOrchestrator(store, testTables(), reporter).Run(ctx, RunRequest{
		Symbols:     []string{"AAPL", "SPY"},
		PeriodTypes: []models.PeriodType{models.PeriodW, models.PeriodD},
	})
	assert.Empty(t, errs)

	// The reference symbol runs first
	assert.Equal(t, []string{"start:2", "item:SPY:0", "item:AAPL:1", "end"}, reporter.events)

	days, err := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	require.NoError(t, err)
	require.Len(t, days, 14)
	_, ok := days[0].Indicator("sma_3")
	assert.False(t, ok)
	sma, ok := days[13].Indicator("sma_3")
	assert.True(t, ok)
	assert.InDelta(t, 112.0, sma, 1e-9)
	_, ok = days[13].Indicator(analyzer.IndicatorVWRRS)
	assert.True(t, ok)

	weeks, err := store.LoadCandles(ctx, "AAPL", models.PeriodW)
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, monday, weeks[0].Period)
	assert.Equal(t, 100.0, weeks[0].Open)
	assert.Equal(t, 106.0, weeks[0].Close)
	_, ok = weeks[1].Indicator("sma_2")
	assert.True(t, ok)
	_, ok = weeks[1].Indicator(analyzer.IndicatorVWRRS)
	assert.True(t, ok)
}

func TestOrchestrator_StageFailureIsRecordedAndRunContinues(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "AAPL", "SPY")

	registry := analyzer.NewRegistry()
	require.NoError(t, analyzer.RegisterBuiltins(registry))
	require.NoError(t, registry.Register("boom", func(config.AnalyzerSpec, analyzer.Deps) (analyzer.Analyzer, error) {
		return boomAnalyzer{}, nil
	}))

	tables := testTables()
	tables.Analyzers[models.PeriodD] = []config.AnalyzerSpec{
		{Type: "sma", Params: map[string]float64{"period": 3}},
		{Type: "boom"},
		{Type: "sma", Params: map[string]float64{"period": 5}},
	}
	reporter := &recordingReporter{}
	o := NewOrchestrator(store, tables, reporter, Options{
		PeriodTypes:     []models.PeriodType{models.PeriodD},
		ReferenceSymbol: "SPY",
		Registry:        registry,
	})

	errs := o.Run(ctx, RunRequest{Symbols: []string{"AAPL", "SPY"}})
	require.Len(t, errs, 2)
	assert.Equal(t, "SPY D: boom: exploded", errs[0])
	assert.Equal(t, "AAPL D: boom: exploded", errs[1])
	assert.Equal(t, 2, reporter.count("error:"))
	assert.Contains(t, reporter.events, "error:AAPL:D")

	days, err := store.LoadCandles(ctx, "AAPL", models.PeriodD)
	require.NoError(t, err)
	_, ok := days[13].Indicator("sma_3")
	assert.True(t, ok)
	_, ok = days[13].Indicator("sma_5")
	assert.True(t, ok)
}

func TestOrchestrator_LoadFailureSkipsDerivedPeriods(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "AAPL", "SPY")
	store.LoadErr = errors.New("connection refused")
	reporter := &recordingReporter{}

	errs := newTestOrchestrator(store, testTables(), reporter).Run(context.Background(), RunRequest{
		Symbols: []string{"AAPL", "SPY"},
	})

	// D fails to load and W is skipped, for both symbols
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "SPY D: load candles: connection refused")
	assert.Contains(t, errs[1], "SPY W: skipped")
	assert.Equal(t, 2, reporter.count("item:"))
	assert.Equal(t, "end", reporter.events[len(reporter.events)-1])
}

func TestOrchestrator_CancelledRunStopsBeforeNextSymbol(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "AAPL")
	reporter := &recordingReporter{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := newTestOrchestrator(store, testTables(), reporter).Run(ctx, RunRequest{Symbols: []string{"AAPL"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "run cancelled")
	assert.Equal(t, 0, reporter.count("item:"))
	assert.Equal(t, "end", reporter.events[len(reporter.events)-1])
}

func TestOrchestrator_ResetRebuildsClosedBuckets(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "SPY")
	o := newTestOrchestrator(store, testTables(), &recordingReporter{})

	require.Empty(t, o.Run(ctx, RunRequest{Symbols: []string{"SPY"}}))

	// Correct a bar in the first (closed) week
	fixed := daily("SPY", 2, 100)
	fixed.High = 500
	_, err := store.UpsertBars(ctx, []*models.Candle{fixed})
	require.NoError(t, err)

	require.Empty(t, o.Run(ctx, RunRequest{Symbols: []string{"SPY"}}))
	weeks, err := store.LoadCandles(ctx, "SPY", models.PeriodW)
	require.NoError(t, err)
	assert.Equal(t, 107.0, weeks[0].High, "closed bucket is stable without reset")

	require.Empty(t, o.Run(ctx, RunRequest{Symbols: []string{"SPY"}, Reset: true}))
	weeks, err = store.LoadCandles(ctx, "SPY", models.PeriodW)
	require.NoError(t, err)
	assert.Equal(t, 500.0, weeks[0].High)
	_, ok := weeks[1].Indicator("sma_2")
	assert.True(t, ok)
}

func TestOrchestrator_ListsSymbolsWhenNoneRequested(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "AAPL", "MSFT", "SPY")
	reporter := &recordingReporter{}

	errs := newTestOrchestrator(store, testTables(), reporter).Run(context.Background(), RunRequest{})
	assert.Empty(t, errs)
	assert.Equal(t, []string{"start:3", "item:SPY:0", "item:AAPL:1", "item:MSFT:2", "end"}, reporter.events)
}

func TestOrchestrator_ClampsAnnotations(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "SPY")

	tables := testTables()
	tables.Analyzers[models.PeriodD] = []config.AnalyzerSpec{{Type: "sma", Params: map[string]float64{"period": 3}}}
	o := NewOrchestrator(store, tables, &recordingReporter{}, Options{
		PeriodTypes:     []models.PeriodType{models.PeriodD},
		ReferenceSymbol: "SPY",
		Limits:          models.ClampLimits{MaxIndicator: 105},
	})

	require.Empty(t, o.Run(ctx, RunRequest{Symbols: []string{"SPY"}}))
	days, err := store.LoadCandles(ctx, "SPY", models.PeriodD)
	require.NoError(t, err)
	v, ok := days[13].Indicator("sma_3")
	require.True(t, ok)
	assert.Equal(t, 105.0, v)
	assert.InDelta(t, 112.0, days[13].TruncatedValues["indicators.sma_3"], 1e-9)
}
