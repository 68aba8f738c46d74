package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, spec config.AnalyzerSpec, deps Deps) Analyzer {
	t.Helper()
	a, err := Build(spec, deps)
	require.NoError(t, err)
	return a
}

func TestSMAAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "sma", Params: map[string]float64{"period": 5}}, Deps{})

	out, err := a.Analyze(context.Background(), series(10, 20, 30, 40, 50, 60))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, ok := out[i].Indicator("sma_5")
		assert.False(t, ok, "index %d", i)
	}
	v, _ := out[4].Indicator("sma_5")
	assert.Equal(t, 30.0, v)
	v, _ = out[5].Indicator("sma_5")
	assert.Equal(t, 40.0, v)
}

func TestEMACrossAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "ema_cross", Params: map[string]float64{"fast": 2, "slow": 5}}, Deps{})

	// Falling then sharply rising closes drive the fast EMA across the slow one
	out, err := a.Analyze(context.Background(), series(20, 18, 16, 14, 12, 30, 40))
	require.NoError(t, err)

	var ups, downs int
	for _, c := range out {
		if c.Alerts.Has(AlertEMACrossUp) {
			ups++
		}
		if c.Alerts.Has(AlertEMACrossDown) {
			downs++
		}
		_, ok := c.Indicator("ema_2")
		assert.True(t, ok)
	}
	assert.Equal(t, 1, ups)
	assert.Equal(t, 1, downs)
	assert.True(t, out[5].Alerts.Has(AlertEMACrossUp))
}

func TestRVolAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "rvol", Params: map[string]float64{"period": 3, "threshold": 2}}, Deps{})

	input := series(1, 1, 1, 1)
	input[3].Volume = 10000 // avg (1000+1000+10000)/3 = 4000, rvol 2.5

	out, err := a.Analyze(context.Background(), input)
	require.NoError(t, err)

	v, ok := out[2].Indicator("rvol_3")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.False(t, out[2].Alerts.Has(AlertRVolSpike))

	v, _ = out[3].Indicator("rvol_3")
	assert.Equal(t, 2.5, v)
	assert.True(t, out[3].Alerts.Has(AlertRVolSpike))
}

func TestVWAPAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "vwap"}, Deps{})

	out, err := a.Analyze(context.Background(), series(10, 8, 12))
	require.NoError(t, err)

	v, _ := out[0].Indicator(IndicatorVWAP)
	assert.Equal(t, out[0].TypicalPrice(), v)
	assert.True(t, out[1].Alerts.Has(AlertVWAPCrossDown))
	assert.True(t, out[2].Alerts.Has(AlertVWAPCrossUp))
}

func TestLRSIAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "lrsi", Params: map[string]float64{"fast_gamma": 0, "slow_gamma": 0.5}}, Deps{})

	out, err := a.Analyze(context.Background(), series(10, 11, 10, 9, 8, 9))
	require.NoError(t, err)

	_, ok := out[0].Indicator(IndicatorLRSIFast)
	assert.False(t, ok)
	v, _ := out[1].Indicator(IndicatorLRSIFast)
	assert.Equal(t, 1.0, v)
	assert.True(t, out[2].Alerts.Has("lrsi_fast_downtrend_start"))
	assert.True(t, out[4].Alerts.Has("lrsi_fast_oversold"))
	assert.True(t, out[5].Alerts.Has("lrsi_fast_uptrend_start"))

	for _, c := range out {
		for key := range c.Alerts {
			assert.Contains(t, a.AlertTypes(), key)
		}
	}
}

func TestLRSIAlertTypes(t *testing.T) {
	types := LRSIAlertTypes()
	assert.Len(t, types, 2*len(indicator.LRSITransitions()))
	assert.Contains(t, types, "lrsi_slow_overbought")
	assert.Contains(t, types, "lrsi_fast_uptrend_start")
}

func TestATRAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "atr", Params: map[string]float64{"period": 2}}, Deps{})

	out, err := a.Analyze(context.Background(), series(10, 10, 10))
	require.NoError(t, err)

	_, ok := out[0].Indicator("atr_2")
	assert.False(t, ok)
	v, _ := out[1].Indicator("atr_2")
	assert.Equal(t, 2.0, v)
}

func TestRSIAnalyzer(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "rsi", Params: map[string]float64{"period": 3}}, Deps{})

	out, err := a.Analyze(context.Background(), series(10, 11, 10.5, 11.5, 11, 12))
	require.NoError(t, err)
	require.Len(t, out, 6)

	_, ok := out[2].Indicator("rsi_3")
	assert.False(t, ok)
	v, ok := out[5].Indicator("rsi_3")
	assert.True(t, ok)
	assert.True(t, v > 0 && v < 100)
}

func TestVWRRSAnalyzer(t *testing.T) {
	subject := series(10, 12, 9)
	reference := series(10, 10, 10)

	var gotFrom, gotTo time.Time
	loader := ReferenceLoaderFunc(func(_ context.Context, pt models.PeriodType, from, to time.Time) ([]*models.Candle, error) {
		assert.Equal(t, models.PeriodD, pt)
		gotFrom, gotTo = from, to
		return reference, nil
	})

	a := build(t, config.AnalyzerSpec{Type: "vwrrs"}, Deps{Reference: loader})
	out, err := a.Analyze(context.Background(), subject)
	require.NoError(t, err)

	assert.Equal(t, subject[0].Period, gotFrom)
	assert.Equal(t, subject[2].Period, gotTo)

	v, ok := out[0].Indicator(IndicatorVWRRS)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.True(t, out[1].Alerts.Has(AlertVWRRSStrength))
	assert.True(t, out[2].Alerts.Has(AlertVWRRSWeakness))
}

func TestVWRRSAnalyzer_Misaligned(t *testing.T) {
	a := build(t, config.AnalyzerSpec{Type: "vwrrs"}, Deps{Reference: staticReference(series(10, 10))})

	_, err := a.Analyze(context.Background(), series(10, 11, 12))
	assert.ErrorIs(t, err, indicator.ErrMisalignedSeries)

	// Inside a chain the failure is recorded and the series passes through
	result := NewChain(a).Run(context.Background(), series(10, 11, 12))
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not period-aligned")
}
