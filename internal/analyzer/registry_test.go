package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticReference(candles []*models.Candle) ReferenceLoader {
	return ReferenceLoaderFunc(func(context.Context, models.PeriodType, time.Time, time.Time) ([]*models.Candle, error) {
		return candles, nil
	})
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		spec     config.AnalyzerSpec
		wantName string
		wantErr  error
	}{
		{"sma", config.AnalyzerSpec{Type: "sma", Params: map[string]float64{"period": 5}}, "sma_5", nil},
		{"sma default", config.AnalyzerSpec{Type: "sma"}, "sma_20", nil},
		{"ema cross", config.AnalyzerSpec{Type: "ema_cross"}, "ema_cross_9_21", nil},
		{"atr", config.AnalyzerSpec{Type: "atr"}, "atr_14", nil},
		{"rvol", config.AnalyzerSpec{Type: "rvol", Params: map[string]float64{"period": 10}}, "rvol_10", nil},
		{"lrsi", config.AnalyzerSpec{Type: "lrsi"}, "lrsi", nil},
		{"vwap", config.AnalyzerSpec{Type: "vwap"}, "vwap", nil},
		{"rsi", config.AnalyzerSpec{Type: "rsi"}, "rsi_14", nil},
		{"unknown", config.AnalyzerSpec{Type: "macd"}, "", ErrUnknownAnalyzer},
		{"fractional period", config.AnalyzerSpec{Type: "sma", Params: map[string]float64{"period": 2.5}}, "", ErrInvalidParams},
		{"zero period", config.AnalyzerSpec{Type: "atr", Params: map[string]float64{"period": 0}}, "", ErrInvalidParams},
		{"fast above slow", config.AnalyzerSpec{Type: "ema_cross", Params: map[string]float64{"fast": 30, "slow": 10}}, "", ErrInvalidParams},
		{"rsi period 1", config.AnalyzerSpec{Type: "rsi", Params: map[string]float64{"period": 1}}, "", ErrInvalidParams},
		{"negative threshold", config.AnalyzerSpec{Type: "rvol", Params: map[string]float64{"threshold": -1}}, "", ErrInvalidParams},
		{"vwrrs without reference", config.AnalyzerSpec{Type: "vwrrs"}, "", ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Build(tt.spec, Deps{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, a.Name())
		})
	}

	_, err := Build(config.AnalyzerSpec{Type: "lrsi", Params: map[string]float64{"oversold": 0.9}}, Deps{})
	assert.Error(t, err)
}

func TestBuildChain_DefaultTables(t *testing.T) {
	tables := config.DefaultTables()
	deps := Deps{Reference: staticReference(nil)}

	for _, pt := range tables.PeriodTypes() {
		chain, err := BuildChain(tables, pt, deps)
		require.NoError(t, err, pt)
		assert.Len(t, chain.Analyzers(), len(tables.AnalyzersFor(pt)))
	}

	chain, err := BuildChain(tables, models.PeriodM1, deps)
	require.NoError(t, err)
	assert.Empty(t, chain.Analyzers())
}

func TestBuildChain_UnknownType(t *testing.T) {
	tables := &config.AnalysisTables{Analyzers: map[models.PeriodType][]config.AnalyzerSpec{
		models.PeriodD: {{Type: "sma"}, {Type: "bollinger"}},
	}}

	_, err := BuildChain(tables, models.PeriodD, Deps{})
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	assert.Equal(t, []string{"atr", "ema_cross", "lrsi", "rsi", "rvol", "sma", "vwap", "vwrrs"}, r.Types())
	assert.Error(t, r.Register("sma", newSMAAnalyzer))
}
