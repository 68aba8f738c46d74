package analyzer

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/indicator"
)

// Alert keys flagged by the volume analyzers
const (
	AlertRVolSpike     = "rvol_spike"
	AlertVWAPCrossUp   = "vwap_cross_up"
	AlertVWAPCrossDown = "vwap_cross_down"
)

// IndicatorVWAP is the indicator key written by the VWAP analyzer
const IndicatorVWAP = "vwap"

// rvolAnalyzer writes relative volume and flags bars at or above a threshold
type rvolAnalyzer struct {
	period    int
	threshold float64
	name      string
}

func newRVolAnalyzer(spec config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	period, err := periodParam(spec, "period", 20)
	if err != nil {
		return nil, err
	}
	threshold := spec.Param("threshold", 2)
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive, got %g", ErrInvalidParams, threshold)
	}
	return &rvolAnalyzer{
		period:    period,
		threshold: threshold,
		name:      fmt.Sprintf("rvol_%d", period),
	}, nil
}

func (a *rvolAnalyzer) Name() string             { return a.name }
func (a *rvolAnalyzer) IndicatorTypes() []string { return []string{a.name} }
func (a *rvolAnalyzer) AlertTypes() []string     { return []string{AlertRVolSpike} }

func (a *rvolAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	rvol, err := indicator.NewRVol(a.period)
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	for _, c := range out {
		v := rvol.Push(c.Volume)
		c.SetIndicator(a.name, v)
		if v.Valid && v.Float64 >= a.threshold {
			c.AddAlert(AlertRVolSpike)
		}
	}
	return out, nil
}

// vwapAnalyzer writes the cumulative VWAP of the series and flags close crossings
type vwapAnalyzer struct{}

func newVWAPAnalyzer(_ config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	return &vwapAnalyzer{}, nil
}

func (a *vwapAnalyzer) Name() string             { return IndicatorVWAP }
func (a *vwapAnalyzer) IndicatorTypes() []string { return []string{IndicatorVWAP} }

func (a *vwapAnalyzer) AlertTypes() []string {
	return []string{AlertVWAPCrossUp, AlertVWAPCrossDown}
}

func (a *vwapAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	values := indicator.VWAP(candles)

	out := models.CloneAll(candles)
	var prevClose, prevVWAP models.Value
	for i, c := range out {
		c.SetIndicator(IndicatorVWAP, values[i])

		closePrice := models.Some(c.Close)
		up, down := crossed(prevClose, prevVWAP, closePrice, values[i])
		if up {
			c.AddAlert(AlertVWAPCrossUp)
		}
		if down {
			c.AddAlert(AlertVWAPCrossDown)
		}
		prevClose, prevVWAP = closePrice, values[i]
	}
	return out, nil
}
