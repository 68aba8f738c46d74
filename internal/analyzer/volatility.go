package analyzer

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/indicator"
)

// atrAnalyzer writes Wilder's average true range
type atrAnalyzer struct {
	period int
	name   string
}

func newATRAnalyzer(spec config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	period, err := periodParam(spec, "period", 14)
	if err != nil {
		return nil, err
	}
	return &atrAnalyzer{period: period, name: fmt.Sprintf("atr_%d", period)}, nil
}

func (a *atrAnalyzer) Name() string             { return a.name }
func (a *atrAnalyzer) IndicatorTypes() []string { return []string{a.name} }
func (a *atrAnalyzer) AlertTypes() []string     { return nil }

func (a *atrAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	atr, err := indicator.NewATR(a.period)
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	for _, c := range out {
		v, err := atr.Update(c)
		if err != nil {
			return nil, err
		}
		c.SetIndicator(a.name, v)
	}
	return out, nil
}
