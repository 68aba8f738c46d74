package analyzer

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/indicator"
)

// IndicatorVWRRS is the indicator key written by the VWRRS analyzer
const IndicatorVWRRS = "vwrrs"

// Alert keys flagged when VWRRS crosses zero
const (
	AlertVWRRSStrength = "vwrrs_strength"
	AlertVWRRSWeakness = "vwrrs_weakness"
)

// vwrrsAnalyzer writes the volume weighted relative strength against the
// reference series covering the same periods
type vwrrsAnalyzer struct {
	reference ReferenceLoader
}

func newVWRRSAnalyzer(_ config.AnalyzerSpec, deps Deps) (Analyzer, error) {
	if deps.Reference == nil {
		return nil, fmt.Errorf("%w: vwrrs requires a reference loader", ErrInvalidParams)
	}
	return &vwrrsAnalyzer{reference: deps.Reference}, nil
}

func (a *vwrrsAnalyzer) Name() string             { return IndicatorVWRRS }
func (a *vwrrsAnalyzer) IndicatorTypes() []string { return []string{IndicatorVWRRS} }

func (a *vwrrsAnalyzer) AlertTypes() []string {
	return []string{AlertVWRRSStrength, AlertVWRRSWeakness}
}

func (a *vwrrsAnalyzer) Analyze(ctx context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	if len(candles) == 0 {
		return []*models.Candle{}, nil
	}

	first, last := candles[0], candles[len(candles)-1]
	reference, err := a.reference.LoadReference(ctx, first.PeriodType, first.Period, last.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference series: %w", err)
	}

	values, err := indicator.VWRRS(candles, reference)
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	zero := models.Some(0)
	var prev models.Value
	for i, c := range out {
		c.SetIndicator(IndicatorVWRRS, values[i])

		up, down := crossed(prev, zero, values[i], zero)
		if up {
			c.AddAlert(AlertVWRRSStrength)
		}
		if down {
			c.AddAlert(AlertVWRRSWeakness)
		}
		prev = values[i]
	}
	return out, nil
}
