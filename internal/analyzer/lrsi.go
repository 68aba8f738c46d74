package analyzer

import (
	"context"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/indicator"
)

// Indicator keys written by the LRSI analyzer
const (
	IndicatorLRSIFast = "lrsi_fast"
	IndicatorLRSISlow = "lrsi_slow"
)

// LRSIAlertTypes lists every alert key the LRSI analyzer can flag, in the form
// lrsi_<fast|slow>_<transition>
func LRSIAlertTypes() []string {
	transitions := indicator.LRSITransitions()
	out := make([]string, 0, 2*len(transitions))
	for _, speed := range []string{"fast", "slow"} {
		for _, t := range transitions {
			out = append(out, lrsiAlert(speed, t))
		}
	}
	return out
}

func lrsiAlert(speed, transition string) string {
	return "lrsi_" + speed + "_" + transition
}

// lrsiAnalyzer writes a fast and a slow Laguerre RSI and flags level transitions
type lrsiAnalyzer struct {
	fastGamma, slowGamma float64
	overbought, oversold float64
}

func newLRSIAnalyzer(spec config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	a := &lrsiAnalyzer{
		fastGamma:  spec.Param("fast_gamma", 0.2),
		slowGamma:  spec.Param("slow_gamma", 0.8),
		overbought: spec.Param("overbought", 0.8),
		oversold:   spec.Param("oversold", 0.2),
	}
	// Validate the parameters once at build time
	if _, err := a.newLRSI(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *lrsiAnalyzer) newLRSI() (*indicator.LRSI, error) {
	return indicator.NewLRSI(a.fastGamma, a.slowGamma, a.overbought, a.oversold)
}

func (a *lrsiAnalyzer) Name() string { return "lrsi" }

func (a *lrsiAnalyzer) IndicatorTypes() []string {
	return []string{IndicatorLRSIFast, IndicatorLRSISlow}
}

func (a *lrsiAnalyzer) AlertTypes() []string { return LRSIAlertTypes() }

func (a *lrsiAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	lrsi, err := a.newLRSI()
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	for _, c := range out {
		r := lrsi.Push(c.Close)
		c.SetIndicator(IndicatorLRSIFast, r.Fast)
		c.SetIndicator(IndicatorLRSISlow, r.Slow)
		for _, t := range r.FastTransitions {
			c.AddAlert(lrsiAlert("fast", t))
		}
		for _, t := range r.SlowTransitions {
			c.AddAlert(lrsiAlert("slow", t))
		}
	}
	return out, nil
}
