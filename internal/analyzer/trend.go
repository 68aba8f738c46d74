package analyzer

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/indicator"
)

// Alert keys flagged by the trend analyzers
const (
	AlertEMACrossUp   = "ema_cross_up"
	AlertEMACrossDown = "ema_cross_down"
)

// smaAnalyzer writes a simple moving average of the close
type smaAnalyzer struct {
	period int
	name   string
}

func newSMAAnalyzer(spec config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	period, err := periodParam(spec, "period", 20)
	if err != nil {
		return nil, err
	}
	return &smaAnalyzer{period: period, name: fmt.Sprintf("sma_%d", period)}, nil
}

func (a *smaAnalyzer) Name() string             { return a.name }
func (a *smaAnalyzer) IndicatorTypes() []string { return []string{a.name} }
func (a *smaAnalyzer) AlertTypes() []string     { return nil }

func (a *smaAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	sma, err := indicator.NewSMA(a.period)
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	for _, c := range out {
		c.SetIndicator(a.name, sma.Push(c.Close))
	}
	return out, nil
}

// emaCrossAnalyzer writes a fast and a slow EMA of the close and flags their crossings
type emaCrossAnalyzer struct {
	fast, slow         int
	fastName, slowName string
}

func newEMACrossAnalyzer(spec config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	fast, err := periodParam(spec, "fast", 9)
	if err != nil {
		return nil, err
	}
	slow, err := periodParam(spec, "slow", 21)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast period %d must be below slow period %d", ErrInvalidParams, fast, slow)
	}
	return &emaCrossAnalyzer{
		fast:     fast,
		slow:     slow,
		fastName: fmt.Sprintf("ema_%d", fast),
		slowName: fmt.Sprintf("ema_%d", slow),
	}, nil
}

func (a *emaCrossAnalyzer) Name() string {
	return fmt.Sprintf("ema_cross_%d_%d", a.fast, a.slow)
}

func (a *emaCrossAnalyzer) IndicatorTypes() []string {
	return []string{a.fastName, a.slowName}
}

func (a *emaCrossAnalyzer) AlertTypes() []string {
	return []string{AlertEMACrossUp, AlertEMACrossDown}
}

func (a *emaCrossAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	fast, err := indicator.NewEMA(a.fast)
	if err != nil {
		return nil, err
	}
	slow, err := indicator.NewEMA(a.slow)
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	var prevFast, prevSlow models.Value
	for _, c := range out {
		f := fast.Push(c.Close)
		s := slow.Push(c.Close)
		c.SetIndicator(a.fastName, f)
		c.SetIndicator(a.slowName, s)

		up, down := crossed(prevFast, prevSlow, f, s)
		if up {
			c.AddAlert(AlertEMACrossUp)
		}
		if down {
			c.AddAlert(AlertEMACrossDown)
		}
		prevFast, prevSlow = f, s
	}
	return out, nil
}

// rsiAnalyzer writes the techan relative strength index of the close
type rsiAnalyzer struct {
	period int
	name   string
}

func newRSIAnalyzer(spec config.AnalyzerSpec, _ Deps) (Analyzer, error) {
	period, err := periodParam(spec, "period", 14)
	if err != nil {
		return nil, err
	}
	if period < 2 {
		return nil, fmt.Errorf("%w: RSI period must be at least 2", ErrInvalidParams)
	}
	return &rsiAnalyzer{period: period, name: fmt.Sprintf("rsi_%d", period)}, nil
}

func (a *rsiAnalyzer) Name() string             { return a.name }
func (a *rsiAnalyzer) IndicatorTypes() []string { return []string{a.name} }
func (a *rsiAnalyzer) AlertTypes() []string     { return nil }

func (a *rsiAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	values, err := indicator.TechanRSI(candles, a.period)
	if err != nil {
		return nil, err
	}

	out := models.CloneAll(candles)
	for i, c := range out {
		c.SetIndicator(a.name, values[i])
	}
	return out, nil
}
