package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// ATR calculates Wilder's Average True Range.
// The first period true ranges are averaged; afterwards
// ATR = (Previous ATR * (period - 1) + TR) / period
type ATR struct {
	period    int
	name      string
	prevClose float64
	hasPrev   bool
	warmupSum float64
	value     float64
	processed int
}

// NewATR creates a new ATR calculator with the specified period
func NewATR(period int) (*ATR, error) {
	if period < 1 {
		return nil, fmt.Errorf("ATR period must be at least 1, got %d", period)
	}

	return &ATR{
		period: period,
		name:   fmt.Sprintf("atr_%d", period),
	}, nil
}

// Name returns the indicator name
func (a *ATR) Name() string {
	return a.name
}

// Update feeds the next candle
func (a *ATR) Update(c *models.Candle) (models.Value, error) {
	if c == nil {
		return models.None(), fmt.Errorf("candle cannot be nil")
	}

	tr := TrueRange(c.High, c.Low, a.prevClose, a.hasPrev)
	a.prevClose = c.Close
	a.hasPrev = true
	a.processed++

	if a.processed < a.period {
		a.warmupSum += tr
		return models.None(), nil
	}

	if a.processed == a.period {
		a.warmupSum += tr
		a.value = a.warmupSum / float64(a.period)
		return finite(a.value), nil
	}

	a.value = (a.value*float64(a.period-1) + tr) / float64(a.period)
	return finite(a.value), nil
}

// Reset clears the ATR state
func (a *ATR) Reset() {
	a.prevClose = 0
	a.hasPrev = false
	a.warmupSum = 0
	a.value = 0
	a.processed = 0
}

// IsReady returns true once period candles were seen
func (a *ATR) IsReady() bool {
	return a.processed >= a.period
}

// WindowSize returns the period
func (a *ATR) WindowSize() int {
	return a.period
}

// BarsProcessed returns the number of bars processed
func (a *ATR) BarsProcessed() int {
	return a.processed
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// Without a previous close it is simply high-low.
func TrueRange(high, low, prevClose float64, hasPrev bool) float64 {
	tr := high - low
	if !hasPrev {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}
