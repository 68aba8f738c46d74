package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// EMA calculates the Exponential Moving Average
// EMA = (Value - Previous EMA) * Gamma + Previous EMA
type EMA struct {
	name      string
	gamma     float64
	value     float64
	ready     bool
	processed int
}

// NewEMA creates a new EMA calculator for a period, using gamma = 2 / (period + 1)
func NewEMA(period int) (*EMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("EMA period must be at least 1, got %d", period)
	}

	ema, err := NewEMAGamma(2.0 / float64(period+1))
	if err != nil {
		return nil, err
	}
	ema.name = fmt.Sprintf("ema_%d", period)
	return ema, nil
}

// NewEMAGamma creates a new EMA calculator with an explicit smoothing factor.
// A period of 1 gives gamma = 1, which simply tracks the input.
func NewEMAGamma(gamma float64) (*EMA, error) {
	if gamma <= 0 || gamma > 1 || math.IsNaN(gamma) {
		return nil, fmt.Errorf("EMA gamma must be in (0, 1], got %f", gamma)
	}

	return &EMA{
		name:  fmt.Sprintf("ema_g%g", gamma),
		gamma: gamma,
	}, nil
}

// Name returns the indicator name
func (e *EMA) Name() string {
	return e.name
}

// Push feeds the next value. The first value seeds the average.
func (e *EMA) Push(value float64) models.Value {
	e.processed++

	if !e.ready {
		e.value = value
		e.ready = true
		return finite(e.value)
	}

	e.value = (value-e.value)*e.gamma + e.value

	// Handle NaN/Inf
	if math.IsNaN(e.value) || math.IsInf(e.value, 0) {
		e.value = value // Fallback to current value
	}

	return finite(e.value)
}

// Update feeds the candle's close price
func (e *EMA) Update(c *models.Candle) (models.Value, error) {
	if c == nil {
		return models.None(), fmt.Errorf("candle cannot be nil")
	}
	return e.Push(c.Close), nil
}

// Value returns the current EMA value
func (e *EMA) Value() models.Value {
	if !e.ready {
		return models.None()
	}
	return models.Some(e.value)
}

// Reset clears the EMA state
func (e *EMA) Reset() {
	e.value = 0
	e.ready = false
	e.processed = 0
}

// IsReady returns true if the EMA has been seeded
func (e *EMA) IsReady() bool {
	return e.ready
}

// WindowSize returns 1 (EMA can start immediately)
func (e *EMA) WindowSize() int {
	return 1
}

// BarsProcessed returns the number of bars processed
func (e *EMA) BarsProcessed() int {
	return e.processed
}
