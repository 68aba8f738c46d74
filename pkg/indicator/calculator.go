package indicator

import (
	"math"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// Calculator is the interface for streaming technical indicators.
// Each indicator keeps its own state and must not be shared across symbols.
type Calculator interface {
	// Name returns the indicator key written into candle annotations (e.g., "sma_20")
	Name() string

	// Update feeds the next candle and returns the new reading, or an empty
	// value while the indicator is warming up
	Update(c *models.Candle) (models.Value, error)

	// Reset clears the indicator state
	Reset()

	// IsReady returns true once the indicator produces values
	IsReady() bool
}

// WindowedCalculator extends Calculator for indicators that require a window of bars
type WindowedCalculator interface {
	Calculator

	// WindowSize returns the number of bars required for this indicator
	WindowSize() int

	// BarsProcessed returns the number of bars processed so far
	BarsProcessed() int
}

// finite maps NaN/Inf readings to an empty value
func finite(v float64) models.Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.None()
	}
	return models.Some(v)
}
