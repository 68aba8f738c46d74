package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// SMA calculates the Simple Moving Average
// SMA = Sum of values over period / period
type SMA struct {
	period    int
	name      string
	values    []float64 // Rolling window of values
	ready     bool
	processed int
}

// NewSMA creates a new SMA calculator with the specified period
func NewSMA(period int) (*SMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("SMA period must be at least 1, got %d", period)
	}

	return &SMA{
		period: period,
		name:   fmt.Sprintf("sma_%d", period),
		values: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name
func (s *SMA) Name() string {
	return s.name
}

// Push adds a value to the window and returns the mean once period values were seen
func (s *SMA) Push(value float64) models.Value {
	s.values = append(s.values, value)
	s.processed++

	// Remove oldest if we exceed period
	if len(s.values) > s.period {
		copy(s.values, s.values[1:])
		s.values = s.values[:len(s.values)-1]
	}

	if len(s.values) < s.period {
		return models.None()
	}

	s.ready = true
	return finite(s.calculateSMA())
}

// Update feeds the candle's close price
func (s *SMA) Update(c *models.Candle) (models.Value, error) {
	if c == nil {
		return models.None(), fmt.Errorf("candle cannot be nil")
	}
	return s.Push(c.Close), nil
}

// calculateSMA computes the SMA value
func (s *SMA) calculateSMA() float64 {
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(len(s.values))
}

// Reset clears the SMA state
func (s *SMA) Reset() {
	s.values = s.values[:0]
	s.ready = false
	s.processed = 0
}

// IsReady returns true if the SMA has enough data
func (s *SMA) IsReady() bool {
	return s.ready
}

// WindowSize returns the period (number of bars required)
func (s *SMA) WindowSize() int {
	return s.period
}

// BarsProcessed returns the number of bars processed
func (s *SMA) BarsProcessed() int {
	return s.processed
}
