package indicator

import (
	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// VWAPAccumulator is a cumulative volume weighted average price.
// Typical price is (O+H+L+C)/4; VWAP = Sum(TP * Volume) / Sum(Volume).
type VWAPAccumulator struct {
	totalPriceVolume float64
	totalVolume      float64
}

// NewVWAPAccumulator creates an empty accumulator
func NewVWAPAccumulator() *VWAPAccumulator {
	return &VWAPAccumulator{}
}

// Push adds a candle and returns the cumulative VWAP so far.
// The result is empty while the cumulative volume is zero.
func (v *VWAPAccumulator) Push(c *models.Candle) models.Value {
	v.totalPriceVolume += c.TypicalPrice() * float64(c.Volume)
	v.totalVolume += float64(c.Volume)

	if v.totalVolume == 0 {
		return models.None()
	}
	return finite(v.totalPriceVolume / v.totalVolume)
}

// Reset clears the accumulator
func (v *VWAPAccumulator) Reset() {
	v.totalPriceVolume = 0
	v.totalVolume = 0
}

// VWAP folds a whole candle series into its cumulative VWAP readings,
// one per candle
func VWAP(candles []*models.Candle) []models.Value {
	acc := NewVWAPAccumulator()
	out := make([]models.Value, len(candles))
	for i, c := range candles {
		out[i] = acc.Push(c)
	}
	return out
}
