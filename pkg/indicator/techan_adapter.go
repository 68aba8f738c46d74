package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// NewTimeSeries converts candles into a techan.TimeSeries.
// Candles must be in chronological order.
func NewTimeSeries(candles []*models.Candle) (*techan.TimeSeries, error) {
	series := techan.NewTimeSeries()

	for i, c := range candles {
		duration := c.PeriodType.Duration()
		if duration == 0 {
			duration = 24 * time.Hour
		}

		candle := techan.NewCandle(techan.NewTimePeriod(c.Period, duration))
		candle.OpenPrice = big.NewDecimal(c.Open)
		candle.MaxPrice = big.NewDecimal(c.High)
		candle.MinPrice = big.NewDecimal(c.Low)
		candle.ClosePrice = big.NewDecimal(c.Close)
		candle.Volume = big.NewDecimal(float64(c.Volume))

		if !series.AddCandle(candle) {
			return nil, fmt.Errorf("candle %d (%s) is out of order", i, c.Period.Format(time.RFC3339))
		}
	}

	return series, nil
}

// TechanRSI computes the relative strength index (0-100) of the close price
// using techan. Readings before index period are empty.
func TechanRSI(candles []*models.Candle, period int) ([]models.Value, error) {
	if period < 2 {
		return nil, fmt.Errorf("RSI period must be at least 2, got %d", period)
	}

	series, err := NewTimeSeries(candles)
	if err != nil {
		return nil, err
	}

	rsi := techan.NewRelativeStrengthIndexIndicator(techan.NewClosePriceIndicator(series), period)

	out := make([]models.Value, len(candles))
	for i := range candles {
		if i < period {
			out[i] = models.None()
			continue
		}
		out[i] = finite(rsi.Calculate(i).Float())
	}

	return out, nil
}
