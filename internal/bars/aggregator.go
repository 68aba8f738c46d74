package bars

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// ErrNotFiner is returned when a derivation source is not finer than its target
var ErrNotFiner = errors.New("source period type must be finer than target")

// BucketStart returns the start of the target period containing t. Buckets are
// computed on the UTC calendar whatever t's location, so the same instant always
// maps to the same bucket key. Weeks start on Monday.
func BucketStart(t time.Time, target models.PeriodType) (time.Time, error) {
	t = t.UTC()
	y, m, d := t.Date()
	loc := time.UTC

	switch target {
	case models.PeriodM1, models.PeriodM5, models.PeriodM15, models.PeriodM30:
		step := int(target.Duration() / time.Minute)
		minute := t.Minute() - t.Minute()%step
		return time.Date(y, m, d, t.Hour(), minute, 0, 0, loc), nil
	case models.PeriodH:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc), nil
	case models.PeriodD:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case models.PeriodW:
		offset := (int(t.Weekday()) + 6) % 7 // days since Monday
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc), nil
	case models.PeriodM:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), nil
	case models.PeriodY:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidPeriodType, target)
	}
}

// Aggregate groups source candles into target buckets. Open is the first open,
// high the max, low the min, close the last close and volume the sum, all in
// chronological order. The result carries no annotations.
func Aggregate(source []*models.Candle, target models.PeriodType) ([]*models.Candle, error) {
	sorted := make([]*models.Candle, len(source))
	copy(sorted, source)
	models.SortByPeriod(sorted)

	var out []*models.Candle
	var current *models.Candle

	for _, c := range sorted {
		if current != nil && current.Symbol != c.Symbol {
			return nil, fmt.Errorf("cannot aggregate mixed symbols %s and %s", current.Symbol, c.Symbol)
		}
		if !c.PeriodType.Less(target) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrNotFiner, c.PeriodType, target)
		}

		start, err := BucketStart(c.Period, target)
		if err != nil {
			return nil, err
		}

		if current == nil || !current.Period.Equal(start) {
			current = models.NewCandle(c.Symbol, target, start, c.Open, c.High, c.Low, c.Close, c.Volume)
			out = append(out, current)
			continue
		}

		if c.High > current.High {
			current.High = c.High
		}
		if c.Low < current.Low {
			current.Low = c.Low
		}
		current.Close = c.Close
		current.Volume += c.Volume
	}

	return out, nil
}
