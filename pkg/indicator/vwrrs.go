package indicator

import (
	"errors"
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// ErrMisalignedSeries is returned when a subject and a reference series do not
// share the same periods. It indicates an upstream data bug and is never
// recovered from by truncation or interpolation.
var ErrMisalignedSeries = errors.New("series are not period-aligned")

// CheckAlignment verifies that both series have the same length and the same
// period at every index
func CheckAlignment(subject, reference []*models.Candle) error {
	if len(subject) != len(reference) {
		return fmt.Errorf("%w: length %d != %d", ErrMisalignedSeries, len(subject), len(reference))
	}
	for i := range subject {
		if !subject[i].Period.Equal(reference[i].Period) {
			return fmt.Errorf("%w: index %d has period %s, reference has %s",
				ErrMisalignedSeries, i,
				subject[i].Period.Format("2006-01-02 15:04"),
				reference[i].Period.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

// VWRRS computes the volume weighted relative strength of subject against
// reference. For each bar it is the spread, in percent, between the subject's
// close-to-VWAP ratio and the reference's close-to-VWAP ratio:
//
//	100 * (close_s / vwap_s - close_r / vwap_r)
//
// Positive readings mean the subject trades stronger than the reference.
func VWRRS(subject, reference []*models.Candle) ([]models.Value, error) {
	if err := CheckAlignment(subject, reference); err != nil {
		return nil, err
	}

	subjectVWAP := VWAP(subject)
	referenceVWAP := VWAP(reference)

	out := make([]models.Value, len(subject))
	for i := range subject {
		sv, rv := subjectVWAP[i], referenceVWAP[i]
		if !sv.Valid || !rv.Valid || sv.Float64 == 0 || rv.Float64 == 0 {
			out[i] = models.None()
			continue
		}
		spread := subject[i].Close/sv.Float64 - reference[i].Close/rv.Float64
		out[i] = finite(100 * spread)
	}

	return out, nil
}
