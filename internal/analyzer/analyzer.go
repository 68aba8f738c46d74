package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

var (
	// ErrUnknownAnalyzer is returned when a table names an analyzer type that is not registered
	ErrUnknownAnalyzer = errors.New("unknown analyzer type")

	// ErrInvalidParams is returned when an analyzer spec carries out of range parameters
	ErrInvalidParams = errors.New("invalid analyzer parameters")
)

// Analyzer annotates a chronological candle series with indicators and alerts.
// Analyze must not mutate its input; it returns a new series of the same length
// and period ordering.
type Analyzer interface {
	// Name identifies the analyzer in error messages and metrics (e.g., "sma_20")
	Name() string

	// IndicatorTypes lists the indicator keys this analyzer writes
	IndicatorTypes() []string

	// AlertTypes lists the alert keys this analyzer may flag
	AlertTypes() []string

	// Analyze returns the annotated copy of candles
	Analyze(ctx context.Context, candles []*models.Candle) ([]*models.Candle, error)
}

// ReferenceLoader loads the reference series (market or sector benchmark) used by
// comparative analyzers
type ReferenceLoader interface {
	LoadReference(ctx context.Context, periodType models.PeriodType, from, to time.Time) ([]*models.Candle, error)
}

// ReferenceLoaderFunc adapts a function to ReferenceLoader
type ReferenceLoaderFunc func(ctx context.Context, periodType models.PeriodType, from, to time.Time) ([]*models.Candle, error)

// LoadReference calls f
func (f ReferenceLoaderFunc) LoadReference(ctx context.Context, periodType models.PeriodType, from, to time.Time) ([]*models.Candle, error) {
	return f(ctx, periodType, from, to)
}

// Deps are the collaborators analyzers may need at build time
type Deps struct {
	Reference ReferenceLoader
}

// crossed reports an upward and a downward crossing of a over b between two bars
func crossed(prevA, prevB, a, b models.Value) (up, down bool) {
	if !prevA.Valid || !prevB.Valid || !a.Valid || !b.Valid {
		return false, false
	}
	up = prevA.Float64 <= prevB.Float64 && a.Float64 > b.Float64
	down = prevA.Float64 >= prevB.Float64 && a.Float64 < b.Float64
	return up, down
}
