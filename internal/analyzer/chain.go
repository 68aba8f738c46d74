package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"go.uber.org/zap"
)

// Chain runs analyzers in order, feeding each the output of the last one that succeeded
type Chain struct {
	analyzers []Analyzer
}

// Result is the outcome of a chain run
type Result struct {
	Candles []*models.Candle
	Errors  []string
}

// NewChain creates a chain from analyzers, run in the given order
func NewChain(analyzers ...Analyzer) *Chain {
	return &Chain{analyzers: analyzers}
}

// Analyzers returns the chain stages
func (c *Chain) Analyzers() []Analyzer {
	return c.analyzers
}

// IndicatorTypes lists every indicator key the chain may write
func (c *Chain) IndicatorTypes() []string {
	var out []string
	for _, a := range c.analyzers {
		out = append(out, a.IndicatorTypes()...)
	}
	return out
}

// AlertTypes lists every alert key the chain may flag
func (c *Chain) AlertTypes() []string {
	var out []string
	for _, a := range c.analyzers {
		out = append(out, a.AlertTypes()...)
	}
	return out
}

// Run folds candles through every stage. A stage that returns an error, panics,
// or breaks the length/period ordering of the series is recorded as one error
// and skipped; the next stage receives the previous output. Run only stops early
// when ctx is done.
func (c *Chain) Run(ctx context.Context, candles []*models.Candle) Result {
	result := Result{Candles: candles}
	log := logger.WithContext(ctx)

	for _, a := range c.analyzers {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("chain cancelled before %s: %v", a.Name(), err))
			return result
		}

		start := time.Now()
		out, err := runStage(ctx, a, result.Candles)
		stageDuration.WithLabelValues(a.Name()).Observe(time.Since(start).Seconds())

		if err == nil {
			err = checkStage(result.Candles, out)
		}
		if err != nil {
			stageFailures.WithLabelValues(a.Name()).Inc()
			log.Warn("Analyzer failed, skipping",
				zap.String("analyzer", a.Name()),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", a.Name(), err))
			continue
		}

		result.Candles = out
	}

	return result
}

// runStage calls the analyzer and converts a panic into an error
func runStage(ctx context.Context, a Analyzer, candles []*models.Candle) (out []*models.Candle, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.Analyze(ctx, candles)
}

// checkStage verifies a stage kept one output candle per input candle, in order
func checkStage(in, out []*models.Candle) error {
	if len(out) != len(in) {
		return fmt.Errorf("returned %d candles for %d inputs", len(out), len(in))
	}
	for i := range in {
		if out[i] == nil {
			return fmt.Errorf("returned nil candle at index %d", i)
		}
		if !out[i].Period.Equal(in[i].Period) {
			return fmt.Errorf("reordered candles at index %d", i)
		}
	}
	return nil
}
