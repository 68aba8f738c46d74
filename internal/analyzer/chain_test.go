package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyzer runs fn as its Analyze
type stubAnalyzer struct {
	name string
	fn   func(candles []*models.Candle) ([]*models.Candle, error)
}

func (s *stubAnalyzer) Name() string             { return s.name }
func (s *stubAnalyzer) IndicatorTypes() []string { return []string{s.name} }
func (s *stubAnalyzer) AlertTypes() []string     { return nil }

func (s *stubAnalyzer) Analyze(_ context.Context, candles []*models.Candle) ([]*models.Candle, error) {
	return s.fn(candles)
}

// constant writes value under its name on every candle
func constant(name string, value float64) *stubAnalyzer {
	return &stubAnalyzer{name: name, fn: func(candles []*models.Candle) ([]*models.Candle, error) {
		out := models.CloneAll(candles)
		for _, c := range out {
			c.SetIndicator(name, models.Some(value))
		}
		return out, nil
	}}
}

func failing(name string) *stubAnalyzer {
	return &stubAnalyzer{name: name, fn: func([]*models.Candle) ([]*models.Candle, error) {
		return nil, errors.New("boom")
	}}
}

func series(closes ...float64) []*models.Candle {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	out := make([]*models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.NewCandle("AAPL", models.PeriodD, start.AddDate(0, 0, i), c, c+1, c-1, c, 1000)
	}
	return out
}

func TestChain_IsolatesFailingStage(t *testing.T) {
	chain := NewChain(constant("first", 1), failing("second"), constant("third", 3))
	input := series(10, 11, 12)

	result := chain.Run(context.Background(), input)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "second")
	require.Len(t, result.Candles, 3)

	for _, c := range result.Candles {
		want := map[string]models.Value{"first": models.Some(1), "third": models.Some(3)}
		if diff := cmp.Diff(want, c.Indicators); diff != "" {
			t.Errorf("indicators mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestChain_DoesNotMutateInput(t *testing.T) {
	input := series(10, 11)
	before := models.CloneAll(input)

	result := NewChain(constant("x", 1)).Run(context.Background(), input)
	require.Empty(t, result.Errors)

	if diff := cmp.Diff(before, input); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestChain_RecoversPanic(t *testing.T) {
	panicking := &stubAnalyzer{name: "panicky", fn: func([]*models.Candle) ([]*models.Candle, error) {
		panic("index out of range")
	}}

	result := NewChain(panicking, constant("after", 2)).Run(context.Background(), series(1, 2))

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "panic")
	v, ok := result.Candles[0].Indicator("after")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestChain_RejectsShapeViolations(t *testing.T) {
	truncating := &stubAnalyzer{name: "truncating", fn: func(candles []*models.Candle) ([]*models.Candle, error) {
		return candles[:1], nil
	}}
	reversing := &stubAnalyzer{name: "reversing", fn: func(candles []*models.Candle) ([]*models.Candle, error) {
		out := models.CloneAll(candles)
		out[0], out[1] = out[1], out[0]
		return out, nil
	}}

	input := series(1, 2, 3)
	result := NewChain(truncating, reversing).Run(context.Background(), input)

	assert.Len(t, result.Errors, 2)
	assert.Equal(t, input, result.Candles)
}

func TestChain_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewChain(constant("x", 1), constant("y", 2)).Run(ctx, series(1))

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "cancelled")
	_, ok := result.Candles[0].Indicator("x")
	assert.False(t, ok)
}

func TestChain_EmptyInput(t *testing.T) {
	result := NewChain(constant("x", 1)).Run(context.Background(), []*models.Candle{})
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Candles)
}

func TestChain_Types(t *testing.T) {
	chain := NewChain(constant("a", 1), constant("b", 1))
	assert.Equal(t, []string{"a", "b"}, chain.IndicatorTypes())
	assert.Empty(t, chain.AlertTypes())
	assert.Len(t, chain.Analyzers(), 2)
}
