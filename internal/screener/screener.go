package screener

import (
	"context"
	"fmt"
	"sort"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
)

// ScreenOptions controls ranking of screener matches
type ScreenOptions struct {
	OrderBy   string           // indicator key or #field; empty keeps symbol order
	SortOrder models.SortOrder // default desc
	Limit     int              // 0 = unlimited
}

// Screener evaluates queries against the latest candle of each symbol
type Screener struct {
	store storage.CandleStorage
}

// NewScreener creates a screener reading from the candle store
func NewScreener(store storage.CandleStorage) *Screener {
	return &Screener{store: store}
}

// Screen returns the symbols whose latest candle of the period type matches the
// query, ranked by opts. An empty symbol list screens every stored symbol.
func (s *Screener) Screen(ctx context.Context, q *Query, symbols []string, pt models.PeriodType, opts ScreenOptions) ([]models.ScreenResult, error) {
	if !pt.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPeriodType, pt)
	}

	var orderBy *operand
	if opts.OrderBy != "" {
		o, err := parseOperandString(opts.OrderBy)
		if err != nil {
			return nil, fmt.Errorf("invalid order by: %w", err)
		}
		orderBy = &o
	}

	if len(symbols) == 0 {
		var err error
		symbols, err = s.store.ListSymbols(ctx, pt)
		if err != nil {
			return nil, fmt.Errorf("failed to list symbols: %w", err)
		}
	}

	results := make([]models.ScreenResult, 0)
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candle, err := s.store.LatestCandle(ctx, symbol, pt)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest candle for %s: %w", symbol, err)
		}
		if candle == nil {
			screenedSymbols.WithLabelValues(string(pt), "no_data").Inc()
			continue
		}
		if !q.Evaluate(candle) {
			screenedSymbols.WithLabelValues(string(pt), "no_match").Inc()
			continue
		}
		screenedSymbols.WithLabelValues(string(pt), "match").Inc()

		result := models.ScreenResult{Symbol: symbol, Candle: candle}
		if orderBy != nil {
			if v, ok := orderBy.resolve(candle); ok {
				result.Value = models.Some(v)
			}
		}
		results = append(results, result)
	}

	if orderBy != nil {
		rank(results, opts.SortOrder)
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	logger.Debug("Screen completed",
		logger.String("period_type", string(pt)),
		logger.Int("symbols", len(symbols)),
		logger.Int("matches", len(results)),
	)
	return results, nil
}

// rank sorts results by value, missing values last and ties by symbol
func rank(results []models.ScreenResult, order models.SortOrder) {
	asc := order == models.SortOrderAsc
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Value, results[j].Value
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid && a.Float64 != b.Float64 {
			if asc {
				return a.Float64 < b.Float64
			}
			return a.Float64 > b.Float64
		}
		return results[i].Symbol < results[j].Symbol
	})
}
