package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

type seriesKey struct {
	symbol string
	pt     models.PeriodType
}

// MemoryCandleStorage is an in-process CandleStorage used for tests and dry runs.
// It stores and returns deep copies.
type MemoryCandleStorage struct {
	mu     sync.RWMutex
	series map[seriesKey][]*models.Candle

	// Injected failures for tests
	LoadErr  error
	WriteErr error
}

// NewMemoryCandleStorage creates an empty in-memory storage
func NewMemoryCandleStorage() *MemoryCandleStorage {
	return &MemoryCandleStorage{
		series: make(map[seriesKey][]*models.Candle),
	}
}

// LoadCandles retrieves all candles of one period type for a symbol
func (m *MemoryCandleStorage) LoadCandles(ctx context.Context, symbol string, pt models.PeriodType) ([]*models.Candle, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.CloneAll(m.series[seriesKey{symbol, pt}]), nil
}

// LoadRange retrieves candles with from <= period <= to
func (m *MemoryCandleStorage) LoadRange(ctx context.Context, symbol string, pt models.PeriodType, from, to time.Time) ([]*models.Candle, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.Candle
	for _, c := range m.series[seriesKey{symbol, pt}] {
		if !c.Period.Before(from) && !c.Period.After(to) {
			result = append(result, c.Clone())
		}
	}
	return result, nil
}

// LatestCandle retrieves the most recent candle, or nil when there is none
func (m *MemoryCandleStorage) LatestCandle(ctx context.Context, symbol string, pt models.PeriodType) (*models.Candle, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	candles := m.series[seriesKey{symbol, pt}]
	if len(candles) == 0 {
		return nil, nil
	}
	return candles[len(candles)-1].Clone(), nil
}

// UpsertBars writes OHLCV and truncated values; existing candles keep their
// indicators and alerts
func (m *MemoryCandleStorage) UpsertBars(ctx context.Context, candles []*models.Candle) (UpsertResult, error) {
	var result UpsertResult
	if m.WriteErr != nil {
		return result, m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[seriesKey]bool)
	for _, c := range candles {
		key := seriesKey{c.Symbol, c.PeriodType}
		if existing := m.find(key, c.Period); existing != nil {
			existing.Open, existing.High, existing.Low, existing.Close = c.Open, c.High, c.Low, c.Close
			existing.Volume = c.Volume
			existing.TruncatedValues = c.Clone().TruncatedValues
			result.Updated++
			continue
		}
		stored := c.Bare()
		stored.TruncatedValues = c.Clone().TruncatedValues
		m.series[key] = append(m.series[key], stored)
		touched[key] = true
		result.Inserted++
	}

	for key := range touched {
		models.SortByPeriod(m.series[key])
	}
	return result, nil
}

// SaveAnnotations replaces the annotations of existing candles
func (m *MemoryCandleStorage) SaveAnnotations(ctx context.Context, candles []*models.Candle) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range candles {
		existing := m.find(seriesKey{c.Symbol, c.PeriodType}, c.Period)
		if existing == nil {
			continue
		}
		annotated := c.Clone()
		existing.Indicators = annotated.Indicators
		existing.Alerts = annotated.Alerts
		existing.TruncatedValues = annotated.TruncatedValues
	}
	return nil
}

// ClearAnnotations removes every annotation of a symbol's period type
func (m *MemoryCandleStorage) ClearAnnotations(ctx context.Context, symbol string, pt models.PeriodType) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := seriesKey{symbol, pt}
	for i, c := range m.series[key] {
		m.series[key][i] = c.Bare()
	}
	return nil
}

// ListSymbols returns the symbols that have candles of a period type
func (m *MemoryCandleStorage) ListSymbols(ctx context.Context, pt models.PeriodType) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var symbols []string
	for key, candles := range m.series {
		if key.pt == pt && len(candles) > 0 {
			symbols = append(symbols, key.symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Close is a no-op
func (m *MemoryCandleStorage) Close() error {
	return nil
}

// find returns the stored candle at period; callers hold the lock
func (m *MemoryCandleStorage) find(key seriesKey, period time.Time) *models.Candle {
	candles := m.series[key]
	i := sort.Search(len(candles), func(i int) bool {
		return !candles[i].Period.Before(period)
	})
	if i < len(candles) && candles[i].Period.Equal(period) {
		return candles[i]
	}
	return nil
}
