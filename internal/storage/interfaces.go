package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// CandleStorage defines the interface for candle storage operations.
// Every method returning candles returns them in chronological order.
type CandleStorage interface {
	// LoadCandles retrieves all candles of one period type for a symbol
	LoadCandles(ctx context.Context, symbol string, pt models.PeriodType) ([]*models.Candle, error)

	// LoadRange retrieves candles with from <= period <= to
	LoadRange(ctx context.Context, symbol string, pt models.PeriodType, from, to time.Time) ([]*models.Candle, error)

	// LatestCandle retrieves the most recent candle, or nil when there is none
	LatestCandle(ctx context.Context, symbol string, pt models.PeriodType) (*models.Candle, error)

	// UpsertBars writes OHLCV values and the truncated values recorded when
	// they were clamped. New candles are inserted without indicators or alerts;
	// existing candles keep theirs.
	UpsertBars(ctx context.Context, candles []*models.Candle) (UpsertResult, error)

	// SaveAnnotations replaces the indicators, alerts and truncated values of
	// existing candles
	SaveAnnotations(ctx context.Context, candles []*models.Candle) error

	// ClearAnnotations removes every annotation of a symbol's period type
	ClearAnnotations(ctx context.Context, symbol string, pt models.PeriodType) error

	// ListSymbols returns the symbols that have candles of a period type, sorted
	ListSymbols(ctx context.Context, pt models.PeriodType) ([]string, error)

	// Close closes the storage connection
	Close() error
}

// UpsertResult counts the rows touched by UpsertBars
type UpsertResult struct {
	Inserted int
	Updated  int
}

// RedisClient defines the interface for Redis operations
type RedisClient interface {
	// Stream operations
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error

	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Set operations
	SetAdd(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetRemove(ctx context.Context, key string, members ...string) error

	// Pub/Sub operations
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error)

	// Close closes the Redis connection
	Close() error
}

// PubSubMessage represents a message from Redis pub/sub
type PubSubMessage struct {
	Channel string
	Message string
}
