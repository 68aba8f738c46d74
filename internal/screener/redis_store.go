package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
)

const (
	// DefaultRedisQueryKeyPrefix is the default prefix for query keys in Redis
	DefaultRedisQueryKeyPrefix = "screener:queries:"
	// DefaultRedisQuerySetKey is the default key for the set of all query IDs
	DefaultRedisQuerySetKey = "screener:query_ids"
)

// RedisQueryStoreConfig holds configuration for RedisQueryStore
type RedisQueryStoreConfig struct {
	KeyPrefix string        // Prefix for query keys (default: "screener:queries:")
	SetKey    string        // Key for the set of all query IDs (default: "screener:query_ids")
	TTL       time.Duration // TTL for query keys (0 = no expiry)
}

// DefaultRedisQueryStoreConfig returns default configuration
func DefaultRedisQueryStoreConfig() RedisQueryStoreConfig {
	return RedisQueryStoreConfig{
		KeyPrefix: DefaultRedisQueryKeyPrefix,
		SetKey:    DefaultRedisQuerySetKey,
	}
}

// RedisQueryStore is a Redis-backed implementation of QueryStore.
// Queries are stored as JSON under {prefix}{id}; a set keeps every ID.
type RedisQueryStore struct {
	redis  storage.RedisClient
	config RedisQueryStoreConfig
}

// NewRedisQueryStore creates a new Redis-backed query store
func NewRedisQueryStore(redis storage.RedisClient, config RedisQueryStoreConfig) (*RedisQueryStore, error) {
	if redis == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultRedisQueryKeyPrefix
	}
	if config.SetKey == "" {
		config.SetKey = DefaultRedisQuerySetKey
	}
	return &RedisQueryStore{redis: redis, config: config}, nil
}

func (s *RedisQueryStore) key(id string) string {
	return s.config.KeyPrefix + id
}

// GetQuery retrieves a saved query by ID from Redis
func (s *RedisQueryStore) GetQuery(ctx context.Context, id string) (*models.SavedQuery, error) {
	if id == "" {
		return nil, fmt.Errorf("query ID cannot be empty")
	}

	exists, err := s.redis.Exists(ctx, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("failed to check query in Redis: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}

	var q models.SavedQuery
	if err := s.redis.GetJSON(ctx, s.key(id), &q); err != nil {
		return nil, fmt.Errorf("failed to get query from Redis: %w", err)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query data in Redis: %w", err)
	}
	return &q, nil
}

// ListQueries retrieves every saved query from Redis. Entries that cannot be
// read are logged and skipped.
func (s *RedisQueryStore) ListQueries(ctx context.Context) ([]*models.SavedQuery, error) {
	ids, err := s.redis.SetMembers(ctx, s.config.SetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get query IDs from Redis: %w", err)
	}

	queries := make([]*models.SavedQuery, 0, len(ids))
	for _, id := range ids {
		q, err := s.GetQuery(ctx, id)
		if err != nil {
			logger.Warn("Failed to get screener query",
				logger.String("query_id", id),
				logger.ErrorField(err),
			)
			continue
		}
		queries = append(queries, q)
	}
	sort.Slice(queries, func(i, j int) bool { return queries[i].ID < queries[j].ID })
	return queries, nil
}

// SaveQuery creates or replaces a saved query in Redis
func (s *RedisQueryStore) SaveQuery(ctx context.Context, q *models.SavedQuery) error {
	if q == nil {
		return fmt.Errorf("query cannot be nil")
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	existing, err := s.GetQuery(ctx, q.ID)
	if err != nil && !errors.Is(err, ErrQueryNotFound) {
		return fmt.Errorf("failed to load existing query: %w", err)
	}
	stamp(q, existing)

	if err := s.redis.Set(ctx, s.key(q.ID), q, s.config.TTL); err != nil {
		return fmt.Errorf("failed to store query in Redis: %w", err)
	}
	if err := s.redis.SetAdd(ctx, s.config.SetKey, q.ID); err != nil {
		if delErr := s.redis.Delete(ctx, s.key(q.ID)); delErr != nil {
			logger.Error("Failed to roll back screener query after set update failure",
				logger.String("query_id", q.ID),
				logger.ErrorField(delErr),
			)
		}
		return fmt.Errorf("failed to add query ID to set: %w", err)
	}

	logger.Debug("Saved screener query",
		logger.String("query_id", q.ID),
		logger.String("query_name", q.Name),
	)
	return nil
}

// DeleteQuery deletes a saved query from Redis
func (s *RedisQueryStore) DeleteQuery(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("query ID cannot be empty")
	}

	exists, err := s.redis.Exists(ctx, s.key(id))
	if err != nil {
		return fmt.Errorf("failed to check query in Redis: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}

	if err := s.redis.Delete(ctx, s.key(id)); err != nil {
		return fmt.Errorf("failed to delete query from Redis: %w", err)
	}
	if err := s.redis.SetRemove(ctx, s.config.SetKey, id); err != nil {
		return fmt.Errorf("failed to remove query ID from set: %w", err)
	}
	return nil
}
