package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// ErrQueryNotFound is returned when a saved query does not exist
var ErrQueryNotFound = errors.New("screener query not found")

// QueryStore persists saved screener queries
type QueryStore interface {
	// GetQuery retrieves a saved query by ID
	GetQuery(ctx context.Context, id string) (*models.SavedQuery, error)

	// ListQueries retrieves every saved query, sorted by ID
	ListQueries(ctx context.Context) ([]*models.SavedQuery, error)

	// SaveQuery creates or replaces a saved query
	SaveQuery(ctx context.Context, q *models.SavedQuery) error

	// DeleteQuery deletes a saved query by ID
	DeleteQuery(ctx context.Context, id string) error
}

// LoadSaved fetches a saved query and parses its definition. A malformed
// definition yields a nil Query (no filter) rather than an error.
func LoadSaved(ctx context.Context, store QueryStore, id string) (*models.SavedQuery, *Query, error) {
	saved, err := store.GetQuery(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return saved, LoadQuery(saved.Definition), nil
}

// InMemoryQueryStore is an in-memory implementation of QueryStore
type InMemoryQueryStore struct {
	mu      sync.RWMutex
	queries map[string]*models.SavedQuery
}

// NewInMemoryQueryStore creates an empty in-memory query store
func NewInMemoryQueryStore() *InMemoryQueryStore {
	return &InMemoryQueryStore{
		queries: make(map[string]*models.SavedQuery),
	}
}

func (s *InMemoryQueryStore) GetQuery(ctx context.Context, id string) (*models.SavedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, exists := s.queries[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	return copyQuery(q), nil
}

func (s *InMemoryQueryStore) ListQueries(ctx context.Context) ([]*models.SavedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.SavedQuery, 0, len(s.queries))
	for _, q := range s.queries {
		out = append(out, copyQuery(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryQueryStore) SaveQuery(ctx context.Context, q *models.SavedQuery) error {
	if q == nil {
		return fmt.Errorf("query cannot be nil")
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(q, s.queries[q.ID])
	s.queries[q.ID] = copyQuery(q)
	return nil
}

func (s *InMemoryQueryStore) DeleteQuery(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.queries[id]; !exists {
		return fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	delete(s.queries, id)
	return nil
}

// stamp sets CreatedAt/UpdatedAt, preserving CreatedAt of an existing query
func stamp(q, existing *models.SavedQuery) {
	now := time.Now().UTC()
	switch {
	case existing != nil:
		q.CreatedAt = existing.CreatedAt
	case q.CreatedAt.IsZero():
		q.CreatedAt = now
	}
	q.UpdatedAt = now
}

func copyQuery(q *models.SavedQuery) *models.SavedQuery {
	cp := *q
	if q.Definition != nil {
		cp.Definition = append([]byte(nil), q.Definition...)
	}
	return &cp
}
