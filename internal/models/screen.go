package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SortOrder represents the sort order for screener rankings
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// ParseSortOrder parses "asc" or "desc", case-insensitively
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortOrderAsc, SortOrderDesc:
		return order, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortOrder, s)
	}
}

// SavedQuery is a persisted screener query. Definition holds the raw query
// tree; it is validated when the query is loaded, not when it is stored.
type SavedQuery struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	PeriodType  PeriodType      `json:"period_type"`
	OrderBy     string          `json:"order_by,omitempty"` // indicator key or #field
	SortOrder   SortOrder       `json:"sort_order,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	Definition  json.RawMessage `json:"definition"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate validates the envelope of a SavedQuery
func (q *SavedQuery) Validate() error {
	if q.ID == "" {
		return ErrInvalidQueryID
	}
	if q.Name == "" {
		return ErrInvalidQueryName
	}
	if !q.PeriodType.Valid() {
		return ErrInvalidPeriodType
	}
	return nil
}

// ScreenResult is a single symbol that matched a screener query
type ScreenResult struct {
	Symbol string  `json:"symbol"`
	Rank   int     `json:"rank"`
	Value  Value   `json:"value"` // The OrderBy value used for ranking
	Candle *Candle `json:"candle"`
}
