package models

import "errors"

var (
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrInvalidBar        = errors.New("invalid bar (high < low)")
	ErrInvalidVolume     = errors.New("invalid volume")
	ErrInvalidPeriodType = errors.New("invalid period type")
	ErrInvalidQueryID    = errors.New("invalid query ID")
	ErrInvalidQueryName  = errors.New("invalid query name")
	ErrInvalidSortOrder  = errors.New("invalid sort order (want asc or desc)")
)
