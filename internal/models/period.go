package models

import (
	"fmt"
	"strings"
	"time"
)

// PeriodType is the granularity of a candle
type PeriodType string

const (
	PeriodM1  PeriodType = "M1"
	PeriodM5  PeriodType = "M5"
	PeriodM15 PeriodType = "M15"
	PeriodM30 PeriodType = "M30"
	PeriodH   PeriodType = "H"
	PeriodD   PeriodType = "D"
	PeriodW   PeriodType = "W"
	PeriodM   PeriodType = "M"
	PeriodY   PeriodType = "Y"
)

// AllPeriodTypes lists period types from finest to coarsest
var AllPeriodTypes = []PeriodType{
	PeriodM1, PeriodM5, PeriodM15, PeriodM30, PeriodH, PeriodD, PeriodW, PeriodM, PeriodY,
}

// ParsePeriodType parses a period type name
func ParsePeriodType(s string) (PeriodType, error) {
	pt := PeriodType(strings.TrimSpace(s))
	if !pt.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodType, s)
	}
	return pt, nil
}

// ParsePeriodTypes parses a list of period type names
func ParsePeriodTypes(names []string) ([]PeriodType, error) {
	out := make([]PeriodType, 0, len(names))
	for _, name := range names {
		pt, err := ParsePeriodType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

// Valid reports whether pt is a known period type
func (pt PeriodType) Valid() bool {
	return pt.rank() >= 0
}

// Less reports whether pt is finer than other
func (pt PeriodType) Less(other PeriodType) bool {
	return pt.rank() < other.rank()
}

// Duration returns the fixed length of intraday and daily period types.
// Calendar period types (W, M, Y) return 0.
func (pt PeriodType) Duration() time.Duration {
	switch pt {
	case PeriodM1:
		return time.Minute
	case PeriodM5:
		return 5 * time.Minute
	case PeriodM15:
		return 15 * time.Minute
	case PeriodM30:
		return 30 * time.Minute
	case PeriodH:
		return time.Hour
	case PeriodD:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (pt PeriodType) String() string {
	return string(pt)
}

// UnmarshalText implements encoding.TextUnmarshaler (used by JSON and YAML map keys)
func (pt *PeriodType) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriodType(string(text))
	if err != nil {
		return err
	}
	*pt = parsed
	return nil
}

func (pt PeriodType) rank() int {
	for i, p := range AllPeriodTypes {
		if p == pt {
			return i
		}
	}
	return -1
}
