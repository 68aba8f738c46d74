package models

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// Value is an indicator reading. Valid is false while the producing indicator
// is still warming up ("no value yet").
type Value struct {
	Float64 float64
	Valid   bool
}

// Some returns a valid Value
func Some(v float64) Value {
	return Value{Float64: v, Valid: true}
}

// None returns an empty Value
func None() Value {
	return Value{}
}

// MarshalJSON encodes an empty value as null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float64)
}

// UnmarshalJSON decodes null as an empty value
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// AlertSet is a set of alert keys attached to a candle
type AlertSet map[string]struct{}

// NewAlertSet builds a set from the given keys
func NewAlertSet(keys ...string) AlertSet {
	s := make(AlertSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether the set contains key (exact, case-sensitive match)
func (s AlertSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts key into the set
func (s AlertSet) Add(key string) {
	s[key] = struct{}{}
}

// Keys returns the keys sorted
func (s AlertSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the set as a sorted array
func (s AlertSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

// UnmarshalJSON decodes an array of keys
func (s *AlertSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewAlertSet(keys...)
	return nil
}

// Candle is one OHLCV bar plus the annotations produced by the analyzer chain
type Candle struct {
	Symbol          string             `json:"symbol"`
	Open            float64            `json:"open"`
	High            float64            `json:"high"`
	Low             float64            `json:"low"`
	Close           float64            `json:"close"`
	Volume          int64              `json:"volume"`
	Period          time.Time          `json:"period"`
	PeriodType      PeriodType         `json:"period_type"`
	Indicators      map[string]Value   `json:"indicators"`
	Alerts          AlertSet           `json:"alerts"`
	TruncatedValues map[string]float64 `json:"truncated_values,omitempty"`
}

// NewCandle creates a bare candle as produced by a raw OHLCV import
func NewCandle(symbol string, pt PeriodType, period time.Time, open, high, low, close float64, volume int64) *Candle {
	return &Candle{
		Symbol:     symbol,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
		Volume:     volume,
		Period:     period,
		PeriodType: pt,
		Indicators: make(map[string]Value),
		Alerts:     make(AlertSet),
	}
}

// Validate validates a Candle
func (c *Candle) Validate() error {
	if c.Symbol == "" {
		return ErrInvalidSymbol
	}
	if c.Period.IsZero() {
		return ErrInvalidTimestamp
	}
	if !c.PeriodType.Valid() {
		return ErrInvalidPeriodType
	}
	if c.High < c.Low {
		return ErrInvalidBar
	}
	if c.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// Clone returns a deep copy of the candle
func (c *Candle) Clone() *Candle {
	cp := *c
	cp.Indicators = make(map[string]Value, len(c.Indicators))
	for k, v := range c.Indicators {
		cp.Indicators[k] = v
	}
	cp.Alerts = make(AlertSet, len(c.Alerts))
	for k := range c.Alerts {
		cp.Alerts[k] = struct{}{}
	}
	if c.TruncatedValues != nil {
		cp.TruncatedValues = make(map[string]float64, len(c.TruncatedValues))
		for k, v := range c.TruncatedValues {
			cp.TruncatedValues[k] = v
		}
	}
	return &cp
}

// Bare returns a copy of the candle without any annotations. Truncated OHLCV
// values are kept since they describe the bar itself.
func (c *Candle) Bare() *Candle {
	bare := NewCandle(c.Symbol, c.PeriodType, c.Period, c.Open, c.High, c.Low, c.Close, c.Volume)
	for field, v := range c.TruncatedValues {
		if !strings.HasPrefix(field, "indicators.") {
			bare.recordTruncated(field, v)
		}
	}
	return bare
}

// Indicator looks up an indicator reading; ok is false when it is absent or empty
func (c *Candle) Indicator(key string) (float64, bool) {
	v, exists := c.Indicators[key]
	if !exists || !v.Valid {
		return 0, false
	}
	return v.Float64, true
}

// SetIndicator records an indicator reading
func (c *Candle) SetIndicator(key string, v Value) {
	if c.Indicators == nil {
		c.Indicators = make(map[string]Value)
	}
	c.Indicators[key] = v
}

// AddAlert flags an alert on the candle
func (c *Candle) AddAlert(key string) {
	if c.Alerts == nil {
		c.Alerts = make(AlertSet)
	}
	c.Alerts.Add(key)
}

// Field returns an OHLCV field by name ("open", "high", "low", "close", "volume")
func (c *Candle) Field(name string) (float64, bool) {
	switch name {
	case "open":
		return c.Open, true
	case "high":
		return c.High, true
	case "low":
		return c.Low, true
	case "close":
		return c.Close, true
	case "volume":
		return float64(c.Volume), true
	default:
		return 0, false
	}
}

// TypicalPrice returns (O+H+L+C)/4
func (c *Candle) TypicalPrice() float64 {
	return (c.Open + c.High + c.Low + c.Close) / 4
}

// CloneAll deep-copies a candle sequence
func CloneAll(candles []*Candle) []*Candle {
	out := make([]*Candle, len(candles))
	for i, c := range candles {
		out[i] = c.Clone()
	}
	return out
}

// SortByPeriod sorts candles chronologically in place
func SortByPeriod(candles []*Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Period.Before(candles[j].Period)
	})
}
