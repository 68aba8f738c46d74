package bars

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// ParseBars reads raw OHLCV bars from a JSON document. Two layouts are accepted:
//
//	{"symbol": "AAPL", "period_type": "D", "bars": [{"time": ..., "open": ...}, ...]}
//	[{"symbol": "AAPL", "period_type": "D", "time": ..., "open": ...}, ...]
//
// A bar's own symbol/period_type override the document's; pt is the fallback when
// neither is set. time is RFC 3339, YYYY-MM-DD or unix seconds. Bars are clamped
// to limits and validated.
func ParseBars(data []byte, pt models.PeriodType, limits models.ClampLimits) ([]*models.Candle, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("bars document is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	symbol := ""
	rows := doc
	if doc.IsObject() {
		symbol = doc.Get("symbol").String()
		if p := doc.Get("period_type"); p.Exists() {
			pt = models.PeriodType(p.String())
		}
		rows = doc.Get("bars")
	}
	if !rows.IsArray() {
		return nil, fmt.Errorf("bars document has no bar array")
	}

	var out []*models.Candle
	var parseErr error
	rows.ForEach(func(idx, row gjson.Result) bool {
		c, err := parseBar(row, symbol, pt)
		if err != nil {
			parseErr = fmt.Errorf("bar %d: %w", idx.Int(), err)
			return false
		}
		out = append(out, c.Clamp(limits))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func parseBar(row gjson.Result, symbol string, pt models.PeriodType) (*models.Candle, error) {
	if !row.IsObject() {
		return nil, fmt.Errorf("expected an object, got %s", row.Type)
	}
	if s := row.Get("symbol"); s.Exists() {
		symbol = s.String()
	}
	if p := row.Get("period_type"); p.Exists() {
		pt = models.PeriodType(p.String())
	}

	period, err := parseBarTime(row.Get("time"))
	if err != nil {
		return nil, err
	}

	for _, field := range []string{"open", "high", "low", "close", "volume"} {
		if v := row.Get(field); v.Type != gjson.Number {
			return nil, fmt.Errorf("%s must be a number", field)
		}
	}

	c := models.NewCandle(strings.ToUpper(symbol), pt, period,
		row.Get("open").Float(),
		row.Get("high").Float(),
		row.Get("low").Float(),
		row.Get("close").Float(),
		row.Get("volume").Int(),
	)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseBarTime(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.Unix(v.Int(), 0).UTC(), nil
	case gjson.String:
		s := v.String()
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidTimestamp, s)
	default:
		return time.Time{}, fmt.Errorf("%w: missing time", models.ErrInvalidTimestamp)
	}
}
