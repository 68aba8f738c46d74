package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// Laguerre RSI transitions reported per gamma
const (
	TransitionUptrendStart   = "uptrend_start"   // crossed above oversold from below
	TransitionDowntrendStart = "downtrend_start" // crossed below overbought from above
	TransitionOverbought     = "overbought"      // crossed above overbought
	TransitionOversold       = "oversold"        // crossed below oversold
)

var lrsiTransitions = []string{
	TransitionUptrendStart,
	TransitionDowntrendStart,
	TransitionOverbought,
	TransitionOversold,
}

// Laguerre is Ehlers' four-stage Laguerre filter RSI, bounded to [0, 1]
type Laguerre struct {
	gamma          float64
	l0, l1, l2, l3 float64
	seeded         bool
	last           models.Value
}

// NewLaguerre creates a Laguerre RSI filter; gamma must be in [0, 1)
func NewLaguerre(gamma float64) (*Laguerre, error) {
	if gamma < 0 || gamma >= 1 {
		return nil, fmt.Errorf("laguerre gamma must be in [0, 1), got %f", gamma)
	}
	return &Laguerre{gamma: gamma}, nil
}

// Push feeds the next price. The first price only seeds the four stages.
func (l *Laguerre) Push(price float64) models.Value {
	if !l.seeded {
		l.l0, l.l1, l.l2, l.l3 = price, price, price, price
		l.seeded = true
		return models.None()
	}

	g := l.gamma
	l0 := (1-g)*price + g*l.l0
	l1 := -g*l0 + l.l0 + g*l.l1
	l2 := -g*l1 + l.l1 + g*l.l2
	l3 := -g*l2 + l.l2 + g*l.l3
	l.l0, l.l1, l.l2, l.l3 = l0, l1, l2, l3

	var cu, cd float64
	for _, d := range [3]float64{l0 - l1, l1 - l2, l2 - l3} {
		if d >= 0 {
			cu += d
		} else {
			cd -= d
		}
	}

	// Flat input: keep the previous reading
	if cu+cd == 0 {
		return l.last
	}

	l.last = finite(cu / (cu + cd))
	return l.last
}

// Reset clears the filter state
func (l *Laguerre) Reset() {
	l.l0, l.l1, l.l2, l.l3 = 0, 0, 0, 0
	l.seeded = false
	l.last = models.None()
}

// LRSIReading is the output of one LRSI push
type LRSIReading struct {
	Fast            models.Value
	Slow            models.Value
	FastTransitions []string
	SlowTransitions []string
}

// LRSI runs a fast and a slow Laguerre RSI side by side and detects level
// transitions for each of them
type LRSI struct {
	fast       *Laguerre
	slow       *Laguerre
	overbought float64
	oversold   float64
	prevFast   models.Value
	prevSlow   models.Value
}

// NewLRSI creates a dual-gamma Laguerre RSI
func NewLRSI(fastGamma, slowGamma, overbought, oversold float64) (*LRSI, error) {
	if oversold >= overbought {
		return nil, fmt.Errorf("oversold (%f) must be below overbought (%f)", oversold, overbought)
	}
	if oversold < 0 || overbought > 1 {
		return nil, fmt.Errorf("levels must be within [0, 1], got %f/%f", oversold, overbought)
	}

	fast, err := NewLaguerre(fastGamma)
	if err != nil {
		return nil, fmt.Errorf("fast gamma: %w", err)
	}
	slow, err := NewLaguerre(slowGamma)
	if err != nil {
		return nil, fmt.Errorf("slow gamma: %w", err)
	}

	return &LRSI{
		fast:       fast,
		slow:       slow,
		overbought: overbought,
		oversold:   oversold,
	}, nil
}

// Push feeds the next price into both filters
func (l *LRSI) Push(price float64) LRSIReading {
	fast := l.fast.Push(price)
	slow := l.slow.Push(price)

	reading := LRSIReading{
		Fast:            fast,
		Slow:            slow,
		FastTransitions: l.transitions(l.prevFast, fast),
		SlowTransitions: l.transitions(l.prevSlow, slow),
	}

	l.prevFast = fast
	l.prevSlow = slow
	return reading
}

// transitions compares two consecutive readings against the levels
func (l *LRSI) transitions(prev, cur models.Value) []string {
	if !prev.Valid || !cur.Valid {
		return nil
	}

	var out []string
	p, c := prev.Float64, cur.Float64
	if p <= l.oversold && c > l.oversold {
		out = append(out, TransitionUptrendStart)
	}
	if p >= l.overbought && c < l.overbought {
		out = append(out, TransitionDowntrendStart)
	}
	if p < l.overbought && c >= l.overbought {
		out = append(out, TransitionOverbought)
	}
	if p > l.oversold && c <= l.oversold {
		out = append(out, TransitionOversold)
	}
	return out
}

// Reset clears both filters
func (l *LRSI) Reset() {
	l.fast.Reset()
	l.slow.Reset()
	l.prevFast = models.None()
	l.prevSlow = models.None()
}

// LRSITransitions lists every transition an LRSI can report for one gamma
func LRSITransitions() []string {
	out := make([]string, len(lrsiTransitions))
	copy(out, lrsiTransitions)
	return out
}
