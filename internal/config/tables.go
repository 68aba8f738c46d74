package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"gopkg.in/yaml.v3"
)

// AnalyzerSpec describes one analyzer stage in a chain
type AnalyzerSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// Param returns a numeric parameter or def when it is not set
func (s AnalyzerSpec) Param(name string, def float64) float64 {
	if v, ok := s.Params[name]; ok {
		return v
	}
	return def
}

// AnalysisTables holds the analyzer chain per period type and the derivative map
type AnalysisTables struct {
	// Analyzers lists the chain stages, in order, for each period type
	Analyzers map[models.PeriodType][]AnalyzerSpec `yaml:"analyzers"`

	// Derivatives maps a derived period type to the period type it is aggregated from
	Derivatives map[models.PeriodType]models.PeriodType `yaml:"derivatives"`
}

// LoadTables reads analyzer tables from a YAML file. An empty path returns the
// built-in defaults.
func LoadTables(path string) (*AnalysisTables, error) {
	if path == "" {
		return DefaultTables(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis tables: %w", err)
	}

	return ParseTables(data)
}

// ParseTables parses analyzer tables from YAML
func ParseTables(data []byte) (*AnalysisTables, error) {
	var tables AnalysisTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse analysis tables: %w", err)
	}
	if tables.Analyzers == nil {
		tables.Analyzers = make(map[models.PeriodType][]AnalyzerSpec)
	}
	if tables.Derivatives == nil {
		tables.Derivatives = make(map[models.PeriodType]models.PeriodType)
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &tables, nil
}

// Validate checks period type keys and the derivative map
func (t *AnalysisTables) Validate() error {
	for pt, specs := range t.Analyzers {
		if !pt.Valid() {
			return fmt.Errorf("analyzers: %w: %q", models.ErrInvalidPeriodType, pt)
		}
		for i, spec := range specs {
			if spec.Type == "" {
				return fmt.Errorf("analyzers[%s][%d]: type is required", pt, i)
			}
		}
	}

	for target, source := range t.Derivatives {
		if !target.Valid() || !source.Valid() {
			return fmt.Errorf("derivatives: %w: %q <- %q", models.ErrInvalidPeriodType, target, source)
		}
		if !source.Less(target) {
			return fmt.Errorf("derivatives: source %s must be finer than target %s", source, target)
		}
	}

	// Reject cycles and chains that never reach a base period type
	for target := range t.Derivatives {
		seen := map[models.PeriodType]bool{target: true}
		for cur, ok := t.Derivatives[target]; ok; cur, ok = t.Derivatives[cur] {
			if seen[cur] {
				return fmt.Errorf("derivatives: cycle through %s", cur)
			}
			seen[cur] = true
		}
	}

	return nil
}

// AnalyzersFor returns the chain specs for a period type (nil when none)
func (t *AnalysisTables) AnalyzersFor(pt models.PeriodType) []AnalyzerSpec {
	return t.Analyzers[pt]
}

// SourceOf returns the period type pt is derived from
func (t *AnalysisTables) SourceOf(pt models.PeriodType) (models.PeriodType, bool) {
	source, ok := t.Derivatives[pt]
	return source, ok
}

// IsDerived reports whether pt is built by aggregation
func (t *AnalysisTables) IsDerived(pt models.PeriodType) bool {
	_, ok := t.Derivatives[pt]
	return ok
}

// PeriodTypes returns every period type that has an analyzer table, finest first
func (t *AnalysisTables) PeriodTypes() []models.PeriodType {
	out := make([]models.PeriodType, 0, len(t.Analyzers))
	for pt := range t.Analyzers {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// DefaultTables returns the built-in analyzer tables
func DefaultTables() *AnalysisTables {
	lrsi := AnalyzerSpec{Type: "lrsi", Params: map[string]float64{
		"fast_gamma": 0.2, "slow_gamma": 0.8, "overbought": 0.8, "oversold": 0.2,
	}}

	return &AnalysisTables{
		Analyzers: map[models.PeriodType][]AnalyzerSpec{
			models.PeriodM5: {
				{Type: "vwap"},
				{Type: "ema_cross", Params: map[string]float64{"fast": 9, "slow": 21}},
				{Type: "rvol", Params: map[string]float64{"period": 20, "threshold": 2}},
			},
			models.PeriodD: {
				{Type: "sma", Params: map[string]float64{"period": 20}},
				{Type: "sma", Params: map[string]float64{"period": 50}},
				{Type: "sma", Params: map[string]float64{"period": 200}},
				{Type: "ema_cross", Params: map[string]float64{"fast": 9, "slow": 21}},
				{Type: "atr", Params: map[string]float64{"period": 14}},
				{Type: "rvol", Params: map[string]float64{"period": 20, "threshold": 2}},
				{Type: "rsi", Params: map[string]float64{"period": 14}},
				lrsi,
				{Type: "vwap"},
				{Type: "vwrrs"},
			},
			models.PeriodW: {
				{Type: "sma", Params: map[string]float64{"period": 10}},
				{Type: "ema_cross", Params: map[string]float64{"fast": 9, "slow": 21}},
				{Type: "atr", Params: map[string]float64{"period": 14}},
				{Type: "rvol", Params: map[string]float64{"period": 10, "threshold": 2}},
				lrsi,
				{Type: "vwrrs"},
			},
			models.PeriodM: {
				{Type: "sma", Params: map[string]float64{"period": 10}},
				{Type: "rvol", Params: map[string]float64{"period": 6, "threshold": 2}},
				lrsi,
			},
			models.PeriodY: {
				{Type: "sma", Params: map[string]float64{"period": 5}},
			},
		},
		Derivatives: map[models.PeriodType]models.PeriodType{
			models.PeriodW: models.PeriodD,
			models.PeriodM: models.PeriodD,
			models.PeriodY: models.PeriodM,
		},
	}
}
