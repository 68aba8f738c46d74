package analyzer

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// Factory builds an analyzer from its configuration
type Factory func(spec config.AnalyzerSpec, deps Deps) (Analyzer, error)

// Registry maps analyzer types to their factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers an analyzer factory
func (r *Registry) Register(analyzerType string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[analyzerType]; exists {
		return fmt.Errorf("analyzer %q already registered", analyzerType)
	}

	r.factories[analyzerType] = factory
	return nil
}

// Types returns all registered analyzer types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build instantiates one analyzer
func (r *Registry) Build(spec config.AnalyzerSpec, deps Deps) (Analyzer, error) {
	r.mu.RLock()
	factory, exists := r.factories[spec.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, spec.Type)
	}

	a, err := factory(spec, deps)
	if err != nil {
		return nil, fmt.Errorf("analyzer %s: %w", spec.Type, err)
	}
	return a, nil
}

// BuildChain instantiates a fresh chain for one period type from the tables
func (r *Registry) BuildChain(tables *config.AnalysisTables, pt models.PeriodType, deps Deps) (*Chain, error) {
	specs := tables.AnalyzersFor(pt)
	analyzers := make([]Analyzer, 0, len(specs))
	for _, spec := range specs {
		a, err := r.Build(spec, deps)
		if err != nil {
			return nil, fmt.Errorf("%s chain: %w", pt, err)
		}
		analyzers = append(analyzers, a)
	}
	return NewChain(analyzers...), nil
}

// RegisterBuiltins registers every built-in analyzer type
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]Factory{
		"sma":       newSMAAnalyzer,
		"ema_cross": newEMACrossAnalyzer,
		"atr":       newATRAnalyzer,
		"rvol":      newRVolAnalyzer,
		"lrsi":      newLRSIAnalyzer,
		"vwap":      newVWAPAnalyzer,
		"vwrrs":     newVWRRSAnalyzer,
		"rsi":       newRSIAnalyzer,
	}
	for name, factory := range builtins {
		if err := r.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry holding the built-in analyzers
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		// Built-in names are distinct, so registration cannot fail
		_ = RegisterBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// Build instantiates one built-in analyzer
func Build(spec config.AnalyzerSpec, deps Deps) (Analyzer, error) {
	return DefaultRegistry().Build(spec, deps)
}

// BuildChain instantiates a fresh chain of built-in analyzers
func BuildChain(tables *config.AnalysisTables, pt models.PeriodType, deps Deps) (*Chain, error) {
	return DefaultRegistry().BuildChain(tables, pt, deps)
}

// periodParam reads a whole, positive period parameter
func periodParam(spec config.AnalyzerSpec, name string, def int) (int, error) {
	v := spec.Param(name, float64(def))
	if v < 1 || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %g", ErrInvalidParams, name, v)
	}
	return int(v), nil
}
