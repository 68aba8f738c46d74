package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/analyzer"
	"github.com/mohamedkhairy/trade-journal/internal/bars"
	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"go.uber.org/zap"
)

// RunRequest selects what an analysis run processes
type RunRequest struct {
	// Symbols to analyze; empty means every symbol stored for the finest
	// requested base period type
	Symbols []string

	// PeriodTypes to analyze; empty means Options.PeriodTypes
	PeriodTypes []models.PeriodType

	// Reset clears existing annotations and rebuilds derived bars from scratch
	Reset bool
}

// Options configures an Orchestrator
type Options struct {
	PeriodTypes     []models.PeriodType
	BasePeriodType  models.PeriodType // lists symbols when none are requested
	ReferenceSymbol string
	Limits          models.ClampLimits
	Registry        *analyzer.Registry // nil uses analyzer.DefaultRegistry()
}

// Orchestrator runs analyzer chains and derivative aggregation over symbols
type Orchestrator struct {
	store    storage.CandleStorage
	tables   *config.AnalysisTables
	deriver  *bars.Deriver
	registry *analyzer.Registry
	reporter Reporter
	opts     Options
}

// NewOrchestrator creates an orchestrator. reporter may be nil.
func NewOrchestrator(store storage.CandleStorage, tables *config.AnalysisTables, reporter Reporter, opts Options) *Orchestrator {
	if reporter == nil {
		reporter = LogReporter{}
	}
	registry := opts.Registry
	if registry == nil {
		registry = analyzer.DefaultRegistry()
	}
	return &Orchestrator{
		store:    store,
		tables:   tables,
		deriver:  bars.NewDeriver(store, opts.Limits),
		registry: registry,
		reporter: reporter,
		opts:     opts,
	}
}

// Run processes every symbol sequentially and, within a symbol, every period type
// from finest to coarsest. A derived period type is aggregated after its source
// period type has been analyzed. Failures are reported and the run continues;
// the returned slice holds every error message of the run.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) []string {
	ctx = logger.WithRunID(ctx, logger.NewRunID())
	log := logger.WithContext(ctx)
	start := time.Now()

	var errs []string
	fail := func(ctx context.Context, symbol string, pt models.PeriodType, msg string) {
		o.reporter.Error(ctx, msg, symbol, pt)
		errs = append(errs, formatError(symbol, pt, msg))
	}

	periodTypes := o.periodTypes(req)
	symbols, err := o.symbols(ctx, req, periodTypes)
	if err != nil {
		o.reporter.Start(ctx, 0)
		fail(ctx, "", "", err.Error())
		o.reporter.End(ctx)
		runsTotal.WithLabelValues("errors").Inc()
		return errs
	}

	log.Info("Starting analysis run",
		zap.Int("symbols", len(symbols)),
		zap.Strings("period_types", periodNames(periodTypes)),
		zap.Bool("reset", req.Reset),
	)
	o.reporter.Start(ctx, len(symbols))

	status := "ok"
	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			fail(ctx, symbol, "", fmt.Sprintf("run cancelled: %v", err))
			status = "cancelled"
			break
		}

		o.reporter.ItemStart(ctx, symbol, i)
		symCtx := logger.WithSymbol(ctx, symbol)
		for _, msg := range o.runSymbol(symCtx, symbol, periodTypes, req.Reset) {
			fail(symCtx, symbol, msg.pt, msg.text)
		}
	}

	o.reporter.End(ctx)

	if status == "ok" && len(errs) > 0 {
		status = "errors"
	}
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(time.Since(start).Seconds())
	log.Info("Analysis run finished",
		zap.String("status", status),
		zap.Int("errors", len(errs)),
		zap.Duration("duration", time.Since(start)),
	)
	return errs
}

type itemError struct {
	pt   models.PeriodType
	text string
}

// runSymbol processes one symbol's period types in order
func (o *Orchestrator) runSymbol(ctx context.Context, symbol string, periodTypes []models.PeriodType, reset bool) []itemError {
	var errs []itemError
	failed := make(map[models.PeriodType]bool)
	inRun := make(map[models.PeriodType]bool, len(periodTypes))
	for _, pt := range periodTypes {
		inRun[pt] = true
	}

	for _, pt := range periodTypes {
		start := time.Now()

		if source, ok := o.tables.SourceOf(pt); ok {
			if inRun[source] && failed[source] {
				failed[pt] = true
				errs = append(errs, itemError{pt, fmt.Sprintf("skipped: source period type %s failed", source)})
				itemsTotal.WithLabelValues(string(pt), "error").Inc()
				continue
			}
			res, err := o.deriver.Derive(ctx, symbol, source, pt, reset)
			if err != nil {
				failed[pt] = true
				errs = append(errs, itemError{pt, fmt.Sprintf("derive from %s: %v", source, err)})
				itemsTotal.WithLabelValues(string(pt), "error").Inc()
				continue
			}
			logger.WithContext(ctx).Debug("Derived bars",
				zap.String("period_type", string(pt)),
				zap.Int("inserted", res.Inserted),
				zap.Int("updated", res.Updated),
			)
		}

		chainErrs, err := o.analyze(ctx, symbol, pt, reset)
		for _, msg := range chainErrs {
			errs = append(errs, itemError{pt, msg})
		}
		itemDuration.WithLabelValues(string(pt)).Observe(time.Since(start).Seconds())
		if err != nil {
			failed[pt] = true
			errs = append(errs, itemError{pt, err.Error()})
			itemsTotal.WithLabelValues(string(pt), "error").Inc()
			continue
		}
		itemsTotal.WithLabelValues(string(pt), "ok").Inc()
	}
	return errs
}

// analyze runs the period type's chain over a symbol's candles and stores the
// annotations. Stage failures come back as messages; err is set only when the
// item could not be processed at all.
func (o *Orchestrator) analyze(ctx context.Context, symbol string, pt models.PeriodType, reset bool) ([]string, error) {
	if reset {
		if err := o.store.ClearAnnotations(ctx, symbol, pt); err != nil {
			return nil, fmt.Errorf("clear annotations: %w", err)
		}
	}

	candles, err := o.store.LoadCandles(ctx, symbol, pt)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		logger.WithContext(ctx).Debug("No candles to analyze", zap.String("period_type", string(pt)))
		return nil, nil
	}

	// Every pass recomputes annotations from the bare OHLCV series
	for i, c := range candles {
		candles[i] = c.Bare()
	}

	// Fresh analyzers per invocation; indicator state never outlives the chain run
	chain, err := o.registry.BuildChain(o.tables, pt, analyzer.Deps{Reference: o.referenceLoader()})
	if err != nil {
		return nil, fmt.Errorf("build chain: %w", err)
	}
	result := chain.Run(ctx, candles)

	out := make([]*models.Candle, len(result.Candles))
	for i, c := range result.Candles {
		out[i] = c.Clamp(o.opts.Limits)
	}
	if err := o.store.SaveAnnotations(ctx, out); err != nil {
		return result.Errors, fmt.Errorf("save annotations: %w", err)
	}
	return result.Errors, nil
}

func (o *Orchestrator) referenceLoader() analyzer.ReferenceLoader {
	return analyzer.ReferenceLoaderFunc(func(ctx context.Context, pt models.PeriodType, from, to time.Time) ([]*models.Candle, error) {
		if o.opts.ReferenceSymbol == "" {
			return nil, fmt.Errorf("no reference symbol configured")
		}
		return o.store.LoadRange(ctx, o.opts.ReferenceSymbol, pt, from, to)
	})
}

// periodTypes returns the requested period types, finest first
func (o *Orchestrator) periodTypes(req RunRequest) []models.PeriodType {
	src := req.PeriodTypes
	if len(src) == 0 {
		src = o.opts.PeriodTypes
	}
	if len(src) == 0 {
		src = o.tables.PeriodTypes()
	}

	seen := make(map[models.PeriodType]bool, len(src))
	out := make([]models.PeriodType, 0, len(src))
	for _, pt := range src {
		if !seen[pt] {
			seen[pt] = true
			out = append(out, pt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// symbols returns the symbols to process with the reference symbol first, so
// its derived bars are current before other symbols are compared against it
func (o *Orchestrator) symbols(ctx context.Context, req RunRequest, periodTypes []models.PeriodType) ([]string, error) {
	symbols := req.Symbols
	if len(symbols) == 0 {
		base, ok := o.basePeriodType(periodTypes)
		if !ok {
			return nil, fmt.Errorf("no symbols requested and no base period type to list them from")
		}
		listed, err := o.store.ListSymbols(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
		symbols = listed
	}

	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	ref := o.opts.ReferenceSymbol
	for _, s := range symbols {
		if s == ref && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// basePeriodType is the configured base period type, or else the finest
// requested period type that is not derived
func (o *Orchestrator) basePeriodType(periodTypes []models.PeriodType) (models.PeriodType, bool) {
	if o.opts.BasePeriodType.Valid() {
		return o.opts.BasePeriodType, true
	}
	for _, pt := range periodTypes {
		if !o.tables.IsDerived(pt) {
			return pt, true
		}
	}
	return "", false
}

// formatError prefixes msg with whichever of symbol and period type are known
func formatError(symbol string, pt models.PeriodType, msg string) string {
	prefix := strings.TrimSpace(symbol + " " + string(pt))
	if prefix == "" {
		return msg
	}
	return prefix + ": " + msg
}

func periodNames(pts []models.PeriodType) []string {
	out := make([]string, len(pts))
	for i, pt := range pts {
		out[i] = string(pt)
	}
	return out
}
