package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedkhairy/trade-journal/internal/analysis"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis pass over stored candles",
	Long: `Analyze runs the configured analyzer chain for every requested symbol and
period type, finest period type first. Derived period types are aggregated from
their source period type before they are analyzed.

Failures of a single analyzer, symbol or period type are reported and the run
continues. The command exits non-zero when any error was reported.

Examples:
  journal analyze
  journal analyze --symbols AAPL,MSFT --periods D,W
  journal analyze --reset`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var (
	analyzeSymbols []string
	analyzePeriods []string
	analyzeReset   bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVarP(&analyzeSymbols, "symbols", "s", nil, "symbols to analyze (default: ANALYSIS_SYMBOLS, or every stored symbol)")
	analyzeCmd.Flags().StringSliceVarP(&analyzePeriods, "periods", "p", nil, "period types to analyze (default: ANALYSIS_PERIOD_TYPES)")
	analyzeCmd.Flags().BoolVar(&analyzeReset, "reset", false, "clear annotations and rebuild derived bars from scratch")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	periods, err := parsePeriods(analyzePeriods)
	if err != nil {
		return err
	}
	symbols := splitSymbols(analyzeSymbols)
	if len(symbols) == 0 {
		symbols = cfg.Analysis.Symbols
	}

	store, err := openCandleStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	redis, err := openRedis(false)
	if err != nil {
		return err
	}
	if redis != nil {
		defer redis.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := newOrchestrator(store, newReporter(redis))
	errs := orch.Run(ctx, analysis.RunRequest{
		Symbols:     symbols,
		PeriodTypes: periods,
		Reset:       analyzeReset,
	})

	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("analysis finished with %d error(s)", len(errs))
	}
	fmt.Println("analysis finished")
	return nil
}
