package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mohamedkhairy/trade-journal/internal/bars"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import raw OHLCV bars from JSON files",
	Long: `Import upserts raw OHLCV bars into candle storage. Existing candles keep their
indicators and alerts until the next analysis run.

Each file is either an object {"symbol", "period_type", "bars": [...]} or an
array of bars carrying their own symbol. Bar times are RFC 3339, YYYY-MM-DD or
unix seconds.

Examples:
  journal import aapl_daily.json
  journal import --period H intraday/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var importPeriod string

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importPeriod, "period", "p", "", "period type for bars that do not name one (default: the base period type)")
}

func runImport(cmd *cobra.Command, args []string) error {
	pt := cfg.Analysis.BasePeriodType
	if importPeriod != "" {
		var err error
		if pt, err = models.ParsePeriodType(importPeriod); err != nil {
			return err
		}
	}

	store, err := openCandleStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		candles, err := bars.ParseBars(data, pt, cfg.Storage.ClampLimits())
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		res, err := store.UpsertBars(ctx, candles)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Printf("%s: %d inserted, %d updated\n", path, res.Inserted, res.Updated)
	}
	return nil
}
