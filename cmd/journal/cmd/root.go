package cmd

import (
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"github.com/spf13/cobra"
)

// cfg is loaded once by the root command before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "Candle analysis, derivative bars and screening for a trade journal",
	Long: `Journal annotates stored candles with technical indicators and alerts,
derives weekly, monthly and yearly bars from finer ones, and screens the
latest candle of every symbol with saved queries.

Configuration is read from the environment (and a .env file when present).

Examples:
  journal analyze --symbols AAPL,MSFT --periods D,W
  journal screen --query-id high-rvol --limit 20
  journal serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logger.Init(loaded.LogLevel, loaded.Environment); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
