package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedkhairy/trade-journal/internal/analysis"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow analysis progress published by running analyses",
	Long: `Watch subscribes to ANALYSIS_PROGRESS_CHANNEL and prints every progress
event (run start, symbol start, errors, run end) until interrupted.

Examples:
  journal watch
  journal watch --exit-on-end`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchExitOnEnd bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchExitOnEnd, "exit-on-end", false, "exit after the first run ends")
}

func runWatch(cmd *cobra.Command, args []string) error {
	redis, err := openRedis(true)
	if err != nil {
		return err
	}
	defer redis.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages, err := redis.Subscribe(ctx, cfg.Analysis.ProgressChannel)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", cfg.Analysis.ProgressChannel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			ev, err := analysis.DecodeEvent(msg.Message)
			if err != nil {
				logger.Warn("Skipping malformed progress event",
					logger.ErrorField(err),
				)
				continue
			}
			fmt.Println(ev.String())
			if watchExitOnEnd && ev.Kind == analysis.EventEnd {
				return nil
			}
		}
	}
}
