package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/analysis"
	"github.com/mohamedkhairy/trade-journal/internal/api"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/screener"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled analysis and serve the HTTP API",
	Long: `Serve runs the analysis on the ANALYSIS_SCHEDULE cron expression and exposes
health probes, Prometheus metrics, on-demand runs and saved query results over
HTTP on ANALYSIS_HEALTH_PORT.

Examples:
  journal serve
  journal serve --run-now`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveRunNow bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveRunNow, "run-now", false, "start an analysis run immediately")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("Starting analysis service",
		logger.String("schedule", cfg.Analysis.Schedule),
		logger.Int("port", cfg.Analysis.HealthCheckPort),
		logger.String("storage", cfg.Storage.Type),
		logger.String("query_store", cfg.Analysis.QueryStoreType),
		logger.Strings("symbols", cfg.Analysis.Symbols),
	)

	store, err := openCandleStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	redis, err := openRedis(cfg.Analysis.QueryStoreType == "redis")
	if err != nil {
		return err
	}
	if redis != nil {
		defer redis.Close()
	}

	queries, err := openQueryStore(redis)
	if err != nil {
		return err
	}

	orch := newOrchestrator(store, newReporter(redis))
	scheduler := analysis.NewScheduler(orch, analysis.RunRequest{Symbols: cfg.Analysis.Symbols})
	if err := scheduler.Schedule(cfg.Analysis.Schedule); err != nil {
		return err
	}
	scheduler.Start()
	if serveRunNow {
		scheduler.Trigger(analysis.RunRequest{Symbols: cfg.Analysis.Symbols})
	}

	checks := map[string]api.HealthCheck{
		"storage": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := store.ListSymbols(ctx, models.PeriodD)
			return err
		},
	}
	if redis != nil {
		checks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := redis.Exists(ctx, "health")
			return err
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Runs:    api.NewRunHandler(scheduler),
		Screens: api.NewScreenHandler(queries, screener.NewScreener(store)),
		Checks:  checks,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Analysis.HealthCheckPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-serverErr:
		logger.Error("HTTP server failed",
			logger.ErrorField(err),
		)
	}
	logger.Info("Shutting down analysis service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	scheduler.Stop()

	logger.Info("Analysis service stopped")
	return nil
}
