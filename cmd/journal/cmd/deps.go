package cmd

import (
	"fmt"
	"strings"

	"github.com/mohamedkhairy/trade-journal/internal/analysis"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/pubsub"
	"github.com/mohamedkhairy/trade-journal/internal/screener"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
)

func openCandleStorage() (storage.CandleStorage, error) {
	switch cfg.Storage.Type {
	case "memory":
		logger.Warn("Using in-memory candle storage, nothing will be persisted")
		return storage.NewMemoryCandleStorage(), nil
	default:
		store, err := storage.NewPostgresCandleStorage(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open candle storage: %w", err)
		}
		return store, nil
	}
}

// openRedis returns nil and no error when the query store is in memory and
// Redis is unreachable; progress events are then only logged.
func openRedis(required bool) (storage.RedisClient, error) {
	client, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		if required {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Warn("Redis unavailable, progress events will only be logged",
			logger.ErrorField(err),
		)
		return nil, nil
	}
	return client, nil
}

func openQueryStore(redis storage.RedisClient) (screener.QueryStore, error) {
	if cfg.Analysis.QueryStoreType == "memory" || redis == nil {
		return screener.NewInMemoryQueryStore(), nil
	}
	store, err := screener.NewRedisQueryStore(redis, screener.DefaultRedisQueryStoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open query store: %w", err)
	}
	return store, nil
}

func newReporter(redis storage.RedisClient) analysis.Reporter {
	if redis == nil {
		return analysis.LogReporter{}
	}
	return analysis.MultiReporter{
		analysis.LogReporter{},
		analysis.NewRedisReporter(redis, cfg.Analysis.ProgressChannel),
	}
}

func newOrchestrator(store storage.CandleStorage, reporter analysis.Reporter) *analysis.Orchestrator {
	return analysis.NewOrchestrator(store, cfg.Tables, reporter, analysis.Options{
		PeriodTypes:     cfg.Analysis.PeriodTypes,
		BasePeriodType:  cfg.Analysis.BasePeriodType,
		ReferenceSymbol: cfg.Analysis.ReferenceSymbol,
		Limits:          cfg.Storage.ClampLimits(),
	})
}

// splitSymbols upper-cases a comma separated symbol list, dropping blanks
func splitSymbols(values []string) []string {
	var out []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, strings.ToUpper(s))
			}
		}
	}
	return out
}

func parsePeriods(values []string) ([]models.PeriodType, error) {
	var names []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				names = append(names, s)
			}
		}
	}
	return models.ParsePeriodTypes(names)
}
