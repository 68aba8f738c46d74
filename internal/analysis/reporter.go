package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"go.uber.org/zap"
)

// Reporter receives run progress notifications. The run ID travels in ctx.
type Reporter interface {
	Start(ctx context.Context, total int)
	ItemStart(ctx context.Context, symbol string, index int)
	End(ctx context.Context)
	Error(ctx context.Context, message, symbol string, periodType models.PeriodType)
}

// EventKind names a progress notification
type EventKind string

const (
	EventStart     EventKind = "start"
	EventItemStart EventKind = "item_start"
	EventEnd       EventKind = "end"
	EventError     EventKind = "error"
)

// ProgressEvent is the wire form of a progress notification
type ProgressEvent struct {
	RunID      string            `json:"run_id"`
	Kind       EventKind         `json:"kind"`
	Total      int               `json:"total,omitempty"`
	Symbol     string            `json:"symbol,omitempty"`
	Index      int               `json:"index"`
	PeriodType models.PeriodType `json:"period_type,omitempty"`
	Message    string            `json:"message,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// DecodeEvent parses a published progress event
func DecodeEvent(payload string) (*ProgressEvent, error) {
	var ev ProgressEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, fmt.Errorf("failed to decode progress event: %w", err)
	}
	return &ev, nil
}

// String renders the event for terminal output
func (e *ProgressEvent) String() string {
	switch e.Kind {
	case EventStart:
		return fmt.Sprintf("[%s] start: %d symbols", e.RunID, e.Total)
	case EventItemStart:
		return fmt.Sprintf("[%s] #%d %s", e.RunID, e.Index, e.Symbol)
	case EventError:
		return fmt.Sprintf("[%s] error %s %s: %s", e.RunID, e.Symbol, e.PeriodType, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.RunID, e.Kind)
	}
}

// LogReporter writes progress to the structured logger
type LogReporter struct{}

func (LogReporter) Start(ctx context.Context, total int) {
	logger.WithContext(ctx).Info("Analysis run started", zap.Int("total", total))
}

func (LogReporter) ItemStart(ctx context.Context, symbol string, index int) {
	logger.WithContext(ctx).Info("Analyzing symbol",
		zap.String("symbol", symbol),
		zap.Int("index", index),
	)
}

func (LogReporter) End(ctx context.Context) {
	logger.WithContext(ctx).Info("Analysis run finished")
}

func (LogReporter) Error(ctx context.Context, message, symbol string, periodType models.PeriodType) {
	logger.WithContext(ctx).Warn("Analysis error",
		zap.String("symbol", symbol),
		zap.String("period_type", string(periodType)),
		zap.String("message", message),
	)
}

// RedisReporter publishes progress events on a pub/sub channel and appends them
// to a stream of the same name so late consumers can replay a run
type RedisReporter struct {
	redis   storage.RedisClient
	channel string
}

// NewRedisReporter creates a reporter publishing on channel
func NewRedisReporter(redis storage.RedisClient, channel string) *RedisReporter {
	return &RedisReporter{redis: redis, channel: channel}
}

func (r *RedisReporter) Start(ctx context.Context, total int) {
	r.publish(ctx, ProgressEvent{Kind: EventStart, Total: total})
}

func (r *RedisReporter) ItemStart(ctx context.Context, symbol string, index int) {
	r.publish(ctx, ProgressEvent{Kind: EventItemStart, Symbol: symbol, Index: index})
}

func (r *RedisReporter) End(ctx context.Context) {
	r.publish(ctx, ProgressEvent{Kind: EventEnd})
}

func (r *RedisReporter) Error(ctx context.Context, message, symbol string, periodType models.PeriodType) {
	r.publish(ctx, ProgressEvent{Kind: EventError, Message: message, Symbol: symbol, PeriodType: periodType})
}

// publish never fails the run; delivery errors are logged
func (r *RedisReporter) publish(ctx context.Context, ev ProgressEvent) {
	ev.RunID = logger.GetRunID(ctx)
	ev.Timestamp = time.Now().UTC()

	// Progress must still be delivered for a cancelled run
	pubCtx := context.WithoutCancel(ctx)
	if err := r.redis.Publish(pubCtx, r.channel, ev); err != nil {
		logger.CountError("analysis", "progress_publish")
		logger.WithContext(ctx).Warn("Failed to publish progress event",
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		return
	}
	if err := r.redis.PublishToStream(pubCtx, r.channel, string(ev.Kind), ev); err != nil {
		logger.CountError("analysis", "progress_stream")
		logger.WithContext(ctx).Warn("Failed to append progress event to stream",
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}

// MultiReporter fans notifications out to several reporters
type MultiReporter []Reporter

func (m MultiReporter) Start(ctx context.Context, total int) {
	for _, r := range m {
		r.Start(ctx, total)
	}
}

func (m MultiReporter) ItemStart(ctx context.Context, symbol string, index int) {
	for _, r := range m {
		r.ItemStart(ctx, symbol, index)
	}
}

func (m MultiReporter) End(ctx context.Context) {
	for _, r := range m {
		r.End(ctx)
	}
}

func (m MultiReporter) Error(ctx context.Context, message, symbol string, periodType models.PeriodType) {
	for _, r := range m {
		r.Error(ctx, message, symbol, periodType)
	}
}
