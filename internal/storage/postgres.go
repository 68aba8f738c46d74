package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mohamedkhairy/trade-journal/internal/config"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candleWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candle_store_write_total",
			Help: "Total number of candle rows written to PostgreSQL",
		},
		[]string{"operation", "status"}, // status: "success" or "error"
	)

	candleQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "candle_store_latency_seconds",
			Help:    "Latency of candle store operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)
)

// Schema creates the candles table
const Schema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol           TEXT             NOT NULL,
	period_type      TEXT             NOT NULL,
	period           TIMESTAMPTZ      NOT NULL,
	open             DOUBLE PRECISION NOT NULL,
	high             DOUBLE PRECISION NOT NULL,
	low              DOUBLE PRECISION NOT NULL,
	close            DOUBLE PRECISION NOT NULL,
	volume           BIGINT           NOT NULL,
	indicators       JSONB            NOT NULL DEFAULT '{}',
	alerts           TEXT[]           NOT NULL DEFAULT '{}',
	truncated_values JSONB,
	PRIMARY KEY (symbol, period_type, period)
);
`

const candleColumns = `symbol, period_type, period, open, high, low, close, volume, indicators, alerts, truncated_values`

// PostgresCandleStorage implements CandleStorage on PostgreSQL
type PostgresCandleStorage struct {
	db       *sql.DB
	dbConfig config.DatabaseConfig
}

// NewPostgresCandleStorage opens a connection pool and makes sure the schema exists
func NewPostgresCandleStorage(dbConfig config.DatabaseConfig) (*PostgresCandleStorage, error) {
	// Open database connection
	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL candle storage",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return &PostgresCandleStorage{db: db, dbConfig: dbConfig}, nil
}

// LoadCandles retrieves all candles of one period type for a symbol
func (p *PostgresCandleStorage) LoadCandles(ctx context.Context, symbol string, pt models.PeriodType) ([]*models.Candle, error) {
	defer observe("load", time.Now())

	query := `SELECT ` + candleColumns + `
		FROM candles
		WHERE symbol = $1 AND period_type = $2
		ORDER BY period ASC`

	return p.queryCandles(ctx, query, symbol, string(pt))
}

// LoadRange retrieves candles with from <= period <= to
func (p *PostgresCandleStorage) LoadRange(ctx context.Context, symbol string, pt models.PeriodType, from, to time.Time) ([]*models.Candle, error) {
	defer observe("load_range", time.Now())

	query := `SELECT ` + candleColumns + `
		FROM candles
		WHERE symbol = $1 AND period_type = $2 AND period >= $3 AND period <= $4
		ORDER BY period ASC`

	return p.queryCandles(ctx, query, symbol, string(pt), from, to)
}

// LatestCandle retrieves the most recent candle, or nil when there is none
func (p *PostgresCandleStorage) LatestCandle(ctx context.Context, symbol string, pt models.PeriodType) (*models.Candle, error) {
	defer observe("latest", time.Now())

	query := `SELECT ` + candleColumns + `
		FROM candles
		WHERE symbol = $1 AND period_type = $2
		ORDER BY period DESC
		LIMIT 1`

	candles, err := p.queryCandles(ctx, query, symbol, string(pt))
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}
	return candles[0], nil
}

// UpsertBars writes OHLCV values inside one transaction
func (p *PostgresCandleStorage) UpsertBars(ctx context.Context, candles []*models.Candle) (UpsertResult, error) {
	var result UpsertResult
	if len(candles) == 0 {
		return result, nil
	}
	defer observe("upsert", time.Now())

	// Use transaction for atomicity
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// xmax is zero only for freshly inserted rows
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, period_type, period, open, high, low, close, volume, truncated_values)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, period_type, period) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			truncated_values = EXCLUDED.truncated_values
		RETURNING (xmax = 0) AS inserted
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, truncated, err := encodeAnnotations(c)
		if err != nil {
			return UpsertResult{}, err
		}

		var inserted bool
		if err := stmt.QueryRowContext(ctx,
			c.Symbol,
			string(c.PeriodType),
			c.Period,
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
			truncated,
		).Scan(&inserted); err != nil {
			candleWriteTotal.WithLabelValues("upsert", "error").Inc()
			return UpsertResult{}, fmt.Errorf("failed to upsert candle %s %s: %w", c.Symbol, c.Period.Format(time.RFC3339), err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		candleWriteTotal.WithLabelValues("upsert", "error").Add(float64(len(candles)))
		return UpsertResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	candleWriteTotal.WithLabelValues("upsert", "success").Add(float64(len(candles)))
	return result, nil
}

// SaveAnnotations replaces the annotations of existing candles
func (p *PostgresCandleStorage) SaveAnnotations(ctx context.Context, candles []*models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	defer observe("annotate", time.Now())

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE candles
		SET indicators = $4, alerts = $5, truncated_values = $6
		WHERE symbol = $1 AND period_type = $2 AND period = $3
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		indicators, truncated, err := encodeAnnotations(c)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			c.Symbol,
			string(c.PeriodType),
			c.Period,
			indicators,
			pq.Array(c.Alerts.Keys()),
			truncated,
		); err != nil {
			candleWriteTotal.WithLabelValues("annotate", "error").Inc()
			return fmt.Errorf("failed to save annotations for %s %s: %w", c.Symbol, c.Period.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	candleWriteTotal.WithLabelValues("annotate", "success").Add(float64(len(candles)))
	return nil
}

// ClearAnnotations removes every annotation of a symbol's period type. Truncated
// OHLCV values are kept; truncated indicator values go with their indicators.
func (p *PostgresCandleStorage) ClearAnnotations(ctx context.Context, symbol string, pt models.PeriodType) error {
	defer observe("clear", time.Now())

	_, err := p.db.ExecContext(ctx, `
		UPDATE candles
		SET indicators = '{}', alerts = '{}',
			truncated_values = (
				SELECT jsonb_object_agg(key, value)
				FROM jsonb_each(truncated_values)
				WHERE key NOT LIKE 'indicators.%'
			)
		WHERE symbol = $1 AND period_type = $2
	`, symbol, string(pt))
	if err != nil {
		return fmt.Errorf("failed to clear annotations: %w", err)
	}
	return nil
}

// ListSymbols returns the symbols that have candles of a period type
func (p *PostgresCandleStorage) ListSymbols(ctx context.Context, pt models.PeriodType) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM candles WHERE period_type = $1 ORDER BY symbol
	`, string(pt))
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return symbols, nil
}

// Close closes the database connection
func (p *PostgresCandleStorage) Close() error {
	return p.db.Close()
}

func (p *PostgresCandleStorage) queryCandles(ctx context.Context, query string, args ...interface{}) ([]*models.Candle, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []*models.Candle
	for rows.Next() {
		var (
			c          models.Candle
			periodType string
			indicators []byte
			alerts     []string
			truncated  []byte
		)
		if err := rows.Scan(
			&c.Symbol,
			&periodType,
			&c.Period,
			&c.Open,
			&c.High,
			&c.Low,
			&c.Close,
			&c.Volume,
			&indicators,
			pq.Array(&alerts),
			&truncated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}

		c.PeriodType = models.PeriodType(periodType)
		c.Period = c.Period.UTC()
		if err := decodeAnnotations(&c, indicators, alerts, truncated); err != nil {
			return nil, err
		}
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return candles, nil
}

// encodeAnnotations renders the JSONB columns of a candle as text parameters.
// truncated is nil when nothing was clamped.
func encodeAnnotations(c *models.Candle) (indicators string, truncated interface{}, err error) {
	values := c.Indicators
	if values == nil {
		values = map[string]models.Value{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal indicators: %w", err)
	}

	if len(c.TruncatedValues) > 0 {
		raw, err := json.Marshal(c.TruncatedValues)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal truncated values: %w", err)
		}
		truncated = string(raw)
	}

	return string(data), truncated, nil
}

// decodeAnnotations fills a scanned candle's annotation maps
func decodeAnnotations(c *models.Candle, indicators []byte, alerts []string, truncated []byte) error {
	c.Indicators = make(map[string]models.Value)
	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &c.Indicators); err != nil {
			return fmt.Errorf("failed to unmarshal indicators: %w", err)
		}
	}

	c.Alerts = models.NewAlertSet(alerts...)

	if len(truncated) > 0 {
		if err := json.Unmarshal(truncated, &c.TruncatedValues); err != nil {
			return fmt.Errorf("failed to unmarshal truncated values: %w", err)
		}
	}
	return nil
}

func observe(operation string, start time.Time) {
	candleQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
