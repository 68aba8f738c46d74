package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Candle storage
	Storage StorageConfig

	// Analysis runs
	Analysis AnalysisConfig

	// Analyzer tables and derivative map, loaded once from Analysis.TablesPath
	Tables *AnalysisTables
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// StorageConfig holds candle storage configuration
type StorageConfig struct {
	Type         string // "postgres" or "memory"
	MaxPrice     float64
	MaxVolume    int64
	MaxIndicator float64
}

// ClampLimits returns the storage ceilings applied before persisting candles
func (s StorageConfig) ClampLimits() models.ClampLimits {
	return models.ClampLimits{
		MaxPrice:     s.MaxPrice,
		MaxVolume:    s.MaxVolume,
		MaxIndicator: s.MaxIndicator,
	}
}

// AnalysisConfig holds analysis run configuration
type AnalysisConfig struct {
	Symbols         []string
	PeriodTypes     []models.PeriodType
	BasePeriodType  models.PeriodType
	ReferenceSymbol string
	TablesPath      string
	Schedule        string // cron expression for `journal serve`
	HealthCheckPort int
	ProgressChannel string
	QueryStoreType  string // "memory" or "redis"
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	periodTypes, err := models.ParsePeriodTypes(getEnvAsStringSlice("ANALYSIS_PERIOD_TYPES", []string{"D", "W", "M"}))
	if err != nil {
		return nil, fmt.Errorf("ANALYSIS_PERIOD_TYPES: %w", err)
	}
	basePeriodType, err := models.ParsePeriodType(getEnv("ANALYSIS_BASE_PERIOD_TYPE", "D"))
	if err != nil {
		return nil, fmt.Errorf("ANALYSIS_BASE_PERIOD_TYPE: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "trade_journal"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Storage: StorageConfig{
			Type:         getEnv("STORAGE_TYPE", "postgres"),
			MaxPrice:     getEnvAsFloat("STORAGE_MAX_PRICE", 620000),
			MaxVolume:    getEnvAsInt64("STORAGE_MAX_VOLUME", 1_000_000_000_000),
			MaxIndicator: getEnvAsFloat("STORAGE_MAX_INDICATOR", 1e9),
		},
		Analysis: AnalysisConfig{
			Symbols:         getEnvAsStringSlice("ANALYSIS_SYMBOLS", []string{}),
			PeriodTypes:     periodTypes,
			BasePeriodType:  basePeriodType,
			ReferenceSymbol: getEnv("ANALYSIS_REFERENCE_SYMBOL", "SPY"),
			TablesPath:      getEnv("ANALYSIS_TABLES_PATH", ""),
			Schedule:        getEnv("ANALYSIS_SCHEDULE", "30 22 * * 1-5"),
			HealthCheckPort: getEnvAsInt("ANALYSIS_HEALTH_PORT", 8095),
			ProgressChannel: getEnv("ANALYSIS_PROGRESS_CHANNEL", "analysis.progress"),
			QueryStoreType:  getEnv("ANALYSIS_QUERY_STORE_TYPE", "redis"), // "memory" or "redis"
		},
	}

	tables, err := LoadTables(cfg.Analysis.TablesPath)
	if err != nil {
		return nil, err
	}
	cfg.Tables = tables

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Type != "postgres" && c.Storage.Type != "memory" {
		return fmt.Errorf("STORAGE_TYPE must be postgres or memory, got %q", c.Storage.Type)
	}
	if c.Storage.Type == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Analysis.QueryStoreType != "memory" && c.Analysis.QueryStoreType != "redis" {
		return fmt.Errorf("ANALYSIS_QUERY_STORE_TYPE must be memory or redis, got %q", c.Analysis.QueryStoreType)
	}
	if c.Analysis.QueryStoreType == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if len(c.Analysis.PeriodTypes) == 0 {
		return fmt.Errorf("ANALYSIS_PERIOD_TYPES must contain at least one period type")
	}
	if c.Tables != nil {
		if err := c.Tables.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DSN returns the lib/pq connection string. The session runs on UTC so
// timestamps scan back on the UTC calendar.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s timezone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// Addr returns the Redis host:port address
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
