package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ANALYSIS_SYMBOLS", "AAPL, MSFT ,")
	t.Setenv("ANALYSIS_PERIOD_TYPES", "D,W")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Analysis.Symbols)
	assert.Equal(t, []models.PeriodType{models.PeriodD, models.PeriodW}, cfg.Analysis.PeriodTypes)
	assert.Equal(t, models.PeriodD, cfg.Analysis.BasePeriodType)
	assert.Equal(t, 620000.0, cfg.Storage.MaxPrice)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.NotNil(t, cfg.Tables)
	assert.NotEmpty(t, cfg.Tables.AnalyzersFor(models.PeriodD))
}

func TestLoad_InvalidPeriodType(t *testing.T) {
	t.Setenv("ANALYSIS_PERIOD_TYPES", "D,daily")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidPeriodType)
}

func TestLoad_InvalidStorageType(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseTables(t *testing.T) {
	data := []byte(`
analyzers:
  D:
    - type: sma
      params:
        period: 20
    - type: vwap
  W:
    - type: lrsi
derivatives:
  W: D
`)

	tables, err := ParseTables(data)
	require.NoError(t, err)

	specs := tables.AnalyzersFor(models.PeriodD)
	require.Len(t, specs, 2)
	assert.Equal(t, "sma", specs[0].Type)
	assert.Equal(t, 20.0, specs[0].Param("period", 0))
	assert.Equal(t, 14.0, specs[1].Param("period", 14))

	source, ok := tables.SourceOf(models.PeriodW)
	assert.True(t, ok)
	assert.Equal(t, models.PeriodD, source)
	assert.False(t, tables.IsDerived(models.PeriodD))
	assert.Equal(t, []models.PeriodType{models.PeriodD, models.PeriodW}, tables.PeriodTypes())
}

func TestParseTables_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown period type", "analyzers:\n  daily:\n    - type: sma\n"},
		{"missing analyzer type", "analyzers:\n  D:\n    - params:\n        period: 3\n"},
		{"coarser source", "derivatives:\n  D: W\n"},
		{"not yaml", "analyzers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTables([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTables(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.NoError(t, tables.Validate())
	assert.True(t, tables.IsDerived(models.PeriodW))

	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analyzers:\n  M5:\n    - type: vwap\n"), 0o600))

	tables, err = LoadTables(path)
	require.NoError(t, err)
	assert.Len(t, tables.AnalyzersFor(models.PeriodM5), 1)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "journal", SSLMode: "disable"}

	dsn := d.DSN()
	assert.Contains(t, dsn, "host=db port=5432")
	assert.Contains(t, dsn, "dbname=journal")
	assert.Contains(t, dsn, "timezone=UTC")
}
