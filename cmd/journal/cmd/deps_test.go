package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

func TestSplitSymbols(t *testing.T) {
	got := splitSymbols([]string{"aapl, msft", "", " ibm ,,"})
	assert.Equal(t, []string{"AAPL", "MSFT", "IBM"}, got)
	assert.Empty(t, splitSymbols(nil))
}

func TestParsePeriods(t *testing.T) {
	got, err := parsePeriods([]string{"D,W", " M "})
	require.NoError(t, err)
	assert.Equal(t, []models.PeriodType{models.PeriodD, models.PeriodW, models.PeriodM}, got)

	_, err = parsePeriods([]string{"D,Q"})
	assert.ErrorIs(t, err, models.ErrInvalidPeriodType)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "screen", "query", "serve", "watch", "import"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}
