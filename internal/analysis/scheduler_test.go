package analysis

import (
	"context"
	"testing"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TriggerRunsAndRecordsStatus(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	seed(t, store, "SPY")
	s := NewScheduler(newTestOrchestrator(store, testTables(), &recordingReporter{}), RunRequest{})

	require.True(t, s.Trigger(RunRequest{Symbols: []string{"SPY"}}))
	s.Wait()

	status := s.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Runs)
	assert.Empty(t, status.LastErrors)
	assert.False(t, status.LastFinished.Before(status.LastStarted))

	weeks, err := store.LoadCandles(context.Background(), "SPY", models.PeriodW)
	require.NoError(t, err)
	assert.Len(t, weeks, 2)
}

func TestScheduler_DropsOverlappingTriggers(t *testing.T) {
	s := NewScheduler(newTestOrchestrator(storage.NewMemoryCandleStorage(), testTables(), nil), RunRequest{})

	s.running.Store(true)
	assert.False(t, s.Trigger(RunRequest{}))
	assert.True(t, s.Status().Running)
	s.running.Store(false)
}

func TestScheduler_Schedule(t *testing.T) {
	s := NewScheduler(newTestOrchestrator(storage.NewMemoryCandleStorage(), testTables(), nil), RunRequest{})

	assert.NoError(t, s.Schedule("30 22 * * 1-5"))
	assert.Error(t, s.Schedule("not a schedule"))

	s.Start()
	s.Stop()
}

func TestScheduler_StopRecordsErrorsOfLastRun(t *testing.T) {
	store := storage.NewMemoryCandleStorage()
	s := NewScheduler(newTestOrchestrator(store, testTables(), nil), RunRequest{})

	// Nothing stored and no symbols requested: the run reports one error
	require.True(t, s.Trigger(RunRequest{PeriodTypes: []models.PeriodType{models.PeriodW}}))
	s.Stop()

	status := s.Status()
	assert.Equal(t, 1, status.Runs)
	require.Len(t, status.LastErrors, 1)
	assert.Contains(t, status.LastErrors[0], "no base period type")
}
