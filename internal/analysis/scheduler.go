package analysis

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mohamedkhairy/trade-journal/pkg/logger"
)

// RunStatus describes the most recent analysis run
type RunStatus struct {
	Running      bool      `json:"running"`
	Runs         int       `json:"runs"`
	LastStarted  time.Time `json:"last_started,omitempty"`
	LastFinished time.Time `json:"last_finished,omitempty"`
	LastErrors   []string  `json:"last_errors"`
}

// Scheduler triggers orchestrator runs on a cron schedule or on demand. At most
// one run is in flight; triggers arriving meanwhile are dropped.
type Scheduler struct {
	orch     *Orchestrator
	defaults RunRequest
	cron     *cron.Cron

	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	status RunStatus
}

// NewScheduler creates a scheduler running defaults on every scheduled tick
func NewScheduler(orch *Orchestrator, defaults RunRequest) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		orch:     orch,
		defaults: defaults,
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule registers the default run on a standard five-field cron spec
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if !s.Trigger(s.defaults) {
			logger.Warn("Skipping scheduled analysis run, previous run still in progress")
		}
	}); err != nil {
		return fmt.Errorf("register analysis schedule %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Analysis scheduler started",
		logger.Int("entries", len(s.cron.Entries())),
	)
}

// Stop stops scheduling, cancels an in-flight run and waits for it to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
	logger.Info("Analysis scheduler stopped")
}

// Trigger starts a run in the background. It returns false when a run is
// already in progress.
func (s *Scheduler) Trigger(req RunRequest) bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run(s.ctx, req)
	}()
	return true
}

// Wait blocks until the in-flight run, if any, has finished
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Running reports whether a run is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Status returns a snapshot of the run status
func (s *Scheduler) Status() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	st.Running = s.running.Load()
	st.LastErrors = append([]string{}, s.status.LastErrors...)
	return st
}

func (s *Scheduler) run(ctx context.Context, req RunRequest) {
	s.mu.Lock()
	s.status.LastStarted = time.Now().UTC()
	s.mu.Unlock()

	errs := s.orch.Run(ctx, req)

	s.mu.Lock()
	s.status.Runs++
	s.status.LastFinished = time.Now().UTC()
	s.status.LastErrors = errs
	finished := s.status.LastFinished
	s.mu.Unlock()

	logger.Info("Analysis run finished",
		logger.Time("finished_at", finished),
		logger.Int("errors", len(errs)),
	)
}
