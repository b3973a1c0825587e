// Package scheduler re-runs the fetch-and-persist pipeline on a cron
// schedule while the service is up.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"hhvacancies/internal/scraper"
	"hhvacancies/pkg/logging"
)

// Runner is satisfied by *scraper.Worker.
type Runner interface {
	Run(ctx context.Context) (scraper.RunReport, error)
}

// Scheduler wraps robfig/cron and manages the sync loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string // cron spec, e.g. "@every 6h"
	log    *logging.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler that fires every intervalHours hours.
func New(runner Runner, intervalHours int, log *logging.Logger) *Scheduler {
	return NewWithSpec(runner, fmt.Sprintf("@every %dh", intervalHours), log)
}

// NewWithSpec creates a Scheduler for an arbitrary cron spec.
func NewWithSpec(runner Runner, spec string, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   spec,
		log:    log.With("component", "scheduler"),
	}
}

// Start registers the job and starts the scheduler. Runs fire with ctx, so
// cancelling it aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// RunOnce runs the pipeline unless a previous run is still going.
// It reports whether a run actually happened.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous sync still running, tick skipped")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	rep, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("sync failed", "run_id", rep.RunID, "err", err)
		return true
	}
	s.log.Info("sync complete", "run_id", rep.RunID, "duration", rep.Duration.String())
	return true
}
