// Package scheduler triggers orchestration runs on a fixed cron cadence
// (every 30 minutes by default). The engine itself decides per run whether
// any country is inside its notification window.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/lumapix/engage/internal/orchestrator"
)

// Scheduler drives the runner from a cron engine.
type Scheduler struct {
	engine *cron.Cron
	runner *orchestrator.Runner
	spec   string
	logger *slog.Logger
}

// New creates a Scheduler for the given cron spec (standard 5-field syntax).
func New(runner *orchestrator.Runner, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine: cron.New(),
		runner: runner,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the run job and starts the cron engine. An invalid spec is
// a configuration error and fails here.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.engine.AddFunc(s.spec, func() {
		report, err := s.runner.TryRun(ctx)
		if errors.Is(err, orchestrator.ErrRunInFlight) {
			s.logger.Warn("cron tick skipped: previous run still in flight")
			return
		}
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "summary", report.Summary())
	})
	if err != nil {
		return fmt.Errorf("register cron job %q: %w", s.spec, err)
	}

	s.engine.Start()
	s.logger.Info("scheduler started", "spec", s.spec)
	return nil
}

// Stop halts the cron engine and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.engine.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}
