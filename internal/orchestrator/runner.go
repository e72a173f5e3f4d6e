package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lumapix/engage/internal/metrics"
)

// ErrRunInFlight is returned when a trigger arrives while a run is active.
var ErrRunInFlight = errors.New("orchestration run already in flight")

// Runner serializes orchestration runs and retains the latest report for the
// ops API. Cron ticks and manual triggers both land here; an overlapping
// trigger is rejected rather than queued — the next tick is 30 minutes away.
type Runner struct {
	orch    *Orchestrator
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	last    *RunReport
}

// NewRunner wraps an Orchestrator with run serialization and report retention.
func NewRunner(orch *Orchestrator, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{orch: orch, timeout: timeout, logger: logger}
}

// TryRun executes one run unless another is in flight. The run is bounded by
// the configured timeout; expiry surfaces as per-user dispatch failures in
// the report rather than an aborted run.
func (r *Runner) TryRun(ctx context.Context) (*RunReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInFlight
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	report := r.orch.Run(ctx)

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	metrics.RecordRun(report.Skipped(), report.Duration())
	for i := range report.Segments {
		s := &report.Segments[i]
		metrics.RecordSegment(s.Segment, s.Sent, s.Failed, s.Skipped)
	}
	return report, nil
}

// Running reports whether a run is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Last returns the most recent report, or nil before the first run.
func (r *Runner) Last() *RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
