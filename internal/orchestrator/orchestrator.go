// Package orchestrator runs one segmentation-and-dispatch pass: gate on the
// evening notification windows, evaluate the twelve segments in strict
// priority order, send at most one push per user, and aggregate a RunReport.
//
// A run is a single pass — no retries inside it; the next scheduled run is a
// fully independent instance with a fresh dedup registry.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lumapix/engage/internal/ledger"
	"github.com/lumapix/engage/internal/push"
	"github.com/lumapix/engage/internal/segment"
	"github.com/lumapix/engage/internal/window"
)

// Orchestrator wires the gate, ledger, segment registry, and push sender
// into the run loop.
type Orchestrator struct {
	gate     *window.Gate
	source   ledger.Source
	sender   push.Sender
	segments []segment.Segment
	workers  int
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the run clock. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithWorkers sets the per-segment dispatch worker count.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSegments replaces the default registry. Tests use this to isolate
// individual segments.
func WithSegments(segs []segment.Segment) Option {
	return func(o *Orchestrator) { o.segments = segs }
}

// New creates an Orchestrator over the default segment registry.
func New(gate *window.Gate, source ledger.Source, sender push.Sender, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:     gate,
		source:   source,
		sender:   sender,
		segments: segment.Registry(),
		workers:  4,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one orchestration pass. Only configuration-level problems
// surface as errors before this point; everything inside a run is contained
// per segment and per user, so Run always returns a report.
func (o *Orchestrator) Run(ctx context.Context) *RunReport {
	now := o.now()
	report := &RunReport{StartedAt: now}

	active := o.gate.ActiveCountries(now)
	report.ActiveCountries = active
	if len(active) == 0 {
		report.FinishedAt = o.now()
		o.logger.Info("run skipped: no country inside its notification window")
		return report
	}
	o.logger.Info("run started", "active_countries", active)

	activeSet := make(map[string]struct{}, len(active))
	for _, c := range active {
		activeSet[c] = struct{}{}
	}

	registry := NewRegistry()

	for _, seg := range o.segments {
		segReport := o.runSegment(ctx, seg, now, activeSet, registry)
		report.Segments = append(report.Segments, segReport)
		report.TotalSent += segReport.Sent
		o.logger.Info("segment complete", "summary", segReport.Summary())
	}

	report.UniqueUsers = registry.Count()
	report.FinishedAt = o.now()
	o.logger.Info("run complete", "summary", report.Summary())
	return report
}

// runSegment evaluates one segment's candidates on a bounded worker pool.
// The pool drains fully before returning, so the next segment observes every
// registry update made here — segment ordering is a hard barrier.
func (o *Orchestrator) runSegment(ctx context.Context, seg segment.Segment, now time.Time, activeSet map[string]struct{}, registry *Registry) SegmentReport {
	report := SegmentReport{Segment: seg.Name, Priority: seg.Priority}

	candidates, err := o.source.Candidates(ctx, seg.Kind)
	if err != nil {
		// Query failure isolates to this segment; the rest of the run goes on.
		report.Err = err.Error()
		o.logger.Error("candidate query failed", "segment", seg.Name, "error", err)
		return report
	}
	if len(candidates) == 0 {
		return report
	}

	workers := o.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	ch := make(chan ledger.Candidate, len(candidates))
	for _, c := range candidates {
		ch <- c
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range ch {
				outcome := o.evaluate(ctx, seg, cand, now, activeSet, registry)

				mu.Lock()
				report.Processed++
				switch outcome.Status {
				case OutcomeSent:
					report.Sent++
				case OutcomeFailed:
					report.Failed++
				case OutcomeSkipped:
					report.Skipped++
				}
				report.Outcomes = append(report.Outcomes, outcome)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return report
}

// evaluate classifies and, when the user qualifies, dispatches. Panics from
// malformed data are contained here and counted as failures — one bad row
// must never abort the batch.
func (o *Orchestrator) evaluate(ctx context.Context, seg segment.Segment, cand ledger.Candidate, now time.Time, activeSet map[string]struct{}, registry *Registry) (outcome Outcome) {
	outcome = Outcome{UserID: cand.User.ID}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = OutcomeFailed
			outcome.Reason = fmt.Sprintf("panic: %v", r)
			o.logger.Error("user evaluation panicked",
				"segment", seg.Name, "user_id", cand.User.ID, "panic", r)
		}
	}()

	u := cand.User
	if u.Deleted || !u.HasToken() {
		outcome.Status = OutcomeSkipped
		outcome.Reason = ReasonNotEligible
		return outcome
	}

	if seg.CountryGated {
		if u.Country == nil {
			outcome.Status = OutcomeSkipped
			outcome.Reason = ReasonCountryGated
			return outcome
		}
		if _, ok := activeSet[*u.Country]; !ok {
			outcome.Status = OutcomeSkipped
			outcome.Reason = ReasonCountryGated
			return outcome
		}
	}

	// One notification per user per run, across all segments.
	if registry.IsNotified(u.ID) {
		outcome.Status = OutcomeSkipped
		outcome.Reason = ReasonAlreadyNotified
		return outcome
	}

	qualified, metrics := seg.Qualify(&u, cand.History, now)
	if !qualified {
		outcome.Status = OutcomeSkipped
		outcome.Reason = ReasonNotQualified
		return outcome
	}

	creative, err := segment.Pick(seg.Name)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}

	result := o.sender.Send(ctx, *u.PushToken, push.Notification{
		Title:    creative.Title,
		Body:     creative.Body,
		ImageURL: creative.ImageURL,
	})
	if !result.Success {
		// Not marked in the registry: a later segment may still reach them.
		outcome.Status = OutcomeFailed
		outcome.Reason = result.Error
		o.logger.Warn("dispatch failed",
			"segment", seg.Name, "user_id", u.ID, "error", result.Error)
		return outcome
	}

	registry.MarkNotified(u.ID)
	outcome.Status = OutcomeSent
	outcome.MessageID = result.MessageID

	fields := []any{"segment", seg.Name, "user_id", u.ID, "message_id", result.MessageID}
	for k, v := range metrics {
		fields = append(fields, k, v)
	}
	o.logger.Info("notification sent", fields...)
	return outcome
}
