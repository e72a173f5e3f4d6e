package orchestrator

import (
	"fmt"
	"time"
)

// OutcomeStatus classifies what happened to one user in one segment.
type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Skip reasons.
const (
	ReasonAlreadyNotified = "already_notified"
	ReasonNotEligible     = "not_eligible" // deleted account or missing push token
	ReasonCountryGated    = "country_outside_window"
	ReasonNotQualified    = "not_qualified"
)

// Outcome records the result of evaluating one user for one segment.
type Outcome struct {
	UserID    string        `json:"user_id"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`     // skip reason or failure detail
	MessageID string        `json:"message_id,omitempty"` // set for sent outcomes
}

// SegmentReport tracks the outcome of one segment within a run.
type SegmentReport struct {
	Segment   string    `json:"segment"`
	Priority  int       `json:"priority"`
	Processed int       `json:"processed"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Err       string    `json:"error,omitempty"` // set when the candidate query itself failed
	Outcomes  []Outcome `json:"outcomes,omitempty"`
}

// Summary returns a human-readable summary.
func (r *SegmentReport) Summary() string {
	if r.Err != "" {
		return fmt.Sprintf("segment=%s query FAILED: %s", r.Segment, r.Err)
	}
	return fmt.Sprintf("segment=%s processed=%d sent=%d failed=%d skipped=%d",
		r.Segment, r.Processed, r.Sent, r.Failed, r.Skipped)
}

// RunReport tracks the outcome of a full orchestration run. It exists only
// in memory for the duration of one run plus however long the ops API keeps
// the latest copy around; nothing persists it.
type RunReport struct {
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	ActiveCountries []string        `json:"active_countries"`
	TotalSent       int             `json:"total_sent"`
	UniqueUsers     int             `json:"unique_users"`
	Segments        []SegmentReport `json:"segments"`
}

// Duration returns the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Skipped reports whether the run short-circuited because no country was
// inside its notification window.
func (r *RunReport) Skipped() bool {
	return len(r.ActiveCountries) == 0
}

// Summary returns a human-readable summary.
func (r *RunReport) Summary() string {
	if r.Skipped() {
		return fmt.Sprintf("skipped (no active countries) dur=%s", r.Duration().Round(time.Millisecond))
	}
	processed, failed := 0, 0
	for i := range r.Segments {
		processed += r.Segments[i].Processed
		failed += r.Segments[i].Failed
	}
	return fmt.Sprintf("countries=%v processed=%d sent=%d failed=%d unique_users=%d dur=%s",
		r.ActiveCountries, processed, r.TotalSent, failed, r.UniqueUsers,
		r.Duration().Round(time.Millisecond))
}
