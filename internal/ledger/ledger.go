// Package ledger provides read-only access to per-user activity counters
// (sparse daily event counts) and the calendar arithmetic used to classify
// users from them.
//
// The ledger is owned by the app's feature code; this engine only queries it.
package ledger

import (
	"context"
	"time"
)

// --------------------------------------------------------------------------
// Event kinds
// --------------------------------------------------------------------------

// EventKind identifies one of the six tracked activity counters.
type EventKind string

const (
	KindEditCompleted  EventKind = "edit_completed"
	KindPaywallOpened  EventKind = "paywall_opened"
	KindPaywallDismiss EventKind = "paywall_dismissed"
	KindEditSaved      EventKind = "edit_saved"
	KindEditShared     EventKind = "edit_shared"
	KindStyleOpened    EventKind = "style_opened"
)

// Kinds lists all tracked event kinds.
var Kinds = []EventKind{
	KindEditCompleted,
	KindPaywallOpened,
	KindPaywallDismiss,
	KindEditSaved,
	KindEditShared,
	KindStyleOpened,
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// User is the metadata the engine needs about an app user. Owned externally;
// read-only here.
type User struct {
	ID         string
	PushToken  *string
	Deleted    bool
	Country    *string
	Subscribed bool
	CreatedAt  time.Time
}

// HasToken reports whether the user has a usable push token.
func (u *User) HasToken() bool {
	return u.PushToken != nil && *u.PushToken != ""
}

// CounterEntry is one day's count for one event kind. At most one entry per
// calendar day per kind is expected; violations are tolerated by taking the
// max when shaping a series.
type CounterEntry struct {
	Day   time.Time // calendar day, midnight UTC
	Count int
}

// History holds a user's counter series for every event kind.
type History map[EventKind][]CounterEntry

// Series returns the entries for one kind (nil when the user has none).
func (h History) Series(kind EventKind) []CounterEntry {
	return h[kind]
}

// Candidate pairs a user with their full activity history.
type Candidate struct {
	User    User
	History History
}

// Source is the read-only query interface the orchestrator consumes.
// Implementations must pre-filter to users having at least one counted entry
// for the given kind.
type Source interface {
	Candidates(ctx context.Context, kind EventKind) ([]Candidate, error)
}
