// Package segment defines the twelve lifecycle segments as a priority-ordered
// table of pure predicates over a user's activity history, plus the creative
// catalog each segment draws its notification content from.
//
// Segments are stateless and re-evaluated fresh every run. A single generic
// driver (internal/orchestrator) iterates the table; there is no per-segment
// loop code.
package segment

import (
	"time"

	"github.com/lumapix/engage/internal/ledger"
)

// --------------------------------------------------------------------------
// Thresholds
// --------------------------------------------------------------------------

const (
	brandNewMaxAgeDays       = 3
	reminderWindowDays       = 7
	reminderMinEdits         = 1
	coreActiveMinEdits       = 3
	recentlyActiveMinHours   = 48
	inactiveMinDays          = 7
	inactiveMaxDays          = 30
	viralWindowDays          = 90
	savedWindowDays          = 30
	savedMinCount            = 2
	styleWindowDays          = 14
	styleMinCount            = 3
	streakMinLength          = 3
	paywallOpenWindowDays    = 14
	paywallDismissWindowDays = 7
)

// --------------------------------------------------------------------------
// Segment type
// --------------------------------------------------------------------------

// Metrics carries the classifier's supporting numbers for logging
// (streak length, days since last edit, window sums).
type Metrics map[string]any

// Predicate decides whether a user qualifies for a segment at the run
// instant. It must be pure: no I/O, no shared state.
type Predicate func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics)

// Segment is one lifecycle classification. Priority defines the strict
// evaluation order across the registry; a user notified by a higher-priority
// segment is skipped by every later one in the same run.
type Segment struct {
	Name     string
	Priority int

	// Kind drives candidate selection: only users with at least one counted
	// entry of this kind are fetched for the segment.
	Kind ledger.EventKind

	// CountryGated segments only run for users whose country is inside its
	// evening notification window. Ranks 7-12 are deliberately ungated
	// (always-on nudges); see the design notes before changing this.
	CountryGated bool

	Qualify Predicate
}

// Registry returns the twelve segments in strict priority order.
func Registry() []Segment {
	return []Segment{
		{
			Name: "BrandNew", Priority: 1, Kind: ledger.KindEditCompleted, CountryGated: true,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				age := accountAgeDays(u, now)
				sum := ledger.RollingSum(h.Series(ledger.KindEditCompleted), now, brandNewMaxAgeDays)
				return age <= brandNewMaxAgeDays && sum >= 1,
					Metrics{"account_age_days": age, "edits_3d": sum}
			},
		},
		{
			Name: "AiEditReminder", Priority: 2, Kind: ledger.KindEditCompleted, CountryGated: true,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				age := accountAgeDays(u, now)
				edits := h.Series(ledger.KindEditCompleted)
				sum := ledger.RollingSum(edits, now, reminderWindowDays)
				since, ok := ledger.DaysSinceLast(edits, now)
				return age > brandNewMaxAgeDays &&
						sum >= reminderMinEdits && sum < coreActiveMinEdits &&
						ok && since < 2,
					Metrics{"account_age_days": age, "edits_7d": sum, "days_since_edit": since}
			},
		},
		{
			Name: "CoreActive", Priority: 3, Kind: ledger.KindEditCompleted, CountryGated: true,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				edits := h.Series(ledger.KindEditCompleted)
				sum := ledger.RollingSum(edits, now, reminderWindowDays)
				since, ok := ledger.DaysSinceLast(edits, now)
				return sum >= coreActiveMinEdits && ok && since < 2,
					Metrics{"edits_7d": sum, "days_since_edit": since}
			},
		},
		{
			Name: "RecentlyActive", Priority: 4, Kind: ledger.KindEditCompleted, CountryGated: true,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				edits := h.Series(ledger.KindEditCompleted)
				hours, okH := ledger.HoursSinceLast(edits, now)
				days, okD := ledger.DaysSinceLast(edits, now)
				return okH && okD && hours > recentlyActiveMinHours && days <= inactiveMinDays,
					Metrics{"hours_since_edit": int(hours), "days_since_edit": days}
			},
		},
		{
			Name: "Inactive", Priority: 5, Kind: ledger.KindEditCompleted, CountryGated: true,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				days, ok := ledger.DaysSinceLast(h.Series(ledger.KindEditCompleted), now)
				return ok && days > inactiveMinDays && days <= inactiveMaxDays,
					Metrics{"days_since_edit": days}
			},
		},
		{
			Name: "Churned", Priority: 6, Kind: ledger.KindEditCompleted, CountryGated: true,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				days, ok := ledger.DaysSinceLast(h.Series(ledger.KindEditCompleted), now)
				return ok && days > inactiveMaxDays,
					Metrics{"days_since_edit": days}
			},
		},
		{
			Name: "Viral", Priority: 7, Kind: ledger.KindEditShared, CountryGated: false,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				sum := ledger.RollingSum(h.Series(ledger.KindEditShared), now, viralWindowDays)
				return sum >= 1, Metrics{"shares_90d": sum}
			},
		},
		{
			Name: "SavedEdit", Priority: 8, Kind: ledger.KindEditSaved, CountryGated: false,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				sum := ledger.RollingSum(h.Series(ledger.KindEditSaved), now, savedWindowDays)
				return sum >= savedMinCount, Metrics{"saves_30d": sum}
			},
		},
		{
			Name: "StyleOpened", Priority: 9, Kind: ledger.KindStyleOpened, CountryGated: false,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				sum := ledger.RollingSum(h.Series(ledger.KindStyleOpened), now, styleWindowDays)
				return sum >= styleMinCount, Metrics{"style_opens_14d": sum}
			},
		},
		{
			Name: "StreakBroken", Priority: 10, Kind: ledger.KindEditCompleted, CountryGated: false,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				edits := h.Series(ledger.KindEditCompleted)
				streak := ledger.StreakLength(edits, now)
				brokeYesterday := !ledger.HasEntryOn(edits, now, -1)
				return brokeYesterday && streak >= streakMinLength,
					Metrics{"streak_length": streak, "missed_yesterday": brokeYesterday}
			},
		},
		{
			Name: "AlmostSubscriber", Priority: 11, Kind: ledger.KindPaywallOpened, CountryGated: false,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				sum := ledger.RollingSum(h.Series(ledger.KindPaywallOpened), now, paywallOpenWindowDays)
				return sum >= 1 && !u.Subscribed, Metrics{"paywall_opens_14d": sum}
			},
		},
		{
			Name: "PaywallDismissed", Priority: 12, Kind: ledger.KindPaywallDismiss, CountryGated: false,
			Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, Metrics) {
				sum := ledger.RollingSum(h.Series(ledger.KindPaywallDismiss), now, paywallDismissWindowDays)
				return sum >= 1 && !u.Subscribed, Metrics{"paywall_dismissals_7d": sum}
			},
		},
	}
}

func accountAgeDays(u *ledger.User, now time.Time) int {
	return ledger.DaysBetween(u.CreatedAt, now)
}
