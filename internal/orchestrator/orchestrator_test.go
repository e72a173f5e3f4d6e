package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/engage/internal/config"
	"github.com/lumapix/engage/internal/ledger"
	"github.com/lumapix/engage/internal/push"
	"github.com/lumapix/engage/internal/segment"
	"github.com/lumapix/engage/internal/window"
)

// inWindow is an instant inside the test gate's 20:30 UTC window; outOfWindow
// is the same day at mid-morning.
var (
	inWindow    = time.Date(2026, 1, 20, 20, 45, 0, 0, time.UTC)
	outOfWindow = time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGate(t *testing.T) *window.Gate {
	t.Helper()
	gate, err := window.New([]config.CountryWindow{
		{Country: "US", Timezone: "UTC", Hour: 20, Minute: 30},
	})
	require.NoError(t, err)
	return gate
}

// fakeSource serves candidates from a fixed per-kind map.
type fakeSource struct {
	candidates map[ledger.EventKind][]ledger.Candidate
	failKinds  map[ledger.EventKind]bool
}

func (f *fakeSource) Candidates(ctx context.Context, kind ledger.EventKind) ([]ledger.Candidate, error) {
	if f.failKinds[kind] {
		return nil, fmt.Errorf("candidate query for %s: connection reset", kind)
	}
	return f.candidates[kind], nil
}

// fakeSender records sends and fails the tokens it is told to.
type fakeSender struct {
	mu         sync.Mutex
	sent       []string       // tokens in send order
	failTokens map[string]int // remaining failures per token
}

func (f *fakeSender) Send(ctx context.Context, token string, n push.Notification) push.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTokens[token] > 0 {
		f.failTokens[token]--
		return push.Result{Error: "channel unavailable"}
	}
	f.sent = append(f.sent, token)
	return push.Result{Success: true, MessageID: fmt.Sprintf("msg-%d", len(f.sent))}
}

func (f *fakeSender) sentTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func candidate(id, country string, history ledger.History) ledger.Candidate {
	token := "tok-" + id
	var c *string
	if country != "" {
		c = &country
	}
	return ledger.Candidate{
		User: ledger.User{
			ID:        id,
			PushToken: &token,
			Country:   c,
			CreatedAt: inWindow.AddDate(0, 0, -120),
		},
		History: history,
	}
}

func editsAt(daysAgo ...int) []ledger.CounterEntry {
	out := make([]ledger.CounterEntry, 0, len(daysAgo))
	for _, d := range daysAgo {
		out = append(out, ledger.CounterEntry{Day: ledger.DayUTC(inWindow).AddDate(0, 0, -d), Count: 1})
	}
	return out
}

func segmentByName(t *testing.T, report *RunReport, name string) SegmentReport {
	t.Helper()
	for _, s := range report.Segments {
		if s.Segment == name {
			return s
		}
	}
	t.Fatalf("no report for segment %q", name)
	return SegmentReport{}
}

func TestRunSkipsOutsideAllWindows(t *testing.T) {
	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditShared: {candidate("u1", "US", ledger.History{
			ledger.KindEditShared: editsAt(1),
		})},
	}}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return outOfWindow }))
	report := orch.Run(context.Background())

	// Even ungated segments stay quiet when no country is in its window.
	assert.True(t, report.Skipped())
	assert.Empty(t, report.Segments)
	assert.Empty(t, sender.sentTokens())
}

func TestRunOneNotificationPerUser(t *testing.T) {
	// The user qualifies for CoreActive (edits today, yesterday, 3 days ago)
	// and has a paywall dismissal this week. CoreActive outranks
	// PaywallDismissed, so only one push goes out.
	history := ledger.History{
		ledger.KindEditCompleted:  editsAt(0, 1, 3),
		ledger.KindPaywallDismiss: editsAt(2),
	}
	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditCompleted:  {candidate("u1", "US", history)},
		ledger.KindPaywallDismiss: {candidate("u1", "US", history)},
	}}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }))
	report := orch.Run(context.Background())

	assert.Equal(t, 1, report.TotalSent)
	assert.Equal(t, 1, report.UniqueUsers)
	assert.Equal(t, []string{"tok-u1"}, sender.sentTokens())

	core := segmentByName(t, report, "CoreActive")
	assert.Equal(t, 1, core.Sent)

	dismissed := segmentByName(t, report, "PaywallDismissed")
	require.Len(t, dismissed.Outcomes, 1)
	assert.Equal(t, OutcomeSkipped, dismissed.Outcomes[0].Status)
	assert.Equal(t, ReasonAlreadyNotified, dismissed.Outcomes[0].Reason)
}

func TestRunFailedDispatchDoesNotBurnTheUser(t *testing.T) {
	// CoreActive's send fails; the user must still be reachable by
	// PaywallDismissed later in the same run.
	history := ledger.History{
		ledger.KindEditCompleted:  editsAt(0, 1, 3),
		ledger.KindPaywallDismiss: editsAt(2),
	}
	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditCompleted:  {candidate("u1", "US", history)},
		ledger.KindPaywallDismiss: {candidate("u1", "US", history)},
	}}
	sender := &fakeSender{failTokens: map[string]int{"tok-u1": 1}}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }))
	report := orch.Run(context.Background())

	core := segmentByName(t, report, "CoreActive")
	assert.Equal(t, 1, core.Failed)

	dismissed := segmentByName(t, report, "PaywallDismissed")
	assert.Equal(t, 1, dismissed.Sent)
	assert.Equal(t, 1, report.TotalSent)
}

func TestRunCountryGating(t *testing.T) {
	// Gated segment: BR is outside its window, nil country never qualifies.
	// Ungated segment: both go through.
	coreHistory := ledger.History{ledger.KindEditCompleted: editsAt(0, 1, 3)}
	shareHistory := ledger.History{ledger.KindEditShared: editsAt(5)}

	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditCompleted: {
			candidate("br-user", "BR", coreHistory),
			candidate("nowhere-user", "", coreHistory),
		},
		ledger.KindEditShared: {
			candidate("br-user", "BR", shareHistory),
			candidate("nowhere-user", "", shareHistory),
		},
	}}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }))
	report := orch.Run(context.Background())

	core := segmentByName(t, report, "CoreActive")
	assert.Equal(t, 0, core.Sent)
	for _, o := range core.Outcomes {
		assert.Equal(t, ReasonCountryGated, o.Reason)
	}

	viral := segmentByName(t, report, "Viral")
	assert.Equal(t, 2, viral.Sent)
}

func TestRunIneligibleUsers(t *testing.T) {
	history := ledger.History{ledger.KindEditShared: editsAt(5)}

	deleted := candidate("gone", "US", history)
	deleted.User.Deleted = true
	noToken := candidate("tokenless", "US", history)
	noToken.User.PushToken = nil

	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditShared: {deleted, noToken},
	}}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }))
	report := orch.Run(context.Background())

	viral := segmentByName(t, report, "Viral")
	assert.Equal(t, 0, viral.Sent)
	assert.Equal(t, 2, viral.Skipped)
	for _, o := range viral.Outcomes {
		assert.Equal(t, ReasonNotEligible, o.Reason)
	}
}

func TestRunQueryFailureIsolatesSegment(t *testing.T) {
	source := &fakeSource{
		candidates: map[ledger.EventKind][]ledger.Candidate{
			ledger.KindEditShared: {candidate("u1", "US", ledger.History{
				ledger.KindEditShared: editsAt(5),
			})},
		},
		failKinds: map[ledger.EventKind]bool{ledger.KindEditCompleted: true},
	}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }))
	report := orch.Run(context.Background())

	// Every edit_completed-driven segment failed its query...
	core := segmentByName(t, report, "CoreActive")
	assert.NotEmpty(t, core.Err)
	assert.Zero(t, core.Processed)

	// ...but the share-driven segment still ran and sent.
	viral := segmentByName(t, report, "Viral")
	assert.Equal(t, 1, viral.Sent)
	assert.Equal(t, 1, report.TotalSent)
}

func TestRunContainsPanickingPredicate(t *testing.T) {
	bad := segment.Segment{
		Name: "Viral", Priority: 1, Kind: ledger.KindEditShared,
		Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, segment.Metrics) {
			panic("malformed history")
		},
	}
	good := segment.Segment{
		Name: "SavedEdit", Priority: 2, Kind: ledger.KindEditSaved,
		Qualify: func(u *ledger.User, h ledger.History, now time.Time) (bool, segment.Metrics) {
			return true, nil
		},
	}

	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditShared: {candidate("u1", "US", ledger.History{})},
		ledger.KindEditSaved:  {candidate("u1", "US", ledger.History{})},
	}}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }),
		WithSegments([]segment.Segment{bad, good}))
	report := orch.Run(context.Background())

	first := segmentByName(t, report, "Viral")
	require.Len(t, first.Outcomes, 1)
	assert.Equal(t, OutcomeFailed, first.Outcomes[0].Status)
	assert.Contains(t, first.Outcomes[0].Reason, "panic")

	// The panic stayed contained: the next segment still reached the user.
	second := segmentByName(t, report, "SavedEdit")
	assert.Equal(t, 1, second.Sent)
}

func TestRunManyUsersAcrossWorkers(t *testing.T) {
	history := ledger.History{ledger.KindEditShared: editsAt(5)}
	var cands []ledger.Candidate
	for i := 0; i < 40; i++ {
		cands = append(cands, candidate(fmt.Sprintf("u%02d", i), "US", history))
	}
	source := &fakeSource{candidates: map[ledger.EventKind][]ledger.Candidate{
		ledger.KindEditShared: cands,
	}}
	sender := &fakeSender{}

	orch := New(testGate(t), source, sender, testLogger(),
		WithClock(func() time.Time { return inWindow }),
		WithWorkers(8))
	report := orch.Run(context.Background())

	viral := segmentByName(t, report, "Viral")
	assert.Equal(t, 40, viral.Processed)
	assert.Equal(t, 40, viral.Sent)
	assert.Equal(t, 40, report.UniqueUsers)
	assert.Len(t, sender.sentTokens(), 40)
}
