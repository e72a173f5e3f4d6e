package orchestrator

import "sync"

// Registry is the per-run set of already-notified user identifiers. It is
// constructed empty at run start and discarded with the run — carrying one
// across runs is a correctness bug. A user is marked only after a successful
// dispatch, so a failed send leaves them available to later segments.
//
// Access is mutex-guarded because per-user dispatch inside a segment runs on
// a bounded worker pool. Segment ordering itself is a full barrier in the
// orchestrator, so priority semantics never race.
type Registry struct {
	mu       sync.Mutex
	notified map[string]struct{}
}

// NewRegistry creates an empty registry for one run.
func NewRegistry() *Registry {
	return &Registry{notified: make(map[string]struct{})}
}

// IsNotified reports whether the user already received a notification in
// this run.
func (r *Registry) IsNotified(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.notified[userID]
	return ok
}

// MarkNotified records a successful dispatch to the user.
func (r *Registry) MarkNotified(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified[userID] = struct{}{}
}

// Count returns the number of unique users notified so far.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notified)
}
