package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed Source. All queries go through prepared
// statements registered in internal/db; nothing here writes.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ Source = (*Store)(nil)

// Candidates returns every user with at least one counted entry of the given
// kind, each carrying their full six-kind counter history. Rows arrive
// ordered by user id, so grouping is a single pass.
func (s *Store) Candidates(ctx context.Context, kind EventKind) ([]Candidate, error) {
	rows, err := s.pool.Query(ctx, "candidates_by_kind", string(kind))
	if err != nil {
		return nil, fmt.Errorf("query candidates for %s: %w", kind, err)
	}
	defer rows.Close()

	var (
		candidates []Candidate
		current    *Candidate
	)
	for rows.Next() {
		var (
			u         User
			entryKind string
			day       time.Time
			count     int
		)
		if err := rows.Scan(
			&u.ID, &u.PushToken, &u.Deleted, &u.Country, &u.Subscribed, &u.CreatedAt,
			&entryKind, &day, &count,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}

		if current == nil || current.User.ID != u.ID {
			candidates = append(candidates, Candidate{User: u, History: make(History, len(Kinds))})
			current = &candidates[len(candidates)-1]
		}

		k := EventKind(entryKind)
		current.History[k] = append(current.History[k], CounterEntry{Day: DayUTC(day), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates for %s: %w", kind, err)
	}
	return candidates, nil
}

// UsersWithKind returns how many distinct users have a counted entry for the
// kind. Used by the ops API only.
func (s *Store) UsersWithKind(ctx context.Context, kind EventKind) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "ledger_users_with_kind", string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users for %s: %w", kind, err)
	}
	return n, nil
}
