package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/engage/internal/config"
	"github.com/lumapix/engage/internal/ledger"
	"github.com/lumapix/engage/internal/orchestrator"
	"github.com/lumapix/engage/internal/push"
	"github.com/lumapix/engage/internal/window"
)

type emptySource struct{}

func (emptySource) Candidates(ctx context.Context, kind ledger.EventKind) ([]ledger.Candidate, error) {
	return nil, nil
}

func testRunner(t *testing.T) *orchestrator.Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gate, err := window.New([]config.CountryWindow{
		{Country: "US", Timezone: "UTC", Hour: 20, Minute: 30},
	})
	require.NoError(t, err)

	orch := orchestrator.New(gate, emptySource{}, push.NewLogSender(logger), logger)
	return orchestrator.NewRunner(orch, time.Minute, logger)
}

func TestStartRejectsBadSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(testRunner(t), "not a cron spec", logger)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a cron spec")
}

func TestStartAndStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(testRunner(t), "*/30 * * * *", logger)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
