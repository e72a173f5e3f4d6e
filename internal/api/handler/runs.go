package handler

import (
	"context"
	"net/http"

	"github.com/lumapix/engage/internal/api/respond"
	"github.com/lumapix/engage/internal/ledger"
	"github.com/lumapix/engage/internal/segment"
)

// GetLastRun returns the report of the most recent orchestration run.
// @Summary Last run report
// @Description Returns the full report of the most recent run, including per-segment outcomes.
// @Tags runs
// @Produce json
// @Success 200 {object} orchestrator.RunReport
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/runs/last [get]
func (h *Handler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	report := h.runner.Last()
	if report == nil {
		respond.WriteError(w, http.StatusNotFound, "NO_RUNS", "No run has completed yet")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, report)
}

// TriggerRun starts an orchestration run in the background.
// @Summary Trigger a run
// @Description Starts a run unless one is already in flight. The run proceeds asynchronously; poll /api/v1/runs/last for the report.
// @Tags runs
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/runs [post]
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.runner.Running() {
		respond.WriteError(w, http.StatusConflict, "RUN_IN_FLIGHT", "A run is already in flight")
		return
	}

	// Detached from the request context: the run outlives the HTTP exchange.
	go func() {
		report, err := h.runner.TryRun(context.Background())
		if err != nil {
			h.logger.Warn("manual run rejected", "error", err)
			return
		}
		h.logger.Info("manual run finished", "summary", report.Summary())
	}()

	respond.WriteJSONObject(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"poll":   "/api/v1/runs/last",
	})
}

// segmentInfo is the listing shape for one registered segment.
type segmentInfo struct {
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	Kind         string `json:"kind"`
	CountryGated bool   `json:"country_gated"`
	Creatives    int    `json:"creatives"`
}

// GetSegments lists the registered segments in priority order.
// @Summary List segments
// @Description Returns the twelve registered segments in evaluation order.
// @Tags segments
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/segments [get]
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	registry := segment.Registry()
	infos := make([]segmentInfo, 0, len(registry))
	for _, s := range registry {
		infos = append(infos, segmentInfo{
			Name:         s.Name,
			Priority:     s.Priority,
			Kind:         string(s.Kind),
			CountryGated: s.CountryGated,
			Creatives:    len(segment.Variants(s.Name)),
		})
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"segments": infos,
		"count":    len(infos),
	})
}

// GetLedgerStats returns the distinct-user count per event kind.
// @Summary Ledger stats
// @Description Returns how many users have at least one counted entry per event kind.
// @Tags ledger
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/ledger/stats [get]
func (h *Handler) GetLedgerStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]int, len(ledger.Kinds))
	for _, kind := range ledger.Kinds {
		n, err := h.store.UsersWithKind(r.Context(), kind)
		if err != nil {
			h.logger.Error("ledger stats query failed", "kind", kind, "error", err)
			respond.WriteError(w, http.StatusInternalServerError, "LEDGER_QUERY_FAILED", "Failed to query activity counters")
			return
		}
		stats[string(kind)] = n
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"users_with_kind": stats,
	})
}
