package handlers

import (
	"net/http"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/server/events"
	"github.com/agentstation/tasklink/internal/server/response"
	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/store"
)

// DetectRequest is the body of POST /api/v1/detect.
type DetectRequest struct {
	BaselineNew bool `json:"baseline_new,omitempty"`
}

// HandleDetect handles POST /api/v1/detect.
func (h *Handlers) HandleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	report, err := h.client.DetectChanges(r.Context(), tasklink.DetectOptions{BaselineNew: req.BaselineNew})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	// snapshots written by the pass move synced_at
	h.cache.Flush()
	h.broker.Publish(events.DetectCompleted, map[string]any{
		"checked": report.Checked,
		"drifted": len(report.Drifted),
		"missing": len(report.Missing),
		"new":     len(report.New),
		"errors":  len(report.Errors),
	})
	response.OK(w, report)
}

// HandleChanges handles GET /api/v1/changes?pair=&limit=.
func (h *Handlers) HandleChanges(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", constants.DefaultChangeLimit)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	changes, err := h.client.Changes(r.Context(), store.ChangeFilter{
		PairID: r.URL.Query().Get("pair"),
		Limit:  limit,
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"changes": changes,
		"count":   len(changes),
	})
}
