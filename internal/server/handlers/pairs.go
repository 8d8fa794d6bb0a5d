package handlers

import (
	"net/http"

	"github.com/agentstation/tasklink/internal/server/events"
	"github.com/agentstation/tasklink/internal/server/response"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
)

const pairsKey = "pairs"

// LinkRequest is the body of POST /api/v1/pairs. Either both ids are set,
// or side and id describe a one-sided pair.
type LinkRequest struct {
	SourceID string `json:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Side     string `json:"side,omitempty"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// HandleListPairs handles GET /api/v1/pairs.
func (h *Handlers) HandleListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.cache.Remember(pairsKey, func() (any, error) {
		return h.client.Pairs(r.Context())
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	list := pairs.([]*records.LinkedPair)
	response.OK(w, map[string]any{
		"pairs": list,
		"count": len(list),
	})
}

// HandleGetPair handles GET /api/v1/pairs/{id}.
func (h *Handlers) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	pair, err := h.client.Pair(r.Context(), r.PathValue("id"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, pair)
}

// HandleCreatePair handles POST /api/v1/pairs.
func (h *Handlers) HandleCreatePair(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	var (
		pair *records.LinkedPair
		err  error
	)
	switch {
	case req.Side != "":
		side, perr := records.ParseSide(req.Side)
		if perr != nil {
			response.ErrorFromType(w, errors.NewValidationError("side", req.Side, perr.Error()))
			return
		}
		pair, err = h.client.LinkOneSided(r.Context(), side, req.ID, req.Name)
	case req.SourceID != "" && req.TargetID != "":
		pair, err = h.client.Link(r.Context(), req.SourceID, req.TargetID)
	default:
		err = errors.NewValidationError("body", "", "provide source_id and target_id, or side and id")
	}
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Flush()
	response.Created(w, pair)
}

// HandleDeletePair handles DELETE /api/v1/pairs/{id}.
func (h *Handlers) HandleDeletePair(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.client.Unlink(r.Context(), id); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Flush()
	h.broker.Publish(events.PairUnlinked, map[string]string{"pair_id": id})
	response.NoContent(w)
}

// HandleSnapshot handles POST /api/v1/pairs/{id}/snapshot.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.client.TakeSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Flush()
	response.OK(w, snap)
}
