package handlers

import (
	"net/http"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/server/response"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
)

// AutoMatchRequest is the body of POST /api/v1/match/auto.
type AutoMatchRequest struct {
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Strategy      string  `json:"strategy,omitempty"`
	Apply         bool    `json:"apply,omitempty"`
}

// AcceptRequest is the body of POST /api/v1/match/accept.
type AcceptRequest struct {
	Matches []records.SuggestedMatch `json:"matches"`
}

// HandleSuggest handles GET /api/v1/suggestions/{sourceID}.
func (h *Handlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	minConf, err := queryFloat(r, "min_confidence")
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	opts, err := matchOptions(minConf, r.URL.Query().Get("strategy"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	id := r.PathValue("sourceID")
	key := "suggest:" + id + ":" + r.URL.RawQuery
	if cached, ok := h.cache.Get(key); ok {
		response.OK(w, cached)
		return
	}
	res, err := h.client.Suggest(r.Context(), id, opts)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	// degraded listings are served but never cached
	if len(res.Errors) == 0 {
		h.cache.Set(key, res)
	}
	response.OK(w, res)
}

// HandleAutoMatch handles POST /api/v1/match/auto.
func (h *Handlers) HandleAutoMatch(w http.ResponseWriter, r *http.Request) {
	var req AutoMatchRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	opts, err := matchOptions(req.MinConfidence, req.Strategy)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	res, err := h.client.AutoMatchAll(r.Context(), tasklink.AutoMatchOptions{MatchOptions: opts, Apply: req.Apply})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if req.Apply {
		h.cache.Flush()
	}
	response.OK(w, res)
}

// HandleAccept handles POST /api/v1/match/accept. Conflicts are reported
// in the result, not as an error status.
func (h *Handlers) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if len(req.Matches) == 0 {
		response.ErrorFromType(w, errors.NewValidationError("matches", nil, "cannot be empty"))
		return
	}

	res, err := h.client.AcceptAll(r.Context(), req.Matches)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Flush()
	response.OK(w, res)
}
