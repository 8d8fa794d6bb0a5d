// Package handlers implements the HTTP handlers of the tasklink API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/server/cache"
	"github.com/agentstation/tasklink/internal/server/events"
	"github.com/agentstation/tasklink/internal/server/response"
	ws "github.com/agentstation/tasklink/internal/server/websocket"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/matcher"
)

// maxBodySize bounds request bodies; imports of a few thousand pairs fit.
const maxBodySize = 4 << 20

// Handlers holds the dependencies shared by all handlers.
type Handlers struct {
	client    tasklink.Client
	cache     *cache.Cache
	broker    *events.Broker
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates Handlers.
func New(
	client tasklink.Client,
	c *cache.Cache,
	broker *events.Broker,
	hub *ws.Hub,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		client:    client,
		cache:     c,
		broker:    broker,
		hub:       hub,
		upgrader:  upgrader,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":    "healthy",
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"ws_client": h.hub.ClientCount(),
	})
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.WrapParse("json", "request body", err)
	}
	return nil
}

// matchOptions reads min_confidence and strategy. Zero values keep the
// client's configured settings.
func matchOptions(minConfidence float64, strategy string) (tasklink.MatchOptions, error) {
	var opts tasklink.MatchOptions
	if minConfidence < 0 || minConfidence > 1 {
		return opts, errors.NewValidationError("min_confidence", minConfidence, "must be between 0 and 1")
	}
	opts.MinConfidence = minConfidence
	if strategy != "" {
		s, err := matcher.ParseStrategy(strategy)
		if err != nil {
			return opts, errors.NewValidationError("strategy", strategy, err.Error())
		}
		opts.Strategy = s
	}
	return opts, nil
}

func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(key, raw, "must be a number")
	}
	return f, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewValidationError(key, raw, "must be a non-negative integer")
	}
	return n, nil
}
