package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/agentstation/tasklink/internal/server/events"
	ws "github.com/agentstation/tasklink/internal/server/websocket"
	"github.com/agentstation/tasklink/pkg/logging"
)

// HandleWebSocket handles GET /api/v1/updates/ws. The request blocks for
// the lifetime of the connection.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		logging.FromContext(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	id := uuid.NewString()
	h.broker.Publish(events.ClientConnected, map[string]string{"client_id": id})
	ws.NewClient(id, h.hub, conn).Serve()
}
