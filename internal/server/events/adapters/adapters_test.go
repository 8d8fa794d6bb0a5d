package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/internal/server/events"
	ws "github.com/agentstation/tasklink/internal/server/websocket"
	"github.com/agentstation/tasklink/pkg/logging"
)

func TestWebSocketSubscriberBroadcasts(t *testing.T) {
	logger := logging.NewNopLogger()
	hub := ws.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	broker := events.NewBroker(logger)
	broker.Subscribe(NewWebSocketSubscriber(hub))
	go broker.Run(ctx)

	// no clients: publishing must not block or fail
	broker.Publish(events.PairLinked, "p1")
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	sub := NewWebSocketSubscriber(hub)
	assert.NoError(t, sub.Send(events.Event{Type: events.DriftDetected, Timestamp: time.Now()}))
	assert.NoError(t, sub.Close())
}
