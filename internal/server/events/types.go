// Package events fans tasklink client events out to realtime transports.
// The server registers client hooks that publish to a Broker; subscribers
// such as the websocket hub deliver them to connected clients.
package events

import "time"

// EventType names an event.
type EventType string

// Event types.
const (
	PairLinked      EventType = "pair.linked"
	PairUnlinked    EventType = "pair.unlinked"
	DriftDetected   EventType = "drift.detected"
	DetectCompleted EventType = "detect.completed"
	ClientConnected EventType = "client.connected"
)

// Event is one published event.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
