package tasklink

import (
	"sync"

	"github.com/agentstation/tasklink/pkg/records"
)

// Hook function types for reconciliation events
type (
	// PairLinkedHook is called after a pair gains both sides.
	PairLinkedHook func(pair records.LinkedPair)

	// DriftDetectedHook is called once per drifted pair after a detection
	// pass has persisted its results.
	DriftDetectedHook func(pair records.PairRef, changes []records.ChangeRecord)
)

// Hooks registers event callbacks. Callbacks run synchronously on the
// goroutine that produced the event.
type Hooks interface {
	OnPairLinked(fn PairLinkedHook)
	OnDriftDetected(fn DriftDetectedHook)
}

// hooks manages event callbacks
type hooks struct {
	mu              sync.RWMutex
	onPairLinked    []PairLinkedHook
	onDriftDetected []DriftDetectedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnPairLinked implements Hooks.
func (c *client) OnPairLinked(fn PairLinkedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPairLinked = append(c.hooks.onPairLinked, fn)
}

// OnDriftDetected implements Hooks.
func (c *client) OnDriftDetected(fn DriftDetectedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onDriftDetected = append(c.hooks.onDriftDetected, fn)
}

func (h *hooks) pairLinked(pair *records.LinkedPair) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onPairLinked {
		fn(*pair)
	}
}

func (h *hooks) driftDetected(pair records.PairRef, changes []records.ChangeRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onDriftDetected {
		fn(pair, changes)
	}
}
