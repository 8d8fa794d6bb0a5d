// Package registry maps configured system kinds to source clients.
// It is kept apart from the clients to avoid import cycles.
package registry

import (
	"fmt"
	"slices"

	"github.com/agentstation/tasklink/internal/sources/planner"
	"github.com/agentstation/tasklink/internal/sources/tracker"
	"github.com/agentstation/tasklink/internal/transport"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/sources"
)

// registry maps system kinds to their client constructors.
var registry = map[string]func(transport.Config) (sources.Source, error){
	tracker.SystemName: func(cfg transport.Config) (sources.Source, error) { return tracker.NewClient(cfg) },
	planner.SystemName: func(cfg transport.Config) (sources.Source, error) { return planner.NewClient(cfg) },
}

// Get creates a new client for the given kind.
func Get(kind string, cfg transport.Config) (sources.Source, error) {
	newClient, ok := registry[kind]
	if !ok {
		return nil, &errors.ValidationError{
			Field:   "kind",
			Value:   kind,
			Message: fmt.Sprintf("unsupported system kind: %s (supported: %v)", kind, List()),
		}
	}
	return newClient(cfg)
}

// Has checks if a kind has a client implementation.
func Has(kind string) bool {
	_, ok := registry[kind]
	return ok
}

// List returns all supported kinds, sorted.
func List() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
