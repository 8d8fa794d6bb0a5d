// Package records defines the data model shared by the matching and
// change-detection engines: remote records, linked pairs, snapshots and
// the append-only change log.
package records

import (
	"fmt"

	"github.com/agentstation/utc"
)

// Side identifies one of the two reconciled systems.
type Side string

const (
	// SideA is the system whose records act as match sources.
	SideA Side = "a"
	// SideB is the system whose records act as match targets.
	SideB Side = "b"
)

// String returns the side as a string.
func (s Side) String() string {
	return string(s)
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ParseSide parses "a" or "b".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideA, SideB:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Record is one unit of work as represented in a single remote system.
// The core only holds transient copies for the duration of one pass.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	State       string    `json:"state,omitempty" yaml:"state,omitempty"`         // state label, e.g. "Open"
	Completed   bool      `json:"completed,omitempty" yaml:"completed,omitempty"` // completion flag
	ModifiedAt  *utc.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
}

// Index builds an id lookup for a record listing.
func Index(recs []Record) map[string]Record {
	idx := make(map[string]Record, len(recs))
	for _, r := range recs {
		idx[r.ID] = r
	}
	return idx
}

// Method records how a link or candidate was produced.
type Method string

// Link and candidate methods.
const (
	MethodExact       Method = "exact"
	MethodFuzzy       Method = "fuzzy"
	MethodDescription Method = "description"
	MethodManual      Method = "manual"
	MethodImport      Method = "import"
)
