package records

import (
	"github.com/agentstation/utc"
)

// SideState is the captured state of one record at snapshot time.
type SideState struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"` // normalized
	State       string    `json:"state,omitempty" yaml:"state,omitempty"`
	Completed   bool      `json:"completed" yaml:"completed"`
	ModifiedAt  *utc.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	// Comments is nil when no baseline count has been recorded.
	Comments *int `json:"comments,omitempty" yaml:"comments,omitempty"`
}

// Snapshot is the diff baseline for one fully linked pair.
type Snapshot struct {
	PairID  string    `json:"pair_id" yaml:"pair_id"`
	A       SideState `json:"a" yaml:"a"`
	B       SideState `json:"b" yaml:"b"`
	TakenAt utc.Time  `json:"taken_at" yaml:"taken_at"`
}

// Side returns the captured state for the given side.
func (s *Snapshot) Side(side Side) *SideState {
	if side == SideA {
		return &s.A
	}
	return &s.B
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
