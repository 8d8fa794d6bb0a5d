package records

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/errors"
)

// LinkedPair is the durable association between a record in system A
// (the source) and a record in system B (the target). Either side may be
// empty while the pair is one-sided, never both.
type LinkedPair struct {
	ID         string    `json:"id" yaml:"id"`
	SourceID   string    `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	SourceName string    `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	TargetID   string    `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	TargetName string    `json:"target_name,omitempty" yaml:"target_name,omitempty"`
	Method     Method    `json:"method" yaml:"method"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	CreatedAt  utc.Time  `json:"created_at" yaml:"created_at"`
	SyncedAt   *utc.Time `json:"synced_at,omitempty" yaml:"synced_at,omitempty"`
}

// Linked reports whether both sides are bound.
func (p *LinkedPair) Linked() bool {
	return p.SourceID != "" && p.TargetID != ""
}

// SideID returns the record id held on the given side.
func (p *LinkedPair) SideID(side Side) string {
	if side == SideA {
		return p.SourceID
	}
	return p.TargetID
}

// Validate checks the pair invariants that do not need the store.
func (p *LinkedPair) Validate() error {
	if p.ID == "" {
		return errors.NewValidationError("id", p.ID, "cannot be empty")
	}
	if p.SourceID == "" && p.TargetID == "" {
		return errors.NewValidationError("", nil, "pair must hold at least one side")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return errors.NewValidationError("confidence", p.Confidence, "must be within [0,1]")
	}
	return nil
}
