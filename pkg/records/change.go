package records

import (
	"github.com/agentstation/utc"
)

// Compared field names.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldState       = "state"
	FieldCompleted   = "completed"
	FieldComments    = "comments"
)

// ChangeRecord is an append-only log entry describing one field that
// drifted from its snapshot value. It is never mutated after creation.
type ChangeRecord struct {
	ID         string    `json:"id" yaml:"id"`
	PairID     string    `json:"pair_id" yaml:"pair_id"`
	Side       Side      `json:"side" yaml:"side"`
	Field      string    `json:"field" yaml:"field"`
	OldValue   string    `json:"old_value" yaml:"old_value"`
	NewValue   string    `json:"new_value" yaml:"new_value"`
	EditedAt   *utc.Time `json:"edited_at,omitempty" yaml:"edited_at,omitempty"`
	DetectedAt utc.Time  `json:"detected_at" yaml:"detected_at"`
}

// PairRef names a pair in reports without carrying the whole pair.
type PairRef struct {
	PairID     string `json:"pair_id" yaml:"pair_id"`
	SourceID   string `json:"source_id" yaml:"source_id"`
	SourceName string `json:"source_name" yaml:"source_name"`
	TargetID   string `json:"target_id" yaml:"target_id"`
	TargetName string `json:"target_name" yaml:"target_name"`
}

// Ref returns the report reference for a pair.
func (p *LinkedPair) Ref() PairRef {
	return PairRef{
		PairID:     p.ID,
		SourceID:   p.SourceID,
		SourceName: p.SourceName,
		TargetID:   p.TargetID,
		TargetName: p.TargetName,
	}
}

// ErrorEntry is a failure that degraded a pass without aborting it.
type ErrorEntry struct {
	System    string `json:"system" yaml:"system"`
	Operation string `json:"operation" yaml:"operation"`
	RecordID  string `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Message   string `json:"message" yaml:"message"`
}
