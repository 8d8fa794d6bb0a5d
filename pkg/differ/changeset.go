package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/records"
)

// FieldChange is one field whose live value differs from its snapshot.
type FieldChange struct {
	Side     records.Side // side the edit happened on
	Field    string       // records.Field* name
	OldValue string       // snapshot value (descriptions truncated)
	NewValue string       // live value (descriptions truncated)
	EditedAt *utc.Time    // live last-modified timestamp, when known
}

// Changeset holds every field change of one pair.
type Changeset struct {
	PairID  string
	Changes []FieldChange
}

// HasChanges reports whether any field drifted.
func (c *Changeset) HasChanges() bool {
	return c != nil && len(c.Changes) > 0
}

// Records converts the changeset into change log entries.
func (c *Changeset) Records(newID func() string, detectedAt utc.Time) []records.ChangeRecord {
	out := make([]records.ChangeRecord, 0, len(c.Changes))
	for _, fc := range c.Changes {
		out = append(out, records.ChangeRecord{
			ID:         newID(),
			PairID:     c.PairID,
			Side:       fc.Side,
			Field:      fc.Field,
			OldValue:   fc.OldValue,
			NewValue:   fc.NewValue,
			EditedAt:   fc.EditedAt,
			DetectedAt: detectedAt,
		})
	}
	return out
}

// String returns a one-line summary such as "a.state: Open -> Done".
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "no changes"
	}
	parts := make([]string, 0, len(c.Changes))
	for _, fc := range c.Changes {
		parts = append(parts, fmt.Sprintf("%s.%s: %s -> %s", fc.Side, fc.Field, fc.OldValue, fc.NewValue))
	}
	return strings.Join(parts, "; ")
}
