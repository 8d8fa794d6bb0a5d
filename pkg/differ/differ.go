// Package differ compares the live state of a linked pair against its
// snapshot, field by field, and builds the replacement snapshot.
package differ

import (
	"strconv"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
	"github.com/agentstation/tasklink/pkg/textnorm"
)

// Differ handles change detection for linked pairs.
type Differ interface {
	// Pair compares live records against a snapshot.
	Pair(snap *records.Snapshot, live Live) *Changeset

	// Capture builds a snapshot from live values. Comment counts that were
	// not observed are carried over from previous, which may be nil.
	Capture(pairID string, live Live, previous *records.Snapshot, at utc.Time) *records.Snapshot
}

// Live is the current remote state of both sides of a pair. A nil comment
// count means the count was not fetched in this pass.
type Live struct {
	A         records.Record
	B         records.Record
	CommentsA *int
	CommentsB *int
}

func (l Live) record(side records.Side) records.Record {
	if side == records.SideA {
		return l.A
	}
	return l.B
}

func (l Live) comments(side records.Side) *int {
	if side == records.SideA {
		return l.CommentsA
	}
	return l.CommentsB
}

type differ struct {
	status       map[records.Side]sources.StatusKind
	ignoreFields map[string]bool
	truncate     int
}

// New creates a Differ. By default side A compares state labels and side B
// compares completion flags.
func New(opts ...Option) Differ {
	d := &differ{
		status: map[records.Side]sources.StatusKind{
			records.SideA: sources.StatusLabel,
			records.SideB: sources.StatusCompletion,
		},
		ignoreFields: make(map[string]bool),
		truncate:     constants.DiffTruncateLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *differ) Pair(snap *records.Snapshot, live Live) *Changeset {
	cs := &Changeset{PairID: snap.PairID, Changes: []FieldChange{}}
	for _, side := range []records.Side{records.SideA, records.SideB} {
		cs.Changes = append(cs.Changes, d.side(side, snap.Side(side), live)...)
	}
	return cs
}

func (d *differ) side(side records.Side, old *records.SideState, live Live) []FieldChange {
	rec := live.record(side)
	changes := make([]FieldChange, 0)
	add := func(field, oldValue, newValue string) {
		if d.ignoreFields[field] {
			return
		}
		changes = append(changes, FieldChange{
			Side:     side,
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
			EditedAt: rec.ModifiedAt,
		})
	}

	if old.Name != rec.Name {
		add(records.FieldName, old.Name, rec.Name)
	}

	if desc := textnorm.CleanDescription(rec.Description); old.Description != desc {
		add(records.FieldDescription, textnorm.Truncate(old.Description, d.truncate), textnorm.Truncate(desc, d.truncate))
	}

	switch d.status[side] {
	case sources.StatusCompletion:
		if old.Completed != rec.Completed {
			add(records.FieldCompleted, strconv.FormatBool(old.Completed), strconv.FormatBool(rec.Completed))
		}
	default:
		if old.State != rec.State {
			add(records.FieldState, old.State, rec.State)
		}
	}

	if observed := live.comments(side); observed != nil && old.Comments != nil && *old.Comments != *observed {
		add(records.FieldComments, strconv.Itoa(*old.Comments), strconv.Itoa(*observed))
	}

	return changes
}

func (d *differ) Capture(pairID string, live Live, previous *records.Snapshot, at utc.Time) *records.Snapshot {
	snap := &records.Snapshot{PairID: pairID, TakenAt: at}
	for _, side := range []records.Side{records.SideA, records.SideB} {
		rec := live.record(side)
		state := snap.Side(side)
		state.Name = rec.Name
		state.Description = textnorm.CleanDescription(rec.Description)
		state.State = rec.State
		state.Completed = rec.Completed
		state.ModifiedAt = rec.ModifiedAt

		switch {
		case live.comments(side) != nil:
			state.Comments = records.IntPtr(*live.comments(side))
		case previous != nil && previous.Side(side).Comments != nil:
			state.Comments = records.IntPtr(*previous.Side(side).Comments)
		}
	}
	return snap
}
