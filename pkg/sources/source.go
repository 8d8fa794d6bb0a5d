package sources

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/records"
)

// StatusKind names the status vocabulary a system exposes.
type StatusKind string

const (
	// StatusLabel systems expose a free-form state label such as "Open" or "Done".
	StatusLabel StatusKind = "label"
	// StatusCompletion systems expose a completed flag.
	StatusCompletion StatusKind = "completion"
)

// Capabilities describes the parts of a system's data model the
// reconciliation engines depend on.
type Capabilities struct {
	// System is a short name used in logs and error entries.
	System string
	// Status selects which status field is compared during detection.
	Status StatusKind
	// ModifiedTracksComments is true when a record's last-modified timestamp
	// moves whenever a comment is added. Detection then only re-fetches
	// comments for records modified since their snapshot.
	ModifiedTracksComments bool
}

// Comment is one discussion item on a record.
type Comment struct {
	ID        string   `json:"id"`
	Author    string   `json:"author,omitempty"`
	Body      string   `json:"body,omitempty"`
	CreatedAt utc.Time `json:"created_at"`
}

// Source reads records from one remote task system.
type Source interface {
	// Capabilities describes the system.
	Capabilities() Capabilities

	// ListRecords returns every record in a container (project, list, board).
	ListRecords(ctx context.Context, container string) ([]records.Record, error)

	// ListComments returns the discussion items of one record.
	ListComments(ctx context.Context, recordID string) ([]Comment, error)
}

// Systems binds the two reconciled sources to their containers.
type Systems struct {
	A          Source
	B          Source
	ContainerA string
	ContainerB string
}

// Source returns the source for a side.
func (s Systems) Source(side records.Side) Source {
	if side == records.SideA {
		return s.A
	}
	return s.B
}

// Container returns the container for a side.
func (s Systems) Container(side records.Side) string {
	if side == records.SideA {
		return s.ContainerA
	}
	return s.ContainerB
}
