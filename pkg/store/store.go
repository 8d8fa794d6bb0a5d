// Package store defines the persistence contracts for linked pairs,
// snapshots and the change log. Implementations live under internal/store.
package store

import (
	"context"

	"github.com/agentstation/tasklink/pkg/records"
)

// PairReader provides read access to linked pairs.
type PairReader interface {
	// GetPair returns a pair by id or a NotFoundError.
	GetPair(ctx context.Context, id string) (*records.LinkedPair, error)

	// FindPair returns the pair holding recordID on the given side, or a NotFoundError.
	FindPair(ctx context.Context, side records.Side, recordID string) (*records.LinkedPair, error)

	// ListPairs returns every pair ordered by creation time.
	ListPairs(ctx context.Context) ([]*records.LinkedPair, error)
}

// PairWriter provides write access to linked pairs. Writers enforce that a
// non-empty source or target id is held by at most one pair and report
// violations as AlreadyLinkedError.
type PairWriter interface {
	CreatePair(ctx context.Context, pair *records.LinkedPair) error
	UpdatePair(ctx context.Context, pair *records.LinkedPair) error

	// DeletePair removes a pair and its snapshot.
	DeletePair(ctx context.Context, id string) error
}

// SnapshotStore persists one snapshot per fully linked pair.
type SnapshotStore interface {
	// GetSnapshot returns the snapshot of a pair, or nil when none was taken.
	GetSnapshot(ctx context.Context, pairID string) (*records.Snapshot, error)

	// UpsertSnapshot creates or overwrites a pair's snapshot.
	UpsertSnapshot(ctx context.Context, snap *records.Snapshot) error
}

// ChangeFilter narrows a change log listing.
type ChangeFilter struct {
	PairID string
	Limit  int // 0 means no limit
}

// ChangeLog is the append-only history of detected drift.
type ChangeLog interface {
	AppendChanges(ctx context.Context, changes ...records.ChangeRecord) error

	// ListChanges returns changes newest first.
	ListChanges(ctx context.Context, filter ChangeFilter) ([]records.ChangeRecord, error)
}

// Store is the complete persistence interface.
type Store interface {
	PairReader
	PairWriter
	SnapshotStore
	ChangeLog
	Close() error
}
