// Package memory provides an in-memory store.Store for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
)

// Store keeps pairs, snapshots and changes in maps guarded by one lock.
type Store struct {
	mu        sync.RWMutex
	pairs     map[string]records.LinkedPair
	snapshots map[string]records.Snapshot
	changes   []records.ChangeRecord
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		pairs:     make(map[string]records.LinkedPair),
		snapshots: make(map[string]records.Snapshot),
	}
}

// GetPair implements store.PairReader.
func (s *Store) GetPair(_ context.Context, id string) (*records.LinkedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairs[id]
	if !ok {
		return nil, errors.NewNotFoundError("pair", id)
	}
	return &p, nil
}

// FindPair implements store.PairReader.
func (s *Store) FindPair(_ context.Context, side records.Side, recordID string) (*records.LinkedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.holder(side, recordID, ""); p != nil {
		return p, nil
	}
	return nil, errors.NewNotFoundError("pair for record", recordID)
}

// ListPairs implements store.PairReader.
func (s *Store) ListPairs(_ context.Context) ([]*records.LinkedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*records.LinkedPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Time.Equal(out[j].CreatedAt.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time)
	})
	return out, nil
}

// CreatePair implements store.PairWriter.
func (s *Store) CreatePair(_ context.Context, pair *records.LinkedPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pairs[pair.ID]; exists {
		return errors.NewValidationError("id", pair.ID, "pair already exists")
	}
	if err := s.checkUnique(pair); err != nil {
		return err
	}
	s.pairs[pair.ID] = *pair
	return nil
}

// UpdatePair implements store.PairWriter.
func (s *Store) UpdatePair(_ context.Context, pair *records.LinkedPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pairs[pair.ID]; !exists {
		return errors.NewNotFoundError("pair", pair.ID)
	}
	if err := s.checkUnique(pair); err != nil {
		return err
	}
	s.pairs[pair.ID] = *pair
	return nil
}

// DeletePair implements store.PairWriter.
func (s *Store) DeletePair(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pairs[id]; !exists {
		return errors.NewNotFoundError("pair", id)
	}
	delete(s.pairs, id)
	delete(s.snapshots, id)
	return nil
}

// GetSnapshot implements store.SnapshotStore.
func (s *Store) GetSnapshot(_ context.Context, pairID string) (*records.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[pairID]
	if !ok {
		return nil, nil
	}
	return copySnapshot(snap), nil
}

// UpsertSnapshot implements store.SnapshotStore.
func (s *Store) UpsertSnapshot(_ context.Context, snap *records.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[snap.PairID]; !ok {
		return errors.NewNotFoundError("pair", snap.PairID)
	}
	s.snapshots[snap.PairID] = *copySnapshot(*snap)
	return nil
}

// AppendChanges implements store.ChangeLog.
func (s *Store) AppendChanges(_ context.Context, changes ...records.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, changes...)
	return nil
}

// ListChanges implements store.ChangeLog.
func (s *Store) ListChanges(_ context.Context, filter store.ChangeFilter) ([]records.ChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]records.ChangeRecord, 0)
	for i := len(s.changes) - 1; i >= 0; i-- {
		c := s.changes[i]
		if filter.PairID != "" && c.PairID != filter.PairID {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// holder returns the pair other than exclude holding id on side.
func (s *Store) holder(side records.Side, id, exclude string) *records.LinkedPair {
	if id == "" {
		return nil
	}
	for _, p := range s.pairs {
		if p.ID != exclude && p.SideID(side) == id {
			return &p
		}
	}
	return nil
}

func (s *Store) checkUnique(pair *records.LinkedPair) error {
	for _, side := range []records.Side{records.SideA, records.SideB} {
		if other := s.holder(side, pair.SideID(side), pair.ID); other != nil {
			return errors.NewAlreadyLinkedError(side.String(), pair.SideID(side), other.ID)
		}
	}
	return nil
}

func copySnapshot(snap records.Snapshot) *records.Snapshot {
	for _, st := range []*records.SideState{&snap.A, &snap.B} {
		if st.Comments != nil {
			st.Comments = records.IntPtr(*st.Comments)
		}
		if st.ModifiedAt != nil {
			ts := *st.ModifiedAt
			st.ModifiedAt = &ts
		}
	}
	return &snap
}
