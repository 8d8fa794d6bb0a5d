// Package storetest provides a conformance suite run against every
// store.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func pair(id, source, target string, offset int) *records.LinkedPair {
	return &records.LinkedPair{
		ID:         id,
		SourceID:   source,
		SourceName: "source " + source,
		TargetID:   target,
		TargetName: "target " + target,
		Method:     records.MethodManual,
		Confidence: 1,
		CreatedAt:  utc.Time{Time: base.Add(time.Duration(offset) * time.Minute)},
	}
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("pairs", func(t *testing.T) { testPairs(t, newStore(t)) })
	t.Run("uniqueness", func(t *testing.T) { testUniqueness(t, newStore(t)) })
	t.Run("snapshots", func(t *testing.T) { testSnapshots(t, newStore(t)) })
	t.Run("changes", func(t *testing.T) { testChanges(t, newStore(t)) })
}

func testPairs(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreatePair(ctx, pair("p2", "a2", "", 2)))
	require.NoError(t, s.CreatePair(ctx, pair("p1", "a1", "b1", 1)))

	got, err := s.GetPair(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.TargetID)
	assert.True(t, got.CreatedAt.Time.Equal(base.Add(time.Minute)))

	found, err := s.FindPair(ctx, records.SideB, "b1")
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)

	_, err = s.FindPair(ctx, records.SideB, "nope")
	assert.True(t, errors.IsNotFound(err))

	list, err := s.ListPairs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)

	one := list[1]
	one.TargetID, one.TargetName = "b2", "target b2"
	synced := utc.Time{Time: base.Add(time.Hour)}
	one.SyncedAt = &synced
	require.NoError(t, s.UpdatePair(ctx, one))
	got, err = s.GetPair(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.TargetID)
	require.NotNil(t, got.SyncedAt)
	assert.True(t, got.SyncedAt.Time.Equal(synced.Time))

	require.NoError(t, s.DeletePair(ctx, "p2"))
	_, err = s.GetPair(ctx, "p2")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(s.DeletePair(ctx, "p2")))
	assert.True(t, errors.IsNotFound(s.UpdatePair(ctx, pair("p9", "a9", "", 9))))
}

func testUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreatePair(ctx, pair("p1", "a1", "b1", 1)))
	require.NoError(t, s.CreatePair(ctx, pair("p2", "", "b2", 2)))

	err := s.CreatePair(ctx, pair("p3", "a1", "", 3))
	assert.True(t, errors.IsAlreadyLinked(err), "duplicate source: %v", err)

	err = s.CreatePair(ctx, pair("p3", "a3", "b1", 3))
	assert.True(t, errors.IsAlreadyLinked(err), "duplicate target: %v", err)

	p2, err := s.GetPair(ctx, "p2")
	require.NoError(t, err)
	p2.SourceID = "a1"
	assert.True(t, errors.IsAlreadyLinked(s.UpdatePair(ctx, p2)))

	// Empty ids never collide.
	require.NoError(t, s.CreatePair(ctx, pair("p4", "", "b4", 4)))
}

func testSnapshots(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreatePair(ctx, pair("p1", "a1", "b1", 1)))

	snap, err := s.GetSnapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	modified := utc.Time{Time: base}
	want := &records.Snapshot{
		PairID:  "p1",
		A:       records.SideState{Name: "Fix login", Description: "Steps", State: "Open", ModifiedAt: &modified, Comments: records.IntPtr(2)},
		B:       records.SideState{Name: "Fix login", Completed: true},
		TakenAt: utc.Time{Time: base},
	}
	require.NoError(t, s.UpsertSnapshot(ctx, want))

	got, err := s.GetSnapshot(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Open", got.A.State)
	require.NotNil(t, got.A.Comments)
	assert.Equal(t, 2, *got.A.Comments)
	assert.Nil(t, got.B.Comments)
	assert.True(t, got.B.Completed)
	require.NotNil(t, got.A.ModifiedAt)
	assert.True(t, got.A.ModifiedAt.Time.Equal(base))

	want.A.State = "Done"
	require.NoError(t, s.UpsertSnapshot(ctx, want))
	got, err = s.GetSnapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Done", got.A.State)

	require.NoError(t, s.DeletePair(ctx, "p1"))
	got, err = s.GetSnapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got, "snapshot is deleted with its pair")
}

func testChanges(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		pairID := "p1"
		if i%2 == 1 {
			pairID = "p2"
		}
		require.NoError(t, s.AppendChanges(ctx, records.ChangeRecord{
			ID:         fmt.Sprintf("c%d", i),
			PairID:     pairID,
			Side:       records.SideA,
			Field:      records.FieldState,
			OldValue:   "Open",
			NewValue:   "Done",
			DetectedAt: utc.Time{Time: base.Add(time.Duration(i) * time.Minute)},
		}))
	}
	require.NoError(t, s.AppendChanges(ctx))

	all, err := s.ListChanges(ctx, store.ChangeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "c3", all[0].ID)

	p1, err := s.ListChanges(ctx, store.ChangeFilter{PairID: "p1"})
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, "c2", p1[0].ID)

	limited, err := s.ListChanges(ctx, store.ChangeFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c3", limited[0].ID)
}
