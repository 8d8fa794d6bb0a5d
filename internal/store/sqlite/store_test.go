package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
	"github.com/agentstation/tasklink/pkg/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tasklink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTemp(t)
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasklink.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.CreatePair(ctx, &records.LinkedPair{
		ID: "p1", SourceID: "a1", TargetID: "b1", Method: records.MethodExact, Confidence: 1, CreatedAt: utc.Now(),
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetPair(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, records.MethodExact, got.Method)
}

func TestSnapshotRequiresPair(t *testing.T) {
	s := openTemp(t)
	err := s.UpsertSnapshot(context.Background(), &records.Snapshot{PairID: "ghost", TakenAt: utc.Now()})
	require.Error(t, err)
	var storeErr *errors.StoreError
	assert.ErrorAs(t, err, &storeErr)
}
