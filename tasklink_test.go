package tasklink

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/internal/store/memory"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
)

const (
	containerA = "proj"
	containerB = "list"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// ts returns a timestamp h hours after epoch.
func ts(h int) *utc.Time {
	return &utc.Time{Time: epoch.Add(time.Duration(h) * time.Hour)}
}

type fixture struct {
	a      *sources.Static
	b      *sources.Static
	store  *memory.Store
	client Client
	ctx    context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		a: sources.NewStatic(sources.Capabilities{
			System:                 "tracker",
			Status:                 sources.StatusLabel,
			ModifiedTracksComments: true,
		}),
		b: sources.NewStatic(sources.Capabilities{
			System: "planner",
			Status: sources.StatusCompletion,
		}),
		store: memory.New(),
	}
	f.a.SetRecords(containerA)
	f.b.SetRecords(containerB)

	tick := 0
	seq := 0
	base := []Option{
		WithSystems(sources.Systems{A: f.a, B: f.b, ContainerA: containerA, ContainerB: containerB}),
		WithStore(f.store),
		WithFetcher(fetcher.New(fetcher.WithDelay(0))),
		WithClock(func() utc.Time {
			tick++
			return utc.Time{Time: epoch.Add(time.Duration(tick) * time.Second)}
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	}

	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	f.client = c
	f.ctx = logging.WithLogger(context.Background(), logging.NewNopLogger())
	return f
}

// linked creates a snapshotted pair between two fresh records.
func (f *fixture) linked(t *testing.T, a, b records.Record) *records.LinkedPair {
	t.Helper()
	f.addA(a)
	f.addB(b)
	pair, err := f.client.Link(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = f.client.TakeSnapshot(f.ctx, pair.ID)
	require.NoError(t, err)
	return pair
}

func (f *fixture) addA(recs ...records.Record) {
	existing, _ := f.a.ListRecords(context.Background(), containerA)
	f.a.SetRecords(containerA, append(existing, recs...)...)
}

func (f *fixture) addB(recs ...records.Record) {
	existing, _ := f.b.ListRecords(context.Background(), containerB)
	f.b.SetRecords(containerB, append(existing, recs...)...)
}

func TestNew(t *testing.T) {
	t.Run("requires both systems", func(t *testing.T) {
		_, err := New(WithSystems(sources.Systems{A: sources.NewStatic(sources.Capabilities{})}))
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("rejects nil store", func(t *testing.T) {
		_, err := New(WithStore(nil))
		assert.Error(t, err)
	})

	t.Run("rejects invalid ignore pattern", func(t *testing.T) {
		s := sources.NewStatic(sources.Capabilities{})
		_, err := New(WithSystems(sources.Systems{A: s, B: s}), WithIgnorePatterns("/(/"))
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("defaults to memory store", func(t *testing.T) {
		s := sources.NewStatic(sources.Capabilities{})
		c, err := New(WithSystems(sources.Systems{A: s, B: s}))
		require.NoError(t, err)
		pairs, err := c.Pairs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, pairs)
	})
}
