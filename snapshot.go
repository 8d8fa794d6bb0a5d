package tasklink

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/differ"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
)

// Detector snapshots pairs and reports drift.
type Detector interface {
	// TakeSnapshot captures the current state of one fully linked pair,
	// including comment counts, as its new diff baseline.
	TakeSnapshot(ctx context.Context, pairID string) (*records.Snapshot, error)

	// SnapshotAll captures a baseline for every fully linked pair.
	SnapshotAll(ctx context.Context) (*SnapshotResult, error)

	// DetectChanges compares every fully linked pair against its snapshot.
	DetectChanges(ctx context.Context, opts DetectOptions) (*Report, error)

	// Changes lists the change log, newest first.
	Changes(ctx context.Context, filter store.ChangeFilter) ([]records.ChangeRecord, error)
}

// SnapshotResult is the outcome of SnapshotAll.
type SnapshotResult struct {
	Snapshotted []records.PairRef    `json:"snapshotted" yaml:"snapshotted"`
	Missing     []records.PairRef    `json:"missing,omitempty" yaml:"missing,omitempty"`
	Errors      []records.ErrorEntry `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// TakeSnapshot implements Detector.
func (c *client) TakeSnapshot(ctx context.Context, pairID string) (*records.Snapshot, error) {
	ctx = logging.WithPair(logging.WithOperation(ctx, "snapshot"), pairID)

	pair, err := c.store.GetPair(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if !pair.Linked() {
		return nil, errors.NewValidationError("pair", pairID, "only fully linked pairs can be snapshotted")
	}

	l := c.list(ctx)
	if len(l.errs) > 0 {
		e := l.errs[0]
		return nil, &errors.APIError{System: e.System, Message: e.Message}
	}
	live, ok := liveRecords(l, pair)
	if !ok {
		return nil, errors.NewNotFoundError("record", missingID(l, pair))
	}

	counts, err := c.baselineCounts(ctx, []*records.LinkedPair{pair})
	if err != nil {
		return nil, err
	}
	live.CommentsA, live.CommentsB = counts.get(pair)

	previous, err := c.store.GetSnapshot(ctx, pairID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	snap := c.differ.Capture(pairID, live, previous, now)
	if err := c.persistSnapshot(ctx, pair, snap, now); err != nil {
		return nil, err
	}
	return snap, nil
}

// SnapshotAll implements Detector.
func (c *client) SnapshotAll(ctx context.Context) (*SnapshotResult, error) {
	ctx = logging.WithOperation(ctx, "snapshot_all")

	pairs, err := c.store.ListPairs(ctx)
	if err != nil {
		return nil, err
	}
	l := c.list(ctx)
	result := &SnapshotResult{Errors: l.errs}

	present := make([]*records.LinkedPair, 0, len(pairs))
	for _, p := range pairs {
		if !p.Linked() {
			continue
		}
		if _, ok := liveRecords(l, p); !ok {
			result.Missing = append(result.Missing, p.Ref())
			continue
		}
		present = append(present, p)
	}

	counts, err := c.baselineCounts(ctx, present)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, counts.errs...)

	now := c.now()
	for _, p := range present {
		live, _ := liveRecords(l, p)
		live.CommentsA, live.CommentsB = counts.get(p)
		previous, err := c.store.GetSnapshot(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if err := c.persistSnapshot(ctx, p, c.differ.Capture(p.ID, live, previous, now), now); err != nil {
			return nil, err
		}
		result.Snapshotted = append(result.Snapshotted, p.Ref())
	}

	logging.FromContext(ctx).Info().
		Int("snapshotted", len(result.Snapshotted)).
		Int("missing", len(result.Missing)).
		Int("errors", len(result.Errors)).
		Msg("Snapshots taken")
	return result, nil
}

// Changes implements Detector.
func (c *client) Changes(ctx context.Context, filter store.ChangeFilter) ([]records.ChangeRecord, error) {
	return c.store.ListChanges(ctx, filter)
}

func (c *client) persistSnapshot(ctx context.Context, pair *records.LinkedPair, snap *records.Snapshot, at utc.Time) error {
	if err := c.store.UpsertSnapshot(ctx, snap); err != nil {
		return err
	}
	pair.SyncedAt = &at
	return c.store.UpdatePair(ctx, pair)
}

// liveRecords looks up both sides of a pair in a listing.
func liveRecords(l *listing, pair *records.LinkedPair) (differ.Live, bool) {
	a, okA := l.lookup(records.SideA, pair.SourceID)
	b, okB := l.lookup(records.SideB, pair.TargetID)
	return differ.Live{A: a, B: b}, okA && okB
}

func missingID(l *listing, pair *records.LinkedPair) string {
	if _, ok := l.lookup(records.SideA, pair.SourceID); !ok {
		return pair.SourceID
	}
	return pair.TargetID
}

// commentCounts holds fetched comment counts per side. Failed fetches are
// left out so they never become a baseline.
type commentCounts struct {
	counts map[records.Side]fetcher.Counts
	errs   []records.ErrorEntry
}

func (cc *commentCounts) get(pair *records.LinkedPair) (a, b *int) {
	if n, ok := cc.counts[records.SideA][pair.SourceID]; ok {
		a = records.IntPtr(n)
	}
	if n, ok := cc.counts[records.SideB][pair.TargetID]; ok {
		b = records.IntPtr(n)
	}
	return a, b
}

// baselineCounts fetches comment counts for both sides of every pair.
func (c *client) baselineCounts(ctx context.Context, pairs []*records.LinkedPair) (*commentCounts, error) {
	cc := &commentCounts{counts: make(map[records.Side]fetcher.Counts, 2)}
	for _, side := range []records.Side{records.SideA, records.SideB} {
		ids := make([]string, 0, len(pairs))
		for _, p := range pairs {
			ids = append(ids, p.SideID(side))
		}
		res, err := c.fetcher.Fetch(ctx, c.systems.Source(side), ids)
		if err != nil {
			return nil, err
		}
		counts := make(fetcher.Counts, len(res.Counts))
		for id, n := range res.Counts {
			if !res.Failed(id) {
				counts[id] = n
			}
		}
		cc.counts[side] = counts
		cc.errs = append(cc.errs, res.Errors...)
	}
	return cc, nil
}
