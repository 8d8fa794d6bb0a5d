package tasklink

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/differ"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/records"
)

// DetectOptions configures a detection pass.
type DetectOptions struct {
	// BaselineNew takes a first snapshot of pairs that have none. They are
	// still reported as new in this pass.
	BaselineNew bool
}

// Report is the outcome of a detection pass. Pairs missing from a listing
// are excluded from diffing. Pairs without a snapshot are reported as new
// instead of producing field changes.
type Report struct {
	Checked   int                    `json:"checked" yaml:"checked"`
	InSync    []records.PairRef      `json:"in_sync" yaml:"in_sync"`
	Drifted   []records.PairRef      `json:"drifted" yaml:"drifted"`
	Missing   []records.PairRef      `json:"missing" yaml:"missing"`
	New       []records.PairRef      `json:"new" yaml:"new"`
	Baselined []records.PairRef      `json:"baselined,omitempty" yaml:"baselined,omitempty"`
	Changes   []records.ChangeRecord `json:"changes" yaml:"changes"`
	Errors    []records.ErrorEntry   `json:"errors,omitempty" yaml:"errors,omitempty"`

	StartedAt  utc.Time `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time `json:"finished_at" yaml:"finished_at"`
}

// HasDrift reports whether any field changes were found.
func (r *Report) HasDrift() bool {
	return len(r.Changes) > 0
}

// candidate is a pair with both records present in this pass.
type candidate struct {
	pair *records.LinkedPair
	snap *records.Snapshot // nil for new pairs
	live differ.Live
}

// pending holds writes deferred until the whole pass has succeeded.
type pending struct {
	pair *records.LinkedPair
	snap *records.Snapshot
	ref  records.PairRef
	recs []records.ChangeRecord
}

// DetectChanges implements Detector.
func (c *client) DetectChanges(ctx context.Context, opts DetectOptions) (*Report, error) {
	ctx = logging.WithOperation(ctx, "detect")
	logger := logging.FromContext(ctx)
	report := &Report{
		InSync:    []records.PairRef{},
		Drifted:   []records.PairRef{},
		Missing:   []records.PairRef{},
		New:       []records.PairRef{},
		Changes:   []records.ChangeRecord{},
		StartedAt: c.now(),
	}

	pairs, err := c.store.ListPairs(ctx)
	if err != nil {
		return nil, err
	}
	l := c.list(ctx)
	report.Errors = append(report.Errors, l.errs...)

	var snapshotted, fresh []candidate
	targets := map[records.Side][]fetcher.Target{}
	for _, p := range pairs {
		if !p.Linked() {
			continue
		}
		report.Checked++

		live, ok := liveRecords(l, p)
		if !ok {
			report.Missing = append(report.Missing, p.Ref())
			continue
		}
		snap, err := c.store.GetSnapshot(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			report.New = append(report.New, p.Ref())
			fresh = append(fresh, candidate{pair: p, live: live})
			continue
		}

		snapshotted = append(snapshotted, candidate{pair: p, snap: snap, live: live})
		targets[records.SideA] = append(targets[records.SideA], fetcher.Target{PairID: p.ID, Live: live.A, Snapshot: &snap.A})
		targets[records.SideB] = append(targets[records.SideB], fetcher.Target{PairID: p.ID, Live: live.B, Snapshot: &snap.B})
	}

	secondary, err := c.fetcher.FetchSecondary(ctx, c.systems, targets)
	if err != nil {
		return nil, err
	}
	report.Errors = append(report.Errors, secondary.Errors...)

	now := c.now()
	var writes []pending
	for _, cand := range snapshotted {
		cand.live.CommentsA = observed(secondary, records.SideA, cand.pair.SourceID)
		cand.live.CommentsB = observed(secondary, records.SideB, cand.pair.TargetID)

		cs := c.differ.Pair(cand.snap, cand.live)
		if !cs.HasChanges() {
			report.InSync = append(report.InSync, cand.pair.Ref())
			if gainsCommentBaseline(cand) {
				writes = append(writes, pending{
					pair: cand.pair,
					snap: c.differ.Capture(cand.pair.ID, cand.live, cand.snap, now),
					ref:  cand.pair.Ref(),
				})
			}
			continue
		}

		recs := cs.Records(c.newID, now)
		report.Drifted = append(report.Drifted, cand.pair.Ref())
		report.Changes = append(report.Changes, recs...)
		writes = append(writes, pending{
			pair: cand.pair,
			snap: c.differ.Capture(cand.pair.ID, cand.live, cand.snap, now),
			ref:  cand.pair.Ref(),
			recs: recs,
		})
		logging.FromContext(logging.WithPair(ctx, cand.pair.ID)).Debug().
			Str("changes", cs.String()).
			Msg("Pair drifted")
	}

	if opts.BaselineNew && len(fresh) > 0 {
		freshPairs := make([]*records.LinkedPair, len(fresh))
		for i, f := range fresh {
			freshPairs[i] = f.pair
		}
		counts, err := c.baselineCounts(ctx, freshPairs)
		if err != nil {
			return nil, err
		}
		report.Errors = append(report.Errors, counts.errs...)
		for _, f := range fresh {
			f.live.CommentsA, f.live.CommentsB = counts.get(f.pair)
			writes = append(writes, pending{
				pair: f.pair,
				snap: c.differ.Capture(f.pair.ID, f.live, nil, now),
				ref:  f.pair.Ref(),
			})
			report.Baselined = append(report.Baselined, f.pair.Ref())
		}
	}

	// Nothing is persisted until every read of the pass has completed.
	if len(report.Changes) > 0 {
		if err := c.store.AppendChanges(ctx, report.Changes...); err != nil {
			return nil, err
		}
	}
	for _, w := range writes {
		if err := c.persistSnapshot(ctx, w.pair, w.snap, now); err != nil {
			return nil, err
		}
	}
	for _, w := range writes {
		if len(w.recs) > 0 {
			c.hooks.driftDetected(w.ref, w.recs)
		}
	}

	report.FinishedAt = c.now()
	logger.Info().
		Int("checked", report.Checked).
		Int("in_sync", len(report.InSync)).
		Int("drifted", len(report.Drifted)).
		Int("missing", len(report.Missing)).
		Int("new", len(report.New)).
		Int("changes", len(report.Changes)).
		Int("errors", len(report.Errors)).
		Msg("Detection pass complete")
	return report, nil
}

// observed returns the comment count fetched this pass, or nil when the
// record was not fetched or its fetch failed. A failed fetch is recorded
// as zero by the fetcher but must not be compared against the baseline.
func observed(s *fetcher.Secondary, side records.Side, id string) *int {
	n, ok := s.Observed(side, id)
	if !ok || s.Failed(side, id) {
		return nil
	}
	return records.IntPtr(n)
}

// gainsCommentBaseline reports whether a side whose snapshot has no
// comment count was observed this pass.
func gainsCommentBaseline(cand candidate) bool {
	return (cand.snap.A.Comments == nil && cand.live.CommentsA != nil) ||
		(cand.snap.B.Comments == nil && cand.live.CommentsB != nil)
}
