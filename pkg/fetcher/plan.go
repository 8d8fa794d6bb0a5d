package fetcher

import (
	"context"

	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
)

// Target is one side of a linked pair as seen by a detection pass.
type Target struct {
	PairID   string
	Live     records.Record
	Snapshot *records.SideState // nil when the pair has no snapshot
}

// Select returns the record ids whose comments must be re-fetched.
//
// Targets without a snapshot are skipped. A snapshot that lacks a comment
// count is always fetched so it can gain one. When the system's
// last-modified timestamp tracks comment activity, other records are
// fetched only if modified after their snapshot, or if either timestamp is
// missing. Otherwise every record is fetched.
func Select(caps sources.Capabilities, targets []Target) []string {
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		switch {
		case t.Snapshot == nil:
		case t.Snapshot.Comments == nil, !caps.ModifiedTracksComments:
			ids = append(ids, t.Live.ID)
		case modifiedSince(t.Live, t.Snapshot):
			ids = append(ids, t.Live.ID)
		}
	}
	return ids
}

func modifiedSince(live records.Record, snap *records.SideState) bool {
	if live.ModifiedAt == nil || snap.ModifiedAt == nil {
		return true
	}
	if live.ModifiedAt.IsZero() || snap.ModifiedAt.IsZero() {
		return true
	}
	return live.ModifiedAt.Time.After(snap.ModifiedAt.Time)
}

// Secondary is the per-side result of FetchSecondary.
type Secondary struct {
	Counts map[records.Side]Counts
	Errors []records.ErrorEntry

	failed map[records.Side]map[string]bool
}

// Observed returns the fetched count for a record and whether one exists.
func (s *Secondary) Observed(side records.Side, id string) (int, bool) {
	if s == nil {
		return 0, false
	}
	n, ok := s.Counts[side][id]
	return n, ok
}

// Failed reports whether the fetch for a record failed in this pass.
func (s *Secondary) Failed(side records.Side, id string) bool {
	if s == nil {
		return false
	}
	return s.failed[side][id]
}

// FetchSecondary selects and fetches comment counts for both sides.
// Empty target lists are a no-op.
func (f *Fetcher) FetchSecondary(ctx context.Context, systems sources.Systems, targets map[records.Side][]Target) (*Secondary, error) {
	out := &Secondary{
		Counts: map[records.Side]Counts{
			records.SideA: {},
			records.SideB: {},
		},
		failed: map[records.Side]map[string]bool{
			records.SideA: {},
			records.SideB: {},
		},
	}

	for _, side := range []records.Side{records.SideA, records.SideB} {
		src := systems.Source(side)
		if src == nil || len(targets[side]) == 0 {
			continue
		}
		ids := Select(src.Capabilities(), targets[side])
		res, err := f.Fetch(ctx, src, ids)
		if res != nil {
			out.Counts[side] = res.Counts
			out.Errors = append(out.Errors, res.Errors...)
			out.failed[side] = res.failed
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
