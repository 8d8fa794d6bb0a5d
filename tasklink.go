// Package tasklink keeps two independently owned task systems loosely
// consistent. It proposes links between records that describe the same
// unit of work, and it reports drift between linked records since their
// last snapshot.
//
// System A records are match sources and System B records are targets.
// Remote failures never abort a pass: they degrade to reduced output plus
// an error entry in the returned result.
//
// Example usage:
//
//	tl, err := tasklink.New(
//	    tasklink.WithSystems(sources.Systems{
//	        A: trackerClient, ContainerA: "proj-1",
//	        B: plannerClient, ContainerB: "list-9",
//	    }),
//	    tasklink.WithStore(db),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Propose one-to-one links across both systems
//	res, err := tl.AutoMatchAll(ctx, tasklink.AutoMatchOptions{})
//	for _, s := range res.Suggestions {
//	    fmt.Printf("%s -> %s (%.2f)\n", s.SourceName, s.Candidate.TargetName, s.Candidate.Confidence)
//	}
//
//	// Report drift since the last snapshot
//	report, err := tl.DetectChanges(ctx, tasklink.DetectOptions{})
package tasklink

import (
	"context"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/internal/filter"
	"github.com/agentstation/tasklink/pkg/differ"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/matcher"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
	"github.com/agentstation/tasklink/pkg/store"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client reconciles the records of two task systems.
type Client interface {

	// Matcher proposes links between unlinked records
	Matcher

	// Linker creates, completes and removes linked pairs
	Linker

	// Detector snapshots pairs and reports drift
	Detector

	// Hooks provides access to event callback registration
	Hooks
}

// client is the internal implementation of the Client interface.
type client struct {
	systems sources.Systems
	store   store.Store
	fetcher *fetcher.Fetcher
	differ  differ.Differ
	filter  *filter.Filter

	matchOpts []matcher.Option
	now       func() utc.Time
	newID     func() string

	// linkMu serializes acceptance so conflict checks and writes are atomic
	// within one process. The store enforces uniqueness across processes.
	linkMu sync.Mutex

	hooks *hooks
}

// New creates a Client. Both systems are required; the store defaults to
// an in-memory store.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.systems.A == nil || o.systems.B == nil {
		return nil, errors.NewConfigError("tasklink", "both systems are required", nil)
	}

	c := &client{
		systems:   o.systems,
		store:     o.store,
		fetcher:   o.fetcher,
		differ:    o.differ,
		filter:    o.filter,
		matchOpts: o.matchOpts,
		now:       o.now,
		newID:     o.newID,
		hooks:     newHooks(),
	}
	if c.differ == nil {
		c.differ = differ.New(differ.WithCapabilities(o.systems.A.Capabilities(), o.systems.B.Capabilities()))
	}

	logging.Debug().
		Str("system_a", o.systems.A.Capabilities().System).
		Str("system_b", o.systems.B.Capabilities().System).
		Msg("tasklink client created")

	return c, nil
}

// listing is the current bulk listing of both systems. A failed listing
// is treated as empty and recorded in errs.
type listing struct {
	records map[records.Side][]records.Record
	index   map[records.Side]map[string]records.Record
	errs    []records.ErrorEntry
}

func (c *client) list(ctx context.Context) *listing {
	l := &listing{
		records: make(map[records.Side][]records.Record, 2),
		index:   make(map[records.Side]map[string]records.Record, 2),
	}
	for _, side := range []records.Side{records.SideA, records.SideB} {
		src := c.systems.Source(side)
		system := src.Capabilities().System
		recs, err := src.ListRecords(ctx, c.systems.Container(side))
		if err != nil {
			logging.FromContext(ctx).Warn().
				Err(err).
				Str("system", system).
				Str("container", c.systems.Container(side)).
				Msg("Listing failed, treating as empty")
			l.errs = append(l.errs, records.ErrorEntry{
				System:    system,
				Operation: "list_records",
				Message:   err.Error(),
			})
			recs = nil
		}
		l.records[side] = recs
		l.index[side] = records.Index(recs)
	}
	return l
}

func (l *listing) lookup(side records.Side, id string) (records.Record, bool) {
	r, ok := l.index[side][id]
	return r, ok
}
