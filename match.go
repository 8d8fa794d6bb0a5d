package tasklink

import (
	"context"
	"slices"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/matcher"
	"github.com/agentstation/tasklink/pkg/records"
)

// Matcher proposes links between unlinked records.
type Matcher interface {
	// ScoreCandidates ranks targets for one source record. It performs no I/O.
	ScoreCandidates(source records.Record, targets []records.Record, opts MatchOptions) []records.MatchCandidate

	// Suggest scores one System A record against every unlinked System B record.
	Suggest(ctx context.Context, sourceID string, opts MatchOptions) (*Suggestions, error)

	// AutoMatchAll proposes one-to-one links for every unlinked System A
	// record. With Apply set, each suggestion is accepted.
	AutoMatchAll(ctx context.Context, opts AutoMatchOptions) (*AutoMatchResult, error)
}

// MatchOptions overrides the configured matcher for one call. Zero values
// keep the configured setting.
type MatchOptions struct {
	MinConfidence float64
	Strategy      matcher.Strategy
}

// AutoMatchOptions configures an auto-match pass.
type AutoMatchOptions struct {
	MatchOptions
	Apply bool
}

// Suggestions is the result of Suggest.
type Suggestions struct {
	Source     records.Record           `json:"source" yaml:"source"`
	Candidates []records.MatchCandidate `json:"candidates" yaml:"candidates"`
	Errors     []records.ErrorEntry     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// AutoMatchResult is the result of AutoMatchAll.
type AutoMatchResult struct {
	Suggestions []records.SuggestedMatch `json:"suggestions" yaml:"suggestions"`
	// Applied is set only when the pass was asked to accept suggestions.
	Applied *BulkResult          `json:"applied,omitempty" yaml:"applied,omitempty"`
	Ignored int                  `json:"ignored" yaml:"ignored"`
	Errors  []records.ErrorEntry `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (c *client) scorer(opts MatchOptions) matcher.Matcher {
	mopts := slices.Clone(c.matchOpts)
	if opts.MinConfidence > 0 {
		mopts = append(mopts, matcher.WithThreshold(opts.MinConfidence))
	}
	if opts.Strategy != "" {
		mopts = append(mopts, matcher.WithStrategy(opts.Strategy))
	}
	return matcher.New(mopts...)
}

// ScoreCandidates implements Matcher.
func (c *client) ScoreCandidates(source records.Record, targets []records.Record, opts MatchOptions) []records.MatchCandidate {
	return c.scorer(opts).Score(source, targets)
}

// Suggest implements Matcher.
func (c *client) Suggest(ctx context.Context, sourceID string, opts MatchOptions) (*Suggestions, error) {
	ctx = logging.WithOperation(ctx, "suggest")
	l := c.list(ctx)

	source, ok := l.lookup(records.SideA, sourceID)
	if !ok {
		return nil, errors.NewNotFoundError("record", sourceID)
	}

	linked, err := c.linked(ctx)
	if err != nil {
		return nil, err
	}
	targets, _ := c.filter.Apply(l.records[records.SideB])
	targets = slices.DeleteFunc(slices.Clone(targets), func(r records.Record) bool {
		_, bound := linked.Targets[r.ID]
		return bound
	})

	return &Suggestions{
		Source:     source,
		Candidates: c.ScoreCandidates(source, targets, opts),
		Errors:     l.errs,
	}, nil
}

// AutoMatchAll implements Matcher.
func (c *client) AutoMatchAll(ctx context.Context, opts AutoMatchOptions) (*AutoMatchResult, error) {
	ctx = logging.WithOperation(ctx, "auto_match")
	logger := logging.FromContext(ctx)
	l := c.list(ctx)

	linked, err := c.linked(ctx)
	if err != nil {
		return nil, err
	}

	sources, ignoredA := c.filter.Apply(l.records[records.SideA])
	targets, ignoredB := c.filter.Apply(l.records[records.SideB])

	m := c.scorer(opts.MatchOptions)
	result := &AutoMatchResult{
		Suggestions: m.AutoMatchAll(sources, targets, linked),
		Ignored:     len(ignoredA) + len(ignoredB),
		Errors:      l.errs,
	}

	logger.Info().
		Int("sources", len(sources)).
		Int("targets", len(targets)).
		Int("suggestions", len(result.Suggestions)).
		Float64("min_confidence", m.Threshold()).
		Msg("Auto-match pass complete")

	if opts.Apply {
		applied, err := c.AcceptAll(ctx, result.Suggestions)
		if err != nil {
			return result, err
		}
		result.Applied = applied
	}
	return result, nil
}

// linked collects the ids held by fully linked pairs. One-sided pairs stay
// matchable so acceptance can complete them.
func (c *client) linked(ctx context.Context) (matcher.Linked, error) {
	pairs, err := c.store.ListPairs(ctx)
	if err != nil {
		return matcher.Linked{}, err
	}
	linked := matcher.Linked{
		Sources: make(map[string]struct{}, len(pairs)),
		Targets: make(map[string]struct{}, len(pairs)),
	}
	for _, p := range pairs {
		if !p.Linked() {
			continue
		}
		linked.Sources[p.SourceID] = struct{}{}
		linked.Targets[p.TargetID] = struct{}{}
	}
	return linked, nil
}
