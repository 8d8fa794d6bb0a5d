// Package matcher proposes links between records of two task systems.
//
// Scoring applies a fixed sequence of rules per target (exact name,
// containment, name keyword overlap, description overlap) where the first
// rule that fires decides the candidate. When no rule produces a candidate
// above the threshold an approximate Jaro-Winkler name comparison is tried.
//
// AutoMatchAll assigns targets greedily: a target claimed by an earlier
// source is invisible to later ones, and earlier choices are never revisited.
// A later source that would have fit a claimed target better loses it.
package matcher

import (
	"sort"

	"github.com/agentstation/tasklink/pkg/records"
)

// Matcher scores and assigns records.
type Matcher interface {
	// Score ranks targets for one source record.
	Score(source records.Record, targets []records.Record) []records.MatchCandidate

	// AutoMatchAll proposes one-to-one matches for every unlinked source.
	AutoMatchAll(sources, targets []records.Record, linked Linked) []records.SuggestedMatch

	// Threshold returns the configured minimum confidence.
	Threshold() float64
}

// Linked holds identifiers that are already bound on each side.
type Linked struct {
	Sources map[string]struct{}
	Targets map[string]struct{}
}

func (l Linked) source(id string) bool {
	_, ok := l.Sources[id]
	return ok
}

func (l Linked) target(id string) bool {
	_, ok := l.Targets[id]
	return ok
}

type matcher struct {
	threshold     float64
	maxCandidates int
	strategy      Strategy
	fallback      bool
}

// New creates a Matcher.
func New(opts ...Option) Matcher {
	m := defaults()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *matcher) Threshold() float64 {
	return m.threshold
}

func (m *matcher) Score(source records.Record, targets []records.Record) []records.MatchCandidate {
	return m.score(prepare(source), prepareAll(targets), nil)
}

func (m *matcher) score(src prepared, targets []prepared, skip func(id string) bool) []records.MatchCandidate {
	candidates := make([]records.MatchCandidate, 0)
	for _, tgt := range targets {
		if skip != nil && skip(tgt.record.ID) {
			continue
		}
		if c, ok := scoreRules(src, tgt); ok && c.Confidence >= m.threshold {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 && m.fallback {
		for _, tgt := range targets {
			if skip != nil && skip(tgt.record.ID) {
				continue
			}
			if c, ok := scoreFallback(src, tgt); ok && c.Confidence >= m.threshold {
				candidates = append(candidates, c)
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > m.maxCandidates {
		candidates = candidates[:m.maxCandidates]
	}
	return candidates
}

func (m *matcher) AutoMatchAll(sources, targets []records.Record, linked Linked) []records.SuggestedMatch {
	preparedTargets := prepareAll(targets)
	claimed := make(map[string]struct{})
	skip := func(id string) bool {
		if _, ok := claimed[id]; ok {
			return true
		}
		return linked.target(id)
	}

	matches := make([]records.SuggestedMatch, 0)
	for _, src := range m.strategy.order(prepareAll(sources)) {
		if linked.source(src.record.ID) {
			continue
		}
		candidates := m.score(src, preparedTargets, skip)
		if len(candidates) == 0 {
			continue
		}
		best := candidates[0]
		claimed[best.TargetID] = struct{}{}
		matches = append(matches, records.SuggestedMatch{
			SourceID:   src.record.ID,
			SourceName: src.record.Name,
			Candidate:  best,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Candidate.Confidence > matches[j].Candidate.Confidence
	})
	return matches
}
