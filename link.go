package tasklink

import (
	"context"
	"strings"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/records"
)

// Linker creates, completes and removes linked pairs.
type Linker interface {
	// Accept applies a suggestion. The conflict check runs here, not at
	// suggestion time, because suggestions may have gone stale.
	Accept(ctx context.Context, match records.SuggestedMatch) (*records.LinkedPair, error)

	// AcceptAll applies suggestions in order. Conflicts are reported per
	// match; only store failures abort.
	AcceptAll(ctx context.Context, matches []records.SuggestedMatch) (*BulkResult, error)

	// Link manually links two records by id.
	Link(ctx context.Context, sourceID, targetID string) (*records.LinkedPair, error)

	// LinkOneSided records a pair that holds only one side.
	LinkOneSided(ctx context.Context, side records.Side, id, name string) (*records.LinkedPair, error)

	// Unlink deletes a pair and its snapshot. Change history is kept.
	Unlink(ctx context.Context, pairID string) error

	// Import applies exported pair entries through the acceptance rules.
	Import(ctx context.Context, entries []records.LinkedPair) (*BulkResult, error)

	Pair(ctx context.Context, pairID string) (*records.LinkedPair, error)
	Pairs(ctx context.Context) ([]*records.LinkedPair, error)
}

// BulkResult is the outcome of applying several links.
type BulkResult struct {
	Linked    []*records.LinkedPair `json:"linked" yaml:"linked"`
	Conflicts []Conflict            `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// Conflict is a link that was rejected.
type Conflict struct {
	SourceID string `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Accept implements Linker.
func (c *client) Accept(ctx context.Context, match records.SuggestedMatch) (*records.LinkedPair, error) {
	if strings.TrimSpace(match.SourceID) == "" {
		return nil, errors.NewValidationError("source_id", match.SourceID, "cannot be empty")
	}
	if strings.TrimSpace(match.Candidate.TargetID) == "" {
		return nil, errors.NewValidationError("target_id", match.Candidate.TargetID, "cannot be empty")
	}
	if match.Candidate.Confidence < 0 || match.Candidate.Confidence > 1 {
		return nil, errors.NewValidationError("confidence", match.Candidate.Confidence, "must be within [0,1]")
	}

	c.linkMu.Lock()
	pair, linked, err := c.accept(ctx, match)
	c.linkMu.Unlock()
	if err != nil {
		return nil, err
	}
	if linked {
		logging.FromContext(ctx).Info().
			Str("pair_id", pair.ID).
			Str("source_id", pair.SourceID).
			Str("target_id", pair.TargetID).
			Str("method", string(pair.Method)).
			Float64("confidence", pair.Confidence).
			Msg("Pair linked")
		c.hooks.pairLinked(pair)
	}
	return pair, nil
}

// accept runs the acceptance rules. linked is false when the pair already
// existed unchanged.
func (c *client) accept(ctx context.Context, match records.SuggestedMatch) (pair *records.LinkedPair, linked bool, err error) {
	sourceID, targetID := match.SourceID, match.Candidate.TargetID

	src, err := c.holder(ctx, records.SideA, sourceID)
	if err != nil {
		return nil, false, err
	}
	tgt, err := c.holder(ctx, records.SideB, targetID)
	if err != nil {
		return nil, false, err
	}

	switch {
	case src != nil && src.TargetID == targetID:
		return src, false, nil
	case src != nil && src.TargetID != "":
		return nil, false, errors.NewAlreadyLinkedError(records.SideA.String(), sourceID, src.ID)
	case tgt != nil && tgt.SourceID != "":
		return nil, false, errors.NewAlreadyLinkedError(records.SideB.String(), targetID, tgt.ID)
	}

	// Both ids may sit in separate one-sided pairs. The source's pair
	// survives and the target's is restored if the merge cannot be written.
	var displaced *records.LinkedPair
	switch {
	case src != nil:
		if tgt != nil {
			if err := c.store.DeletePair(ctx, tgt.ID); err != nil {
				return nil, false, err
			}
			displaced = tgt
		}
		pair = src
	case tgt != nil:
		pair = tgt
	default:
		pair = &records.LinkedPair{ID: c.newID(), CreatedAt: c.now()}
	}

	creating := pair.SourceID == "" && pair.TargetID == ""
	pair.SourceID = sourceID
	pair.TargetID = targetID
	if match.SourceName != "" || pair.SourceName == "" {
		pair.SourceName = match.SourceName
	}
	if match.Candidate.TargetName != "" || pair.TargetName == "" {
		pair.TargetName = match.Candidate.TargetName
	}
	pair.Method = match.Candidate.Method
	if pair.Method == "" {
		pair.Method = records.MethodManual
	}
	pair.Confidence = match.Candidate.Confidence

	if creating {
		err = c.store.CreatePair(ctx, pair)
	} else {
		err = c.store.UpdatePair(ctx, pair)
	}
	if err != nil {
		if displaced != nil {
			if rerr := c.store.CreatePair(ctx, displaced); rerr != nil {
				logging.FromContext(ctx).Error().
					Err(rerr).
					Str("pair_id", displaced.ID).
					Msg("Restoring one-sided pair failed")
			}
		}
		return nil, false, err
	}
	return pair, true, nil
}

// holder returns the pair holding id on side, or nil.
func (c *client) holder(ctx context.Context, side records.Side, id string) (*records.LinkedPair, error) {
	pair, err := c.store.FindPair(ctx, side, id)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return pair, err
}

// AcceptAll implements Linker.
func (c *client) AcceptAll(ctx context.Context, matches []records.SuggestedMatch) (*BulkResult, error) {
	res := &BulkResult{Linked: make([]*records.LinkedPair, 0, len(matches))}
	for _, m := range matches {
		pair, err := c.Accept(ctx, m)
		switch {
		case err == nil:
			res.Linked = append(res.Linked, pair)
		case errors.IsAlreadyLinked(err) || errors.IsValidationError(err):
			res.Conflicts = append(res.Conflicts, Conflict{
				SourceID: m.SourceID,
				TargetID: m.Candidate.TargetID,
				Reason:   err.Error(),
			})
		default:
			return res, err
		}
	}
	return res, nil
}

// Link implements Linker.
func (c *client) Link(ctx context.Context, sourceID, targetID string) (*records.LinkedPair, error) {
	ctx = logging.WithOperation(ctx, "link")
	sourceName, err := c.recordName(ctx, records.SideA, sourceID)
	if err != nil {
		return nil, err
	}
	targetName, err := c.recordName(ctx, records.SideB, targetID)
	if err != nil {
		return nil, err
	}

	return c.Accept(ctx, records.SuggestedMatch{
		SourceID:   sourceID,
		SourceName: sourceName,
		Candidate: records.MatchCandidate{
			TargetID:   targetID,
			TargetName: targetName,
			Confidence: 1,
			Method:     records.MethodManual,
			Reason:     "linked manually",
		},
	})
}

// recordName resolves a record's display name from a fresh listing. A
// failed listing leaves the name empty; a record absent from a successful
// listing is NotFound.
func (c *client) recordName(ctx context.Context, side records.Side, id string) (string, error) {
	src := c.systems.Source(side)
	recs, err := src.ListRecords(ctx, c.systems.Container(side))
	if err != nil {
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("system", src.Capabilities().System).
			Str("record_id", id).
			Msg("Could not resolve record name")
		return "", nil
	}
	for _, r := range recs {
		if r.ID == id {
			return r.Name, nil
		}
	}
	return "", errors.NewNotFoundError("record", id)
}

// LinkOneSided implements Linker.
func (c *client) LinkOneSided(ctx context.Context, side records.Side, id, name string) (*records.LinkedPair, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError("id", id, "cannot be empty")
	}

	c.linkMu.Lock()
	defer c.linkMu.Unlock()

	existing, err := c.holder(ctx, side, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewAlreadyLinkedError(side.String(), id, existing.ID)
	}

	pair := &records.LinkedPair{
		ID:        c.newID(),
		Method:    records.MethodManual,
		CreatedAt: c.now(),
	}
	if side == records.SideA {
		pair.SourceID, pair.SourceName = id, name
	} else {
		pair.TargetID, pair.TargetName = id, name
	}
	if err := c.store.CreatePair(ctx, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// Unlink implements Linker.
func (c *client) Unlink(ctx context.Context, pairID string) error {
	c.linkMu.Lock()
	defer c.linkMu.Unlock()
	if err := c.store.DeletePair(ctx, pairID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info().Str("pair_id", pairID).Msg("Pair unlinked")
	return nil
}

// Import implements Linker.
func (c *client) Import(ctx context.Context, entries []records.LinkedPair) (*BulkResult, error) {
	ctx = logging.WithOperation(ctx, "import")
	res := &BulkResult{Linked: make([]*records.LinkedPair, 0, len(entries))}
	for _, e := range entries {
		var (
			pair *records.LinkedPair
			err  error
		)
		switch {
		case e.SourceID != "" && e.TargetID != "":
			method := e.Method
			if method == "" {
				method = records.MethodImport
			}
			pair, err = c.Accept(ctx, records.SuggestedMatch{
				SourceID:   e.SourceID,
				SourceName: e.SourceName,
				Candidate: records.MatchCandidate{
					TargetID:   e.TargetID,
					TargetName: e.TargetName,
					Confidence: e.Confidence,
					Method:     method,
				},
			})
		case e.SourceID != "":
			pair, err = c.LinkOneSided(ctx, records.SideA, e.SourceID, e.SourceName)
		default:
			pair, err = c.LinkOneSided(ctx, records.SideB, e.TargetID, e.TargetName)
		}

		switch {
		case err == nil:
			res.Linked = append(res.Linked, pair)
		case errors.IsAlreadyLinked(err) || errors.IsValidationError(err):
			res.Conflicts = append(res.Conflicts, Conflict{SourceID: e.SourceID, TargetID: e.TargetID, Reason: err.Error()})
		default:
			return res, err
		}
	}
	return res, nil
}

// Pair implements Linker.
func (c *client) Pair(ctx context.Context, pairID string) (*records.LinkedPair, error) {
	return c.store.GetPair(ctx, pairID)
}

// Pairs implements Linker.
func (c *client) Pairs(ctx context.Context) ([]*records.LinkedPair, error) {
	return c.store.ListPairs(ctx)
}
