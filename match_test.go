package tasklink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/matcher"
	"github.com/agentstation/tasklink/pkg/records"
)

func loginFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	f.addA(records.Record{ID: "r1", Name: "Fix login bug"})
	f.addB(
		records.Record{ID: "t1", Name: "Fix login bug"},
		records.Record{ID: "t2", Name: "Update login page"},
		records.Record{ID: "t3", Name: "Bug: login crash"},
	)
	return f
}

func TestSuggest(t *testing.T) {
	f := loginFixture(t)

	got, err := f.client.Suggest(f.ctx, "r1", MatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Fix login bug", got.Source.Name)
	require.Len(t, got.Candidates, 2)

	assert.Equal(t, "t1", got.Candidates[0].TargetID)
	assert.Equal(t, 1.0, got.Candidates[0].Confidence)
	assert.Equal(t, records.MethodExact, got.Candidates[0].Method)

	assert.Equal(t, "t3", got.Candidates[1].TargetID)
	assert.Equal(t, records.MethodFuzzy, got.Candidates[1].Method)
	assert.GreaterOrEqual(t, got.Candidates[1].Confidence, 0.3)
	assert.Less(t, got.Candidates[1].Confidence, 0.9)
}

func TestSuggest_ExcludesLinkedTargets(t *testing.T) {
	f := loginFixture(t)
	f.addA(records.Record{ID: "r0", Name: "Something else"})
	_, err := f.client.Link(f.ctx, "r0", "t1")
	require.NoError(t, err)

	got, err := f.client.Suggest(f.ctx, "r1", MatchOptions{})
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "t3", got.Candidates[0].TargetID)
}

func TestSuggest_MinConfidence(t *testing.T) {
	f := loginFixture(t)
	got, err := f.client.Suggest(f.ctx, "r1", MatchOptions{MinConfidence: 0.9})
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "t1", got.Candidates[0].TargetID)
}

func TestSuggest_UnknownSource(t *testing.T) {
	f := loginFixture(t)
	_, err := f.client.Suggest(f.ctx, "nope", MatchOptions{})
	assert.True(t, errors.IsNotFound(err))
}

func autoFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	f.addA(
		records.Record{ID: "r1", Name: "Fix login bug"},
		records.Record{ID: "r2", Name: "Write release notes"},
		records.Record{ID: "r3", Name: "Fix login bug!"},
	)
	f.addB(
		records.Record{ID: "t1", Name: "Fix login bug"},
		records.Record{ID: "t2", Name: "Release notes"},
	)
	return f
}

func TestAutoMatchAll(t *testing.T) {
	f := autoFixture(t)

	res, err := f.client.AutoMatchAll(f.ctx, AutoMatchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 2)
	assert.Nil(t, res.Applied)

	assert.Equal(t, "r1", res.Suggestions[0].SourceID)
	assert.Equal(t, "t1", res.Suggestions[0].Candidate.TargetID)
	assert.Equal(t, "r2", res.Suggestions[1].SourceID)
	assert.Equal(t, "t2", res.Suggestions[1].Candidate.TargetID)
	assert.Greater(t, res.Suggestions[0].Candidate.Confidence, res.Suggestions[1].Candidate.Confidence)

	pairs, err := f.client.Pairs(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, pairs, "suggestions are not persisted without apply")
}

func TestAutoMatchAll_Apply(t *testing.T) {
	f := autoFixture(t)
	var linked []string
	f.client.OnPairLinked(func(p records.LinkedPair) { linked = append(linked, p.SourceID) })

	res, err := f.client.AutoMatchAll(f.ctx, AutoMatchOptions{Apply: true})
	require.NoError(t, err)
	require.NotNil(t, res.Applied)
	assert.Len(t, res.Applied.Linked, 2)
	assert.Empty(t, res.Applied.Conflicts)
	assert.ElementsMatch(t, []string{"r1", "r2"}, linked)

	again, err := f.client.AutoMatchAll(f.ctx, AutoMatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, again.Suggestions, "linked records are excluded from later passes")
}

func TestAutoMatchAll_SizeBiased(t *testing.T) {
	f := autoFixture(t)
	res, err := f.client.AutoMatchAll(f.ctx, AutoMatchOptions{MatchOptions: MatchOptions{Strategy: matcher.StrategySizeBiased}})
	require.NoError(t, err)

	// "fix login bug" and "fix login bug!" normalize identically, so the
	// longer raw name does not change who claims t1.
	require.Len(t, res.Suggestions, 2)
	targets := map[string]bool{}
	for _, s := range res.Suggestions {
		assert.False(t, targets[s.Candidate.TargetID], "target %s assigned twice", s.Candidate.TargetID)
		targets[s.Candidate.TargetID] = true
	}
}

func TestAutoMatchAll_IgnorePatterns(t *testing.T) {
	f := autoFixture(t, WithIgnorePatterns("Write*"))
	res, err := f.client.AutoMatchAll(f.ctx, AutoMatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ignored)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "r1", res.Suggestions[0].SourceID)
}

func TestAutoMatchAll_ListFailure(t *testing.T) {
	f := autoFixture(t)
	f.b.FailList(errors.New("planner down"))

	res, err := f.client.AutoMatchAll(f.ctx, AutoMatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "planner", res.Errors[0].System)
	assert.Equal(t, "list_records", res.Errors[0].Operation)
}

func TestScoreCandidates(t *testing.T) {
	f := newFixture(t)
	got := f.client.ScoreCandidates(
		records.Record{Name: "Fix login bug"},
		[]records.Record{{ID: "t1", Name: "fix LOGIN bug"}},
		MatchOptions{},
	)
	require.Len(t, got, 1)
	assert.Equal(t, records.MethodExact, got[0].Method)
}
