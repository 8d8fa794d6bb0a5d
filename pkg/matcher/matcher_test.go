package matcher

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/records"
)

func recs(names ...string) []records.Record {
	out := make([]records.Record, len(names))
	for i, n := range names {
		out[i] = records.Record{ID: fmt.Sprintf("r%d", i+1), Name: n}
	}
	return out
}

func TestScore_ExactMatch(t *testing.T) {
	m := New()
	for _, name := range []string{"Fix login bug", "deploy: API v2", "release notes (draft)"} {
		t.Run(name, func(t *testing.T) {
			got := m.Score(records.Record{ID: "s", Name: name}, []records.Record{{ID: "t", Name: strings.ToUpper(name) + "!"}})
			require.Len(t, got, 1)
			assert.Equal(t, 1.0, got[0].Confidence)
			assert.Equal(t, records.MethodExact, got[0].Method)
		})
	}
}

func TestScore_LoginExample(t *testing.T) {
	m := New()
	targets := recs("Fix login bug", "Update login page", "Bug: login crash")

	got := m.Score(records.Record{ID: "s", Name: "Fix login bug"}, targets)

	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].TargetID)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, records.MethodExact, got[0].Method)

	assert.Equal(t, "r3", got[1].TargetID)
	assert.Equal(t, records.MethodFuzzy, got[1].Method)
	assert.GreaterOrEqual(t, got[1].Confidence, 0.3)
	assert.Less(t, got[1].Confidence, 0.9)
	assert.Contains(t, got[1].Reason, "bug, login")
}

func TestScore_Containment(t *testing.T) {
	m := New()
	got := m.Score(records.Record{Name: "Login page"}, recs("Login page redesign"))
	require.Len(t, got, 1)
	assert.Equal(t, records.MethodFuzzy, got[0].Method)
	assert.InDelta(t, 0.85*(10.0/19.0)+0.15, got[0].Confidence, 1e-9)
}

func TestScore_Description(t *testing.T) {
	m := New(WithFallback(false))

	t.Run("description overlap", func(t *testing.T) {
		src := records.Record{Name: "Quarterly report", Description: "Compile revenue numbers for finance review"}
		tgt := records.Record{ID: "t", Name: "Prepare Q3 deck", Description: "Compile revenue numbers for the finance review meeting"}
		got := m.Score(src, []records.Record{tgt})
		require.Len(t, got, 1)
		assert.Equal(t, records.MethodDescription, got[0].Method)
		assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)
	})

	t.Run("name against description", func(t *testing.T) {
		src := records.Record{Name: "Migrate billing database", Description: "Needs downtime window"}
		tgt := records.Record{ID: "t", Name: "Ops weekend", Description: "Migrate the billing database to new cluster"}
		got := m.Score(src, []records.Record{tgt})
		require.Len(t, got, 1)
		assert.Equal(t, records.MethodDescription, got[0].Method)
		assert.InDelta(t, 0.75, got[0].Confidence, 1e-9)
	})

	t.Run("requires both descriptions", func(t *testing.T) {
		src := records.Record{Name: "Migrate billing database"}
		tgt := records.Record{ID: "t", Name: "Ops weekend", Description: "Migrate the billing database to new cluster"}
		assert.Empty(t, m.Score(src, []records.Record{tgt}))
	})
}

func TestScore_Fallback(t *testing.T) {
	src := records.Record{Name: "Refactor authentication"}
	targets := recs("Refactr authentication")

	assert.Empty(t, New(WithFallback(false)).Score(src, targets))

	got := New().Score(src, targets)
	require.Len(t, got, 1)
	assert.Equal(t, records.MethodFuzzy, got[0].Method)
	assert.LessOrEqual(t, got[0].Confidence, 0.7)
	assert.GreaterOrEqual(t, got[0].Confidence, 0.5)
	assert.Contains(t, got[0].Reason, "Approximate")

	assert.Equal(t, got, New().Score(src, targets), "fallback must be deterministic")
}

func TestScore_TruncatesAndSorts(t *testing.T) {
	targets := recs("Deploy", "Deploy service 1", "Deploy service 2", "Deploy service",
		"Deploy service 3", "Deploy service 4", "Deploy service 5", "Deploy service 6")
	got := New().Score(records.Record{Name: "Deploy service"}, targets)

	require.Len(t, got, 5)
	assert.Equal(t, "r4", got[0].TargetID)
	assert.Equal(t, []string{"r2", "r3", "r5", "r6"}, []string{got[1].TargetID, got[2].TargetID, got[3].TargetID, got[4].TargetID})
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
}

func TestScore_ThresholdAndBounds(t *testing.T) {
	targets := recs("Fix login bug", "Login bug", "Bug: login crash", "Crash reporter login flow")
	for _, threshold := range []float64{0.3, 0.5, 0.7, 0.9} {
		got := New(WithThreshold(threshold)).Score(records.Record{Name: "Fix login bug"}, targets)
		for _, c := range got {
			assert.GreaterOrEqual(t, c.Confidence, threshold)
			assert.LessOrEqual(t, c.Confidence, 1.0)
		}
	}
}

func TestScore_MonotonicKeywordOverlap(t *testing.T) {
	m := New(WithThreshold(0), WithFallback(false))
	src := records.Record{Name: "alpha bravo charlie"}
	targets := []records.Record{
		{ID: "two", Name: "alpha bravo delta echo"},
		{ID: "three", Name: "charlie alpha bravo echo"},
	}
	got := m.Score(src, targets)
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].TargetID)
	assert.Greater(t, got[0].Confidence, got[1].Confidence)
}

func TestScore_EmptyInputs(t *testing.T) {
	m := New()
	assert.Empty(t, m.Score(records.Record{Name: ""}, recs("anything")))
	assert.Empty(t, m.Score(records.Record{Name: "anything"}, nil))
	assert.Empty(t, m.Score(records.Record{Name: "!!!"}, recs("???")))
}

func TestAutoMatchAll(t *testing.T) {
	t.Run("no sources", func(t *testing.T) {
		assert.Empty(t, New().AutoMatchAll(nil, recs("a task"), Linked{}))
	})

	t.Run("no targets", func(t *testing.T) {
		assert.Empty(t, New().AutoMatchAll(recs("a task"), nil, Linked{}))
	})

	t.Run("more sources than targets", func(t *testing.T) {
		sources := recs("Fix login bug", "Fix login bug again", "Login bug fix")
		targets := []records.Record{{ID: "t1", Name: "Fix login bug"}}
		got := New().AutoMatchAll(sources, targets, Linked{})
		require.Len(t, got, 1)
		assert.Equal(t, "r1", got[0].SourceID)
		assert.Equal(t, "t1", got[0].Candidate.TargetID)
	})

	t.Run("sorted by confidence", func(t *testing.T) {
		sources := recs("Login bug", "Deploy service")
		targets := []records.Record{{ID: "t1", Name: "Fix login bug"}, {ID: "t2", Name: "Deploy service"}}
		got := New().AutoMatchAll(sources, targets, Linked{})
		require.Len(t, got, 2)
		assert.Equal(t, "t2", got[0].Candidate.TargetID)
		assert.Equal(t, 1.0, got[0].Candidate.Confidence)
		assert.Equal(t, "t1", got[1].Candidate.TargetID)
	})

	t.Run("skips linked identifiers", func(t *testing.T) {
		sources := recs("Deploy service", "Fix login bug")
		targets := []records.Record{{ID: "t1", Name: "Deploy service"}, {ID: "t2", Name: "Fix login bug"}}
		linked := Linked{
			Sources: map[string]struct{}{"r1": {}},
			Targets: map[string]struct{}{"t2": {}},
		}
		assert.Empty(t, New().AutoMatchAll(sources, targets, linked))
	})

	t.Run("pass minimum", func(t *testing.T) {
		sources := recs("Login bug", "Deploy service")
		targets := []records.Record{{ID: "t1", Name: "Fix login bug"}, {ID: "t2", Name: "Deploy service"}}
		got := New(WithThreshold(0.9)).AutoMatchAll(sources, targets, Linked{})
		require.Len(t, got, 1)
		assert.Equal(t, "t2", got[0].Candidate.TargetID)
	})
}

func TestAutoMatchAll_Strategies(t *testing.T) {
	sources := recs("Login bug", "Fix login bug")
	targets := []records.Record{{ID: "t1", Name: "Fix login bug"}}

	ordered := New(WithStrategy(StrategyOrdered)).AutoMatchAll(sources, targets, Linked{})
	require.Len(t, ordered, 1)
	assert.Equal(t, "r1", ordered[0].SourceID, "earlier source claims the target first")
	assert.Less(t, ordered[0].Candidate.Confidence, 1.0)

	sized := New(WithStrategy(StrategySizeBiased)).AutoMatchAll(sources, targets, Linked{})
	require.Len(t, sized, 1)
	assert.Equal(t, "r2", sized[0].SourceID)
	assert.Equal(t, 1.0, sized[0].Candidate.Confidence)
}

func TestAutoMatchAll_NeverReusesTargets(t *testing.T) {
	words := []string{"login", "deploy", "billing", "report", "cache", "search", "bug", "fix"}
	rng := rand.New(rand.NewSource(7))
	name := func() string {
		n := 1 + rng.Intn(3)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = words[rng.Intn(len(words))]
		}
		return strings.Join(parts, " ")
	}

	for round := 0; round < 50; round++ {
		sources := make([]records.Record, rng.Intn(12))
		for i := range sources {
			sources[i] = records.Record{ID: fmt.Sprintf("s%d", i), Name: name()}
		}
		targets := make([]records.Record, rng.Intn(12))
		for i := range targets {
			targets[i] = records.Record{ID: fmt.Sprintf("t%d", i), Name: name()}
		}

		for _, strategy := range []Strategy{StrategyOrdered, StrategySizeBiased} {
			got := New(WithStrategy(strategy)).AutoMatchAll(sources, targets, Linked{})
			seen := make(map[string]bool)
			for _, m := range got {
				require.False(t, seen[m.Candidate.TargetID], "target %s assigned twice", m.Candidate.TargetID)
				seen[m.Candidate.TargetID] = true
				assert.GreaterOrEqual(t, m.Candidate.Confidence, 0.5)
			}
			assert.LessOrEqual(t, len(got), len(targets))
		}
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyOrdered, s)

	s, err = ParseStrategy("size-biased")
	require.NoError(t, err)
	assert.Equal(t, StrategySizeBiased, s)

	_, err = ParseStrategy("optimal")
	assert.Error(t, err)
}
