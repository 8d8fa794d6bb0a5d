package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/textnorm"
)

// Rule floors and caps.
const (
	containmentMinRatio = 0.5
	nameOverlapFloor    = 0.4
	nameOverlapCap      = 0.9
	descOverlapFloor    = 0.3
	descOverlapCap      = 0.8
	crossOverlapCap     = 0.75
)

// prepared holds the normalized forms of a record, computed once per pass.
type prepared struct {
	record  records.Record
	name    string
	nameKW  textnorm.Set
	hasDesc bool
	descKW  textnorm.Set
}

func prepare(r records.Record) prepared {
	p := prepared{
		record: r,
		name:   textnorm.Normalize(r.Name),
		nameKW: textnorm.Keywords(r.Name),
	}
	if textnorm.Normalize(r.Description) != "" {
		p.hasDesc = true
		p.descKW = textnorm.Keywords(r.Description)
	}
	return p
}

func prepareAll(recs []records.Record) []prepared {
	out := make([]prepared, len(recs))
	for i, r := range recs {
		out[i] = prepare(r)
	}
	return out
}

// scoreRules applies the matching rules in order. The first rule that
// fires decides the candidate.
func scoreRules(src, tgt prepared) (records.MatchCandidate, bool) {
	c := records.MatchCandidate{TargetID: tgt.record.ID, TargetName: tgt.record.Name}
	if src.name == "" || tgt.name == "" {
		return c, false
	}

	if src.name == tgt.name {
		c.Confidence, c.Method, c.Reason = 1.0, records.MethodExact, "Exact name match"
		return c, true
	}

	if ratio, ok := containment(src.name, tgt.name); ok {
		c.Confidence = 0.85*ratio + 0.15
		c.Method = records.MethodFuzzy
		c.Reason = fmt.Sprintf("Name contained in the other (%.0f%% length overlap)", ratio*100)
		return c, true
	}

	if sim := textnorm.Jaccard(src.nameKW, tgt.nameKW); sim >= nameOverlapFloor {
		c.Confidence = math.Min(nameOverlapCap, sim+0.3)
		c.Method = records.MethodFuzzy
		c.Reason = "Shared keywords: " + strings.Join(textnorm.Shared(src.nameKW, tgt.nameKW), ", ")
		return c, true
	}

	if !src.hasDesc || !tgt.hasDesc {
		return c, false
	}

	if sim := textnorm.Jaccard(src.descKW, tgt.descKW); sim >= descOverlapFloor {
		c.Confidence = math.Min(descOverlapCap, sim+0.2)
		c.Method = records.MethodDescription
		c.Reason = fmt.Sprintf("Similar descriptions (%.0f%% keyword overlap)", sim*100)
		return c, true
	}

	cross := math.Max(
		textnorm.Jaccard(src.nameKW, tgt.descKW),
		textnorm.Jaccard(tgt.nameKW, src.descKW),
	)
	if cross >= descOverlapFloor {
		c.Confidence = math.Min(crossOverlapCap, cross+0.15)
		c.Method = records.MethodDescription
		c.Reason = "Name matches the other description"
		return c, true
	}

	return c, false
}

// containment reports whether one normalized name contains the other and
// the shorter/longer length ratio exceeds containmentMinRatio.
func containment(a, b string) (float64, bool) {
	shorter, longer := a, b
	if textnorm.Length(shorter) > textnorm.Length(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0, false
	}
	ratio := float64(textnorm.Length(shorter)) / float64(textnorm.Length(longer))
	return ratio, ratio > containmentMinRatio
}

// scoreFallback compares normalized names with Jaro-Winkler similarity.
func scoreFallback(src, tgt prepared) (records.MatchCandidate, bool) {
	c := records.MatchCandidate{TargetID: tgt.record.ID, TargetName: tgt.record.Name}
	if src.name == "" || tgt.name == "" {
		return c, false
	}
	sim := matchr.JaroWinkler(src.name, tgt.name, false)
	if sim < constants.FuzzyFloor {
		return c, false
	}
	c.Confidence = math.Min(constants.FuzzyMaxConfidence, sim-0.2)
	c.Method = records.MethodFuzzy
	c.Reason = fmt.Sprintf("Approximate name match (%.0f%% similar)", sim*100)
	return c, true
}
