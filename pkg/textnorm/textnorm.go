// Package textnorm turns free text into comparable tokens for record matching.
// Every function is pure and total; empty input yields empty output.
package textnorm

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agentstation/tasklink/pkg/constants"
)

// Set is a set of keywords.
type Set map[string]struct{}

// stopWords are common function words plus nouns every task shares.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {}, "this": {},
	"into": {}, "onto": {}, "are": {}, "was": {}, "were": {}, "will": {}, "has": {},
	"have": {}, "not": {}, "but": {}, "all": {}, "any": {}, "can": {}, "our": {},
	"its": {}, "you": {}, "your": {}, "then": {}, "than": {}, "when": {}, "should": {},
	"task": {}, "tasks": {}, "issue": {}, "issues": {}, "item": {}, "items": {},
	"update": {}, "updates": {}, "todo": {},
}

// Normalize lowercases text, collapses every run of punctuation and
// whitespace into a single space, and trims the result.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Keywords extracts the set of normalized words of at least
// constants.MinKeywordLength characters that are not stop words.
func Keywords(text string) Set {
	set := make(Set)
	for _, word := range strings.Fields(Normalize(text)) {
		if utf8.RuneCountInString(word) < constants.MinKeywordLength {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		set[word] = struct{}{}
	}
	return set
}

// IsStopWord reports whether a normalized word is ignored by Keywords.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Shared returns the sorted intersection of two sets.
func Shared(a, b Set) []string {
	out := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// CleanDescription collapses whitespace and trims a description. Case and
// punctuation are preserved so that edits to them still count as drift.
func CleanDescription(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens s to n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Length returns the rune length of s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
