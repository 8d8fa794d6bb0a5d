// Package filter excludes records from matching by name pattern.
//
// Patterns are glob by default. A pattern is treated as a regular
// expression when written as /expr/, when prefixed with "re:", or when it
// contains regex-only syntax. "glob:" forces glob interpretation. Matching is
// case-insensitive and applies to the whole record name.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentstation/tasklink/pkg/records"
)

// Kind is the syntax of a pattern.
type Kind int

const (
	// Glob uses shell-style wildcards (*, ?, []). Unlike path globs, *
	// also matches "/".
	Glob Kind = iota
	// Regex uses regular expressions.
	Regex
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Regex {
		return "regex"
	}
	return "glob"
}

// Pattern is one compiled ignore pattern.
type Pattern struct {
	raw  string
	kind Kind
	re   *regexp.Regexp
}

// Compile parses a single pattern.
func Compile(raw string) (*Pattern, error) {
	body, kind := detect(strings.TrimSpace(raw))
	if body == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	expr := body
	if kind == Glob {
		expr = globToRegex(body)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern %q: %w", kind, raw, err)
	}
	return &Pattern{raw: raw, kind: kind, re: re}, nil
}

// Match reports whether name matches the pattern.
func (p *Pattern) Match(name string) bool {
	return p.re.MatchString(name)
}

// String returns the pattern as configured.
func (p *Pattern) String() string {
	return p.raw
}

// Kind returns the detected syntax.
func (p *Pattern) Kind() Kind {
	return p.kind
}

// Filter holds a set of ignore patterns. A nil Filter ignores nothing.
type Filter struct {
	patterns []*Pattern
}

// New compiles patterns into a Filter. Blank entries are skipped.
func New(patterns ...string) (*Filter, error) {
	f := &Filter{patterns: make([]*Pattern, 0, len(patterns))}
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// Ignored reports whether any pattern matches name.
func (f *Filter) Ignored(name string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}

// Apply splits records into those kept for matching and those ignored.
// Order is preserved in both slices.
func (f *Filter) Apply(recs []records.Record) (kept, ignored []records.Record) {
	if f == nil || len(f.patterns) == 0 {
		return recs, nil
	}
	kept = make([]records.Record, 0, len(recs))
	for _, r := range recs {
		if f.Ignored(r.Name) {
			ignored = append(ignored, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, ignored
}

// Patterns returns the configured patterns.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.patterns))
	for i, p := range f.patterns {
		out[i] = p.raw
	}
	return out
}

func detect(pattern string) (string, Kind) {
	switch {
	case strings.HasPrefix(pattern, "re:"):
		return pattern[3:], Regex
	case strings.HasPrefix(pattern, "glob:"):
		return pattern[5:], Glob
	case len(pattern) > 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/':
		return pattern[1 : len(pattern)-1], Regex
	}

	for _, indicator := range []string{"^", "$", `\d`, `\w`, `\s`, "(?:", "{", "}", "+", "|", "(", ")"} {
		if strings.Contains(pattern, indicator) {
			return pattern, Regex
		}
	}
	return pattern, Glob
}

// globToRegex converts a glob pattern to an anchored regular expression.
func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(glob) && (glob[j] == '!' || glob[j] == '^') {
				b.WriteString("[^")
				j++
			} else {
				b.WriteString("[")
			}
			for ; j < len(glob) && glob[j] != ']'; j++ {
				if glob[j] == '\\' && j+1 < len(glob) {
					b.WriteByte(glob[j])
					j++
				}
				b.WriteByte(glob[j])
			}
			if j < len(glob) {
				b.WriteString("]")
				i = j
			} else {
				// unterminated class is literal
				b.Reset()
				b.WriteString("^")
				b.WriteString(regexp.QuoteMeta(glob))
				b.WriteString("$")
				return b.String()
			}
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(glob[i])))
		}
	}

	b.WriteString("$")
	return b.String()
}
