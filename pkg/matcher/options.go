package matcher

import "github.com/agentstation/tasklink/pkg/constants"

// Option configures a Matcher.
type Option func(*matcher)

// WithThreshold sets the minimum confidence a scored candidate must reach
// to be returned. Auto-matching uses the same value as its pass minimum.
func WithThreshold(threshold float64) Option {
	return func(m *matcher) {
		if threshold >= 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// WithMaxCandidates caps the number of candidates returned per source.
func WithMaxCandidates(n int) Option {
	return func(m *matcher) {
		if n > 0 {
			m.maxCandidates = n
		}
	}
}

// WithStrategy selects the processing order of an auto-match pass.
func WithStrategy(s Strategy) Option {
	return func(m *matcher) {
		m.strategy = s
	}
}

// WithFallback enables or disables the approximate-name fallback scorer.
func WithFallback(enabled bool) Option {
	return func(m *matcher) {
		m.fallback = enabled
	}
}

func defaults() *matcher {
	return &matcher{
		threshold:     constants.DefaultMinConfidence,
		maxCandidates: constants.MaxCandidates,
		strategy:      StrategyOrdered,
		fallback:      true,
	}
}
