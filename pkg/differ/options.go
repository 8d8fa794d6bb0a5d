package differ

import (
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
)

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithStatus sets which status field is compared on a side.
func WithStatus(side records.Side, kind sources.StatusKind) Option {
	return func(d *differ) {
		d.status[side] = kind
	}
}

// WithCapabilities configures status comparison from both systems' capabilities.
func WithCapabilities(a, b sources.Capabilities) Option {
	return func(d *differ) {
		if a.Status != "" {
			d.status[records.SideA] = a.Status
		}
		if b.Status != "" {
			d.status[records.SideB] = b.Status
		}
	}
}

// WithIgnoredFields skips the named fields during comparison.
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}

// WithTruncate sets how many characters of a description a change keeps.
func WithTruncate(n int) Option {
	return func(d *differ) {
		if n > 0 {
			d.truncate = n
		}
	}
}
