package tasklink

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/tasklink/internal/filter"
	"github.com/agentstation/tasklink/internal/store/memory"
	"github.com/agentstation/tasklink/pkg/differ"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/matcher"
	"github.com/agentstation/tasklink/pkg/sources"
	"github.com/agentstation/tasklink/pkg/store"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the configuration applied by New.
type options struct {
	systems   sources.Systems
	store     store.Store
	fetcher   *fetcher.Fetcher
	differ    differ.Differ
	filter    *filter.Filter
	matchOpts []matcher.Option
	now       func() utc.Time
	newID     func() string
}

func defaults() *options {
	return &options{
		fetcher: fetcher.New(),
		now:     utc.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.store == nil {
		o.store = memory.New()
	}
	return o, nil
}

// WithSystems configures the two reconciled systems and their containers.
func WithSystems(systems sources.Systems) Option {
	return func(o *options) error {
		o.systems = systems
		return nil
	}
}

// WithStore configures persistence for pairs, snapshots and the change log.
// The caller keeps ownership and closes it.
func WithStore(s store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return errors.NewConfigError("tasklink", "store cannot be nil", nil)
		}
		o.store = s
		return nil
	}
}

// WithMatcherOptions configures the scorer and assignment engine.
func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(o *options) error {
		o.matchOpts = append(o.matchOpts, opts...)
		return nil
	}
}

// WithFetcher replaces the comment fetcher, typically to change pacing.
func WithFetcher(f *fetcher.Fetcher) Option {
	return func(o *options) error {
		if f != nil {
			o.fetcher = f
		}
		return nil
	}
}

// WithDiffer replaces the snapshot differ. By default one is built from
// the systems' capabilities.
func WithDiffer(d differ.Differ) Option {
	return func(o *options) error {
		o.differ = d
		return nil
	}
}

// WithIgnorePatterns excludes records whose names match any pattern from
// matching. Patterns are glob, or regex when written as /expr/.
func WithIgnorePatterns(patterns ...string) Option {
	return func(o *options) error {
		f, err := filter.New(patterns...)
		if err != nil {
			return errors.NewConfigError("match.ignore", err.Error(), err)
		}
		o.filter = f
		return nil
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() utc.Time) Option {
	return func(o *options) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithIDGenerator overrides generation of pair and change record ids.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) error {
		if fn != nil {
			o.newID = fn
		}
		return nil
	}
}
