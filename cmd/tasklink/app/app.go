// Package app wires configuration, logging and the tasklink client into
// the tasklink command line interface.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/config"
	"github.com/agentstation/tasklink/internal/sources/registry"
	"github.com/agentstation/tasklink/internal/store/memory"
	"github.com/agentstation/tasklink/internal/store/sqlite"
	"github.com/agentstation/tasklink/internal/transport"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/matcher"
	"github.com/agentstation/tasklink/pkg/sources"
	"github.com/agentstation/tasklink/pkg/store"
)

// App holds the CLI dependencies. The client and its store are created
// on first use so commands like version never touch the network or disk.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	flags    *Flags
	settings *config.Config
	logger   *zerolog.Logger

	stdout io.Writer
	stderr io.Writer

	mu     sync.Mutex
	client tasklink.Client
	closer io.Closer
}

// New creates an App with the given build information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		flags:   defaultFlags(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	logger := NewLogger(a.flags, a.stderr)
	a.logger = &logger

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Settings returns the loaded configuration.
func (a *App) Settings() (*config.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadSettings()
}

func (a *App) loadSettings() (*config.Config, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	cfg, err := LoadSettings(a.flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	a.settings = cfg
	return cfg, nil
}

// Client returns the tasklink client, creating it on first use.
func (a *App) Client() (tasklink.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	cfg, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	opts, closer, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c, err := tasklink.New(opts...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	a.client = c
	a.closer = closer
	return c, nil
}

// Shutdown releases the store opened for the client.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	a.client = nil
	return err
}

// clientOptions translates the configuration into client options. The
// returned closer owns the opened store.
func clientOptions(cfg *config.Config) ([]tasklink.Option, io.Closer, error) {
	if err := cfg.RequireSystems(); err != nil {
		return nil, nil, err
	}
	a, err := newSource(cfg.Tracker)
	if err != nil {
		return nil, nil, err
	}
	b, err := newSource(cfg.Planner)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := matcher.ParseStrategy(cfg.Match.Strategy)
	if err != nil {
		return nil, nil, errors.NewConfigError("match.strategy", err.Error(), err)
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	return []tasklink.Option{
		tasklink.WithSystems(sources.Systems{
			A: a, ContainerA: cfg.Tracker.Container,
			B: b, ContainerB: cfg.Planner.Container,
		}),
		tasklink.WithStore(st),
		tasklink.WithFetcher(fetcher.New(
			fetcher.WithBatchSize(cfg.Fetch.BatchSize),
			fetcher.WithDelay(cfg.Fetch.Delay),
		)),
		tasklink.WithMatcherOptions(
			matcher.WithThreshold(cfg.Match.MinConfidence),
			matcher.WithStrategy(strategy),
		),
		tasklink.WithIgnorePatterns(cfg.Match.Ignore...),
	}, st, nil
}

func newSource(sys config.System) (sources.Source, error) {
	auth, err := transport.ParseAuth(sys.Auth)
	if err != nil {
		return nil, err
	}
	return registry.Get(sys.Kind, transport.Config{
		System:  sys.Kind,
		BaseURL: sys.BaseURL,
		Token:   sys.Token,
		Auth:    auth,
		Timeout: sys.Timeout,
	})
}

func openStore(cfg config.Store) (store.Store, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}
	path := cfg.Path
	if path == "" {
		p, err := sqlite.DefaultPath()
		if err != nil {
			return nil, errors.NewConfigError("store.path", "resolving default database path", err)
		}
		path = p
	}
	return sqlite.Open(path)
}

// Option configures an App.
type Option func(*App) error

// WithSettings uses cfg instead of reading configuration files.
func WithSettings(cfg *config.Config) Option {
	return func(a *App) error {
		a.settings = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets the tasklink client (useful for testing).
func WithClient(c tasklink.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}

// WithOutput redirects command output and warnings.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) error {
		a.stdout = stdout
		a.stderr = stderrOr(stderr)
		return nil
	}
}
