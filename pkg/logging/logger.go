// Package logging provides structured logging for tasklink using zerolog.
// Terminals get human-readable console output, everything else gets JSON.
//
// Engines read their logger from the context, so callers decide where a
// pass logs and which fields it carries:
//
//	ctx = logging.WithPair(ctx, pair.ID)
//	logging.FromContext(ctx).Info().Int("changes", n).Msg("Drift detected")
package logging

import (
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// defaultLogger is used when a context carries no logger. It is built
// from the environment at startup.
var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	l := NewLoggerFromConfig(FromEnv())
	defaultLogger.Store(&l)
}

// Default returns the fallback logger.
func Default() *zerolog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the fallback logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger.Store(&logger)
}

// Debug starts a debug event on the fallback logger.
func Debug() *zerolog.Event {
	return Default().Debug()
}

// Warn starts a warning event on the fallback logger.
func Warn() *zerolog.Event {
	return Default().Warn()
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
