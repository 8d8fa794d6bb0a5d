package app

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/tasklink/pkg/logging"
)

// NewLogger creates the application logger.
// Log level precedence (highest to lowest):
//  1. --log-level flag or LOG_LEVEL
//  2. both -v and -q (warn)
//  3. -v/--verbose (debug)
//  4. -q/--quiet (warn)
//  5. info
func NewLogger(flags *Flags, stderr io.Writer) zerolog.Logger {
	level := determineLogLevel(flags, stderr)
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:     level,
		Format:    flags.LogFormat,
		Output:    flags.LogOutput,
		NoColor:   flags.NoColor,
		AddCaller: level == "debug" || level == "trace",
	})
}

func determineLogLevel(flags *Flags, stderr io.Writer) string {
	if flags.LogLevel != "" {
		level := validateLogLevel(flags.LogLevel)
		if level != flags.LogLevel {
			fmt.Fprintf(stderr, "Warning: invalid log level %q, using %q\n", flags.LogLevel, level)
		}
		return level
	}

	switch {
	case flags.Verbose && flags.Quiet:
		fmt.Fprintln(stderr, "Warning: both --verbose and --quiet specified, using --quiet")
		return "warn"
	case flags.Verbose:
		return "debug"
	case flags.Quiet:
		return "warn"
	}
	return "info"
}

func validateLogLevel(level string) string {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	}
	return "info"
}

// stderrOr returns w, or os.Stderr when w is nil.
func stderrOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}
