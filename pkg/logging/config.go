package logging

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/tasklink/pkg/constants"
)

// Config holds logger configuration options.
type Config struct {
	Level      string // trace, debug, info, warn, error, disabled
	Format     string // auto, json, console
	Output     string // stderr, stdout, discard or a file path
	TimeFormat string // kitchen, rfc3339, unix or a Go layout
	NoColor    bool
	AddCaller  bool
	Fields     map[string]any
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
		Fields:     make(map[string]any),
	}
}

// FromEnv reads TASKLINK_LOG_* variables, falling back to the generic
// LOG_* names, over DefaultConfig.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Level = env("LEVEL", cfg.Level)
	cfg.Format = env("FORMAT", cfg.Format)
	cfg.Output = env("OUTPUT", cfg.Output)
	cfg.TimeFormat = env("TIME_FORMAT", cfg.TimeFormat)
	cfg.AddCaller = env("CALLER", "") == "true"
	return cfg
}

func env(suffix, fallback string) string {
	for _, key := range []string{"TASKLINK_LOG_" + suffix, "LOG_" + suffix} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}

// NewLoggerFromConfig builds a logger and sets the zerolog global level to
// match. Debug and trace loggers always record the caller.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(cfg.writer()).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}

	keys := make([]string, 0, len(cfg.Fields))
	for k := range cfg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ctx = addField(ctx, k, cfg.Fields[k])
	}
	return ctx.Logger()
}

// writer resolves Output and Format. An unopenable log file falls back to
// stderr.
func (cfg *Config) writer() io.Writer {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		out = io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			out = os.Stderr
		} else {
			out = f
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return out
	case "console", "pretty":
	default:
		if out != os.Stderr || !stderrIsTerminal() {
			return out
		}
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: parseTimeFormat(cfg.TimeFormat),
		NoColor:    cfg.NoColor,
	}
}

var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
	"none":    zerolog.Disabled,
	"off":     zerolog.Disabled,
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if l, ok := levelAliases[level]; ok {
		return l
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

var timeFormats = map[string]string{
	"":        time.Kitchen,
	"kitchen": time.Kitchen,
	"rfc3339": time.RFC3339,
	"unix":    "",
	"epoch":   "",
}

func parseTimeFormat(format string) string {
	if f, ok := timeFormats[strings.ToLower(format)]; ok {
		return f
	}
	// anything that looks like a Go reference layout is used as is
	if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
		return format
	}
	return time.Kitchen
}

func addField(ctx zerolog.Context, key string, value any) zerolog.Context {
	switch v := value.(type) {
	case string:
		return ctx.Str(key, v)
	case int:
		return ctx.Int(key, v)
	case bool:
		return ctx.Bool(key, v)
	case float64:
		return ctx.Float64(key, v)
	case time.Time:
		return ctx.Time(key, v)
	case error:
		return ctx.AnErr(key, v)
	}
	return ctx.Interface(key, value)
}
