package app

import (
	"os"

	"github.com/agentstation/tasklink/internal/cmd/output"
	"github.com/agentstation/tasklink/internal/config"
)

// Flags holds the global command line settings.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
	Format     string
	LogLevel   string

	// LogFormat and LogOutput come from LOG_FORMAT and LOG_OUTPUT.
	LogFormat string
	LogOutput string
}

// defaultFlags reads the logging environment; command line flags are
// applied on top once parsed.
func defaultFlags() *Flags {
	return &Flags{
		NoColor:   os.Getenv("NO_COLOR") != "",
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: envOr("LOG_FORMAT", "auto"),
		LogOutput: envOr("LOG_OUTPUT", "stderr"),
	}
}

// OutputFormat returns the requested output format, auto-detected when unset.
func (f *Flags) OutputFormat() (output.Format, error) {
	format, err := output.ParseFormat(f.Format)
	if err != nil {
		return "", err
	}
	if format == "" {
		return output.DetectFormat(""), nil
	}
	return format, nil
}

// LoadSettings reads the tasklink configuration, honoring --config.
func LoadSettings(configFile string) (*config.Config, error) {
	v, err := config.New(configFile)
	if err != nil {
		return nil, err
	}
	return config.Load(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
