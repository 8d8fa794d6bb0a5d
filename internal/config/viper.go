// Package config loads tasklink settings from config files, .env files and
// TASKLINK_ environment variables through viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/errors"
)

// EnvPrefix is the prefix of environment variables read by tasklink.
const EnvPrefix = "TASKLINK"

// FileName is the config file name searched in the home and working directories.
const FileName = ".tasklink"

// System describes how to reach one of the two reconciled systems.
type System struct {
	Kind      string        `mapstructure:"kind"`
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Auth      string        `mapstructure:"auth"`
	Container string        `mapstructure:"container"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Match holds matching settings.
type Match struct {
	MinConfidence float64  `mapstructure:"min_confidence"`
	Strategy      string   `mapstructure:"strategy"`
	Ignore        []string `mapstructure:"ignore"`
}

// Fetch holds secondary-field fetch pacing.
type Fetch struct {
	BatchSize int           `mapstructure:"batch_size"`
	Delay     time.Duration `mapstructure:"delay"`
}

// Store selects where pairs, snapshots and changes are kept.
type Store struct {
	Driver string `mapstructure:"driver"` // sqlite or memory
	Path   string `mapstructure:"path"`
}

// Server holds the HTTP API settings.
type Server struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	RateLimit   int      `mapstructure:"rate_limit"`
	AuthToken   string   `mapstructure:"auth_token"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	Prefix   string        `mapstructure:"prefix"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Config is the full tasklink configuration.
type Config struct {
	Tracker System `mapstructure:"tracker"`
	Planner System `mapstructure:"planner"`
	Match   Match  `mapstructure:"match"`
	Fetch   Fetch  `mapstructure:"fetch"`
	Store   Store  `mapstructure:"store"`
	Server  Server `mapstructure:"server"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tracker.kind", "tracker")
	v.SetDefault("tracker.auth", "bearer")
	v.SetDefault("tracker.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("planner.kind", "planner")
	v.SetDefault("planner.auth", "bearer")
	v.SetDefault("planner.timeout", constants.DefaultHTTPTimeout)

	v.SetDefault("match.min_confidence", constants.DefaultMinConfidence)
	v.SetDefault("match.strategy", "ordered")

	v.SetDefault("fetch.batch_size", constants.FetchBatchSize)
	v.SetDefault("fetch.delay", constants.FetchBatchDelay)

	v.SetDefault("store.driver", "sqlite")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", constants.DefaultRateLimit)
	v.SetDefault("server.prefix", "/api/v1")
	v.SetDefault("server.cache_ttl", constants.CacheTTL)
}

// New returns a viper instance wired to the environment, .env files and,
// when found, a config file. An explicit configFile must exist.
func New(configFile string) (*viper.Viper, error) {
	loadEnvFiles()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
		return v, nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	// a missing config file is fine
	_ = v.ReadInConfig()
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	// nested keys only reach Unmarshal through the environment when bound;
	// explicit names keep this independent of v's prefix and key replacer
	for _, key := range envKeys {
		_ = v.BindEnv(key, envName(key))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("config", "decoding configuration", err)
	}
	cfg.Match.Ignore = compact(cfg.Match.Ignore)
	cfg.Server.CORSOrigins = compact(cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envName maps a config key such as "tracker.base_url" to
// TASKLINK_TRACKER_BASE_URL.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

var envKeys = []string{
	"tracker.kind", "tracker.base_url", "tracker.token", "tracker.auth", "tracker.container", "tracker.timeout",
	"planner.kind", "planner.base_url", "planner.token", "planner.auth", "planner.container", "planner.timeout",
	"match.min_confidence", "match.strategy", "match.ignore",
	"fetch.batch_size", "fetch.delay",
	"store.driver", "store.path",
	"server.host", "server.port", "server.rate_limit", "server.auth_token", "server.cors_origins",
	"server.prefix", "server.cache_ttl",
}

// Validate checks value ranges. Connection settings are checked when a
// client is built, so commands that never reach a system still run.
func (c *Config) Validate() error {
	if c.Match.MinConfidence < 0 || c.Match.MinConfidence > 1 {
		return errors.NewValidationError("match.min_confidence", c.Match.MinConfidence, "must be within [0,1]")
	}
	if c.Fetch.BatchSize < 1 {
		return errors.NewValidationError("fetch.batch_size", c.Fetch.BatchSize, "must be at least 1")
	}
	if c.Fetch.Delay < 0 {
		return errors.NewValidationError("fetch.delay", c.Fetch.Delay, "cannot be negative")
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return errors.NewValidationError("store.driver", c.Store.Driver, "must be sqlite or memory")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewValidationError("server.port", c.Server.Port, "out of range")
	}
	if c.Server.Prefix != "" && !strings.HasPrefix(c.Server.Prefix, "/") {
		return errors.NewValidationError("server.prefix", c.Server.Prefix, "must start with /")
	}
	return nil
}

// RequireSystems reports a ConfigError naming the first unusable system.
func (c *Config) RequireSystems() error {
	for _, s := range []struct {
		name string
		sys  System
	}{{"tracker", c.Tracker}, {"planner", c.Planner}} {
		if s.sys.BaseURL == "" {
			return errors.NewConfigError(s.name, "base_url is not set", nil)
		}
		if s.sys.Container == "" {
			return errors.NewConfigError(s.name, "container is not set", nil)
		}
	}
	return nil
}

// compact trims entries and drops blanks. Comma-separated env values are
// already split by viper's decode hooks.
func compact(in []string) []string {
	var out []string
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFiles loads .env files, later files never overriding earlier ones
// or the real environment.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(filepath.Clean(name)); err == nil {
			_ = godotenv.Load(name)
		}
	}
}
