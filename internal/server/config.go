package server

import (
	"time"

	"github.com/agentstation/tasklink/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	Host string
	Port int

	PathPrefix string

	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string

	// AuthToken enables bearer authentication when set.
	AuthToken string

	RateLimit int // requests per minute per IP, 0 disables
	CacheTTL  time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a Config with the defaults of `tasklink serve`.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		PathPrefix:   "/api/v1",
		RateLimit:    constants.DefaultRateLimit,
		CacheTTL:     constants.CacheTTL,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // detect passes fetch comments in batches
		IdleTimeout:  120 * time.Second,
	}
}
