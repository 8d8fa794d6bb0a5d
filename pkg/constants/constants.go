// Package constants provides shared constants used throughout tasklink:
// matching thresholds, fetch pacing, timeouts and file permissions.
package constants

import "time"

// Matching thresholds and limits.
const (
	// DefaultMinConfidence is the minimum confidence an auto-match must reach.
	DefaultMinConfidence = 0.5

	// MaxCandidates is the maximum number of candidates returned per source record.
	MaxCandidates = 5

	// MinKeywordLength is the shortest token kept as a keyword.
	MinKeywordLength = 3

	// FuzzyFloor is the Jaro-Winkler similarity the fallback scorer requires.
	FuzzyFloor = 0.85

	// FuzzyMaxConfidence caps the confidence of fallback candidates.
	FuzzyMaxConfidence = 0.7
)

// Secondary-field fetch pacing.
const (
	// FetchBatchSize is the number of concurrent requests per batch.
	FetchBatchSize = 3

	// FetchBatchDelay is the pause between consecutive batches.
	FetchBatchDelay = 1500 * time.Millisecond
)

// Change report limits.
const (
	// DiffTruncateLength is the number of characters of a description kept in a change report.
	DiffTruncateLength = 100

	// DefaultChangeLimit is the default number of change records listed.
	DefaultChangeLimit = 50
)

// Timeouts.
const (
	// DefaultHTTPTimeout is the timeout for requests to remote task systems.
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands.
	CommandTimeout = 10 * time.Minute
)

// File permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x).
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--).
	FilePermissions = 0644
)

// HTTP server defaults.
const (
	// DefaultRateLimit is the default requests per minute per client.
	DefaultRateLimit = 100

	// CacheTTL is the default time-to-live for cached responses.
	CacheTTL = 30 * time.Second

	// CacheCleanupInterval is how often expired cache entries are purged.
	CacheCleanupInterval = 5 * time.Minute

	// ChannelBufferSize is the default buffer size for event channels.
	ChannelBufferSize = 256
)
