package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// DefaultShutdownTimeout bounds graceful server shutdown
	DefaultShutdownTimeout = 10 * time.Second

	// CacheOperationTimeout is the timeout for a single memo cache round trip
	CacheOperationTimeout = 2 * time.Second
)

// =============================================================================
// Aggregation Constants
// =============================================================================

const (
	// DefaultMaxWorkers is the default number of series aggregated concurrently per request
	DefaultMaxWorkers = 8

	// DefaultMaxPoints caps the caller supplied target point count
	DefaultMaxPoints = 10000

	// DefaultCacheTTL is how long a memoized aggregation stays valid
	DefaultCacheTTL = 5 * time.Minute
)

// =============================================================================
// Cache Type Constants
// =============================================================================

// CacheType represents the memo cache backend
type CacheType string

const (
	// CacheTypeMemory keeps results in process (default)
	CacheTypeMemory CacheType = "memory"

	// CacheTypeRedis shares results between instances through Redis
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNone disables memoization
	CacheTypeNone CacheType = "none"
)
