// Package constants provides shared constants used throughout the advisor
// codebase. This includes timeouts, retry limits, concurrency bounds and
// scoring defaults that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to source APIs
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultCollectionDeadline bounds one end-to-end collection cycle
	DefaultCollectionDeadline = 2 * time.Minute

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 500 * time.Millisecond

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 10 * time.Second
)

// Retry and concurrency limits
const (
	// MaxRetries is the maximum number of retry attempts for a region fetch
	MaxRetries = 3

	// MaxConcurrentRegions bounds the per-source region fetch worker pool
	MaxConcurrentRegions = 4

	// MaxPages caps pagination per region so a misbehaving API cannot
	// consume the whole collection deadline
	MaxPages = 20

	// DefaultPageSize is the page size requested from source APIs
	DefaultPageSize = 100
)

// Circuit breaker defaults
const (
	// BreakerFailureThreshold is the number of consecutive hard failures
	// that opens a source's circuit
	BreakerFailureThreshold = 3

	// BreakerFailureWindow is the window within which consecutive failures
	// must occur to open the circuit
	BreakerFailureWindow = 1 * time.Minute
)

// Scoring defaults. Level thresholds are a fixed, testable contract.
const (
	// SavingsWeight is the default weight of normalized monthly savings
	SavingsWeight = 0.5

	// EffortWeight is the default weight of the inverted effort ordinal
	EffortWeight = 0.3

	// RiskWeight is the default weight of the inverted risk fraction
	RiskWeight = 0.2

	// SavingsCeiling is the monthly savings (USD) that earns full marks
	// on the savings factor
	SavingsCeiling = 1000.0

	// MaxRiskCount is the risk count that earns zero marks on the risk factor
	MaxRiskCount = 5

	// HighPriorityThreshold is the minimum score for the high priority level
	HighPriorityThreshold = 70.0

	// MediumPriorityThreshold is the minimum score for the medium priority level
	MediumPriorityThreshold = 40.0
)

// Summary defaults
const (
	// DefaultTopCategories is the number of top categories in the summary
	DefaultTopCategories = 5
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for the cached report
	CacheTTL = 1 * time.Hour

	// CacheCleanupInterval is how often expired cache entries are removed
	CacheCleanupInterval = 10 * time.Minute
)

// Server defaults
const (
	// DefaultListenAddr is the default HTTP listen address for advisor serve
	DefaultListenAddr = ":8380"

	// DefaultCronSchedule triggers a collection cycle every 30 minutes
	DefaultCronSchedule = "*/30 * * * *"
)
