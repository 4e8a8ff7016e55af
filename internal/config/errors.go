package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and describe what is wrong
// with the configuration. Callers can use errors.Is() for programmatic handling.
var (
	// ErrNoTarget is returned when no source URL or knowledge base ID is given.
	ErrNoTarget = errors.New("no target specified: provide a documentation URL or knowledge base ID")

	// ErrInvalidMode is returned for a mode other than auto, llms-txt or crawl.
	ErrInvalidMode = errors.New("invalid mode: must be one of auto, llms-txt, crawl")

	// ErrInvalidMaxDepth is returned when the depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	// Zero would mean no fetch can ever start.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidCrawlDelay is returned when the per-host delay is negative or unparsable.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be a non-negative duration")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRedirects is returned when a redirect cap is negative.
	ErrInvalidRedirects = errors.New("invalid redirect limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body cap is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidRobotsPolicy is returned for a robots-unreachable policy other than allow or deny.
	ErrInvalidRobotsPolicy = errors.New("invalid robots-unreachable policy: must be allow or deny")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrKBIDWithManyTargets is returned when --kb-id is combined with several sources.
	ErrKBIDWithManyTargets = errors.New("--kb-id can only be used with a single source")

	// ErrConflictingRunFlags is returned when --prune is combined with --resume.
	ErrConflictingRunFlags = errors.New("conflicting flags: --prune cannot be used with --resume")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrInvalidStorageDriver is returned for a storage driver other than sqlite or postgres.
	ErrInvalidStorageDriver = errors.New("invalid storage driver: must be sqlite or postgres")
)
