package domain

import "errors"

var (
	// ErrProductNotFound is returned when the upstream catalog has no item for a barcode
	ErrProductNotFound = errors.New("product not found in upstream catalog")

	// ErrRateLimited is returned when a client exceeds its request window
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when a key is absent or its entry has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrUpstreamUnavailable is returned when the upstream catalog answers non-2xx or cannot be reached
	ErrUpstreamUnavailable = errors.New("upstream catalog request failed")

	// ErrCacheUnavailable wraps read and write failures of a shared cache backend (redis, postgres)
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrSeedRunNotFound is returned when a seed step names an unknown run
	ErrSeedRunNotFound = errors.New("seed run not found")

	// ErrSeedStepFailed is returned when one unit of seeding work fails; the cursor is kept
	ErrSeedStepFailed = errors.New("seed step failed")
)
