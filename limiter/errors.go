package limiter

import "errors"

var (
	// ErrInvalidConfig is returned when a rate limit configuration violates
	// its invariants (e.g. burst capacity below the replenish rate).
	ErrInvalidConfig = errors.New("limiter: invalid rate limit configuration")
	// ErrNoRouteConfig is returned when neither a route-specific entry, a
	// default config, nor a defaultFilters entry exists for a route.
	// This is a deployment error, not a per-request condition.
	ErrNoRouteConfig = errors.New("limiter: no configuration found for route")
	// ErrMalformedReply is returned when the store answers the evaluator call
	// with something other than the expected [allowed, remaining] pair.
	ErrMalformedReply = errors.New("limiter: malformed evaluator reply")
)
