// Package limiter grants or denies requests against a shared per-key quota
// using a continuously refilled token bucket.
//
// The package is split along three seams:
//
//   - Evaluator computes and persists bucket state for one limiting key.
//     RedisEvaluator runs the read-compute-write cycle inside a Lua script so
//     a single budget holds across many application instances; MemoryEvaluator
//     runs the same algorithm process-locally for tests and single-instance
//     deployments.
//   - Resolver maps a route ID to a validated Config, with a default fallback
//     and atomic runtime updates.
//   - RateLimiter ties the two together and applies the fail-open policy: if
//     the quota store is unreachable the request passes with
//     TokensRemaining == -1 rather than being denied.
//
// A decision looks like:
//
//	resp, err := rl.Allow(ctx, routeID, clientKey)
//
// A non-nil error only ever means the route has no configuration, which is a
// deployment bug. Store outages never surface as errors; they show up as
// degraded responses in the logs and metrics.
//
// Per-key state in Redis lives under two co-located keys,
// request_rate_limiter.{<key>}.tokens and request_rate_limiter.{<key>}.timestamp,
// and expires after twice the bucket's fill time so idle identities cost
// nothing.
package limiter
