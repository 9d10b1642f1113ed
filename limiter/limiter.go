package limiter

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Response is the outcome of one rate limit decision.
type Response struct {
	// Allowed reports whether the request may pass.
	Allowed bool
	// TokensRemaining is the number of whole tokens left in the bucket.
	// The sentinel -1 means "unknown": the store was unreachable and the
	// decision degraded to fail-open.
	TokensRemaining int64
	// Headers carries the informational rate limit headers, or an empty map
	// when header emission is disabled.
	Headers map[string]string
}

// Limiter is the decision interface consumed by transport integrations
// (HTTP middleware, gRPC interceptors).
type Limiter interface {
	Allow(ctx context.Context, routeID, key string) (Response, error)
}

// RateLimiter orchestrates config resolution and bucket evaluation, and
// converts store failures into a fail-open verdict. One instance serves all
// routes and is safe for concurrent use.
type RateLimiter struct {
	resolver  *Resolver
	evaluator Evaluator
	headers   HeaderConfig
	recorder  Recorder
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithHeaders overrides the header emission settings.
func WithHeaders(hc HeaderConfig) Option {
	return func(rl *RateLimiter) {
		rl.headers = hc
	}
}

// WithRecorder injects a metrics backend. Defaults to a no-op recorder.
func WithRecorder(rec Recorder) Option {
	return func(rl *RateLimiter) {
		if rec != nil {
			rl.recorder = rec
		}
	}
}

// New creates a RateLimiter. Both dependencies are required; there is no
// deferred-initialization state.
func New(resolver *Resolver, evaluator Evaluator, opts ...Option) *RateLimiter {
	if resolver == nil {
		panic("limiter: resolver cannot be nil")
	}
	if evaluator == nil {
		panic("limiter: evaluator cannot be nil")
	}
	rl := &RateLimiter{
		resolver:  resolver,
		evaluator: evaluator,
		headers:   DefaultHeaderConfig(),
		recorder:  NoopRecorder{},
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// evalOutcome tags the result of one evaluator call: either a real verdict,
// or a store failure already converted to the permissive default.
type evalOutcome struct {
	allowed   bool
	remaining int64
	degraded  bool
}

// evaluateFailOpen wraps the evaluator call with the fail-open policy: any
// transport, timeout, or protocol failure yields an allow with unknown
// remaining tokens. The failure is logged and counted, never propagated.
// There is no retry; retrying an ambiguous deduction could double-charge the
// bucket, so under-enforcement is preferred.
func (rl *RateLimiter) evaluateFailOpen(ctx context.Context, routeID, key string, cfg Config) evalOutcome {
	start := time.Now()
	allowed, remaining, err := rl.evaluator.Evaluate(ctx, key, cfg.ReplenishRate, cfg.BurstCapacity, cfg.RequestedTokens)
	rl.recorder.Observe(MetricLatency, time.Since(start).Seconds(), map[string]string{"route": routeID})
	if err != nil {
		log.Warn().Err(err).Str("route", routeID).Str("key", key).Msg("rate limit evaluation failed, allowing request")
		rl.recorder.Add(MetricFailOpen, 1, map[string]string{"route": routeID})
		return evalOutcome{allowed: true, remaining: -1, degraded: true}
	}
	return evalOutcome{allowed: allowed, remaining: remaining}
}

// Allow decides whether the request identified by key may pass through
// routeID.
//
// A missing route configuration is the only hard failure; everything the
// shared store can do wrong is absorbed into a degraded-but-successful
// Response so quota enforcement never becomes the reason the protected
// service is unreachable.
func (rl *RateLimiter) Allow(ctx context.Context, routeID, key string) (Response, error) {
	cfg, err := rl.resolver.Resolve(routeID)
	if err != nil {
		return Response{}, err
	}

	out := rl.evaluateFailOpen(ctx, routeID, key, cfg)
	if !out.degraded {
		outcome := "allowed"
		if !out.allowed {
			outcome = "denied"
		}
		rl.recorder.Add(MetricDecision, 1, map[string]string{"route": routeID, "outcome": outcome})
		log.Debug().
			Str("route", routeID).
			Str("key", key).
			Bool("allowed", out.allowed).
			Int64("remaining", out.remaining).
			Msg("rate limit decision")
	}

	return Response{
		Allowed:         out.allowed,
		TokensRemaining: out.remaining,
		Headers:         buildHeaders(cfg, rl.headers, out.remaining),
	}, nil
}

// Ensure RateLimiter implements the Limiter interface
var _ Limiter = (*RateLimiter)(nil)
