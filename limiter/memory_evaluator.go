package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// bucketState holds the token bucket state for one key in the memory evaluator.
type bucketState struct {
	tokens     float64
	lastRefill int64 // unix seconds of the last persisted evaluation
	expiresAt  int64 // unix seconds after which the state counts as absent
}

// MemoryEvaluator implements the Evaluator interface with process-local
// state. It runs the same algorithm as the Redis script, so it can stand in
// for single-instance deployments and deterministic tests, but it cannot
// enforce a global budget across replicas.
type MemoryEvaluator struct {
	mu      sync.Mutex
	buckets map[string]*bucketState
	now     func() int64
}

// MemoryEvaluatorOption configures a MemoryEvaluator.
type MemoryEvaluatorOption func(*MemoryEvaluator)

// WithClock replaces the evaluator's clock. The function must return unix
// seconds. Intended for tests that need a controllable notion of "now".
func WithClock(now func() int64) MemoryEvaluatorOption {
	return func(e *MemoryEvaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewMemoryEvaluator creates a new in-memory bucket evaluator.
func NewMemoryEvaluator(opts ...MemoryEvaluatorOption) *MemoryEvaluator {
	e := &MemoryEvaluator{
		buckets: make(map[string]*bucketState),
		now:     func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate implements the Evaluator interface for in-memory storage.
func (e *MemoryEvaluator) Evaluate(ctx context.Context, key string, rate, capacity, requested int64) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	st, exists := e.buckets[key]
	if !exists || (st.expiresAt > 0 && now >= st.expiresAt) {
		// Fresh or expired key: full bucket, epoch refill timestamp.
		st = &bucketState{tokens: float64(capacity), lastRefill: 0}
	}

	delta := now - st.lastRefill
	if delta < 0 {
		delta = 0
	}
	filled := st.tokens + float64(delta*rate)
	if filled > float64(capacity) {
		filled = float64(capacity)
	}

	allowed := filled >= float64(requested)
	newTokens := filled
	if allowed {
		newTokens = filled - float64(requested)
	}

	// Same persistence rule as the script: state is only written when it
	// would carry a positive TTL, and expires after twice the fill time.
	ttl := 2 * capacity / rate
	if ttl > 0 {
		st.tokens = newTokens
		st.lastRefill = now
		st.expiresAt = now + ttl
		e.buckets[key] = st
	}

	log.Debug().Str("key", key).Bool("allowed", allowed).Float64("tokens", newTokens).Msg("memory bucket evaluated")
	return allowed, int64(newTokens), nil
}

// Len reports the number of live buckets, counting expired ones that have not
// been touched since expiry.
func (e *MemoryEvaluator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buckets)
}

// Ensure MemoryEvaluator implements the Evaluator interface
var _ Evaluator = (*MemoryEvaluator)(nil)
