package limiter

import (
	"context"
	_ "embed" // needed for go:embed
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

//go:embed request_rate_limiter.lua
var requestRateLimiterScript string // embed the lua script content

var bucketScript = redis.NewScript(requestRateLimiterScript)

// bucketKeyPrefix namespaces the two per-key state entries in Redis.
const bucketKeyPrefix = "request_rate_limiter."

const defaultEvalTimeout = 5 * time.Second

// RedisEvaluator evaluates token buckets against a shared Redis store.
//
// The read-compute-write cycle runs inside a Lua script, so concurrent
// evaluations for the same key are serialized by Redis itself and the two
// state fields (token count and refill timestamp) always change together.
// The script reads the clock from Redis, never from the caller, so skew
// between application instances does not distort the refill.
type RedisEvaluator struct {
	client  redis.Cmdable // Use Cmdable for compatibility with ClusterClient, SentinelClient, etc.
	timeout time.Duration
}

// RedisEvaluatorOption configures a RedisEvaluator.
type RedisEvaluatorOption func(*RedisEvaluator)

// WithEvalTimeout bounds each script call. An expired deadline surfaces as an
// evaluation error, which the decision wrapper converts to fail-open.
// Defaults to 5 seconds.
func WithEvalTimeout(d time.Duration) RedisEvaluatorOption {
	return func(e *RedisEvaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewRedisEvaluator creates an evaluator backed by the given Redis client.
// It expects a pre-configured redis.Cmdable (e.g. redis.Client or
// redis.ClusterClient).
func NewRedisEvaluator(client redis.Cmdable, opts ...RedisEvaluatorOption) *RedisEvaluator {
	if client == nil {
		panic("limiter: redis client cannot be nil")
	}
	e := &RedisEvaluator{
		client:  client,
		timeout: defaultEvalTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// bucketKeys returns the token and timestamp keys for one limiting identity.
// The shared hash tag ({id}) keeps both keys in the same slot, which the
// multi-key script requires on a cluster.
func bucketKeys(id string) []string {
	prefix := bucketKeyPrefix + "{" + id
	return []string{prefix + "}.tokens", prefix + "}.timestamp"}
}

// Evaluate implements the Evaluator interface using the Lua script.
func (e *RedisEvaluator) Evaluate(ctx context.Context, key string, rate, capacity, requested int64) (bool, int64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Args, in wire order: rate, capacity, reserved slot, requested.
	// All integers travel string-encoded.
	args := []any{
		strconv.FormatInt(rate, 10),
		strconv.FormatInt(capacity, 10),
		"",
		strconv.FormatInt(requested, 10),
	}

	result, err := bucketScript.Run(ctx, e.client, bucketKeys(key), args...).Result()
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("rate limiter script execution failed")
		return false, 0, fmt.Errorf("limiter: rate limiter script failed for key %s: %w", key, err)
	}

	allowed, remaining, err := decodeEvalReply(result)
	if err != nil {
		log.Debug().Str("key", key).Interface("result", result).Msg("rate limiter script returned unexpected reply")
		return false, 0, err
	}

	log.Debug().Str("key", key).Bool("allowed", allowed).Int64("remaining", remaining).Msg("bucket evaluated")
	return allowed, remaining, nil
}

// decodeEvalReply validates the two-element [allowedFlag, tokensRemaining]
// contract of the script reply.
func decodeEvalReply(result any) (bool, int64, error) {
	values, ok := result.([]any)
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("%w: expected 2-element array, got %T", ErrMalformedReply, result)
	}
	allowedFlag, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("%w: allowed flag has type %T", ErrMalformedReply, values[0])
	}
	remaining, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("%w: remaining tokens has type %T", ErrMalformedReply, values[1])
	}
	return allowedFlag == 1, remaining, nil
}

// Ensure RedisEvaluator implements the Evaluator interface
var _ Evaluator = (*RedisEvaluator)(nil)
