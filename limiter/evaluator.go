package limiter

import "context"

// Evaluator decides whether a single request may pass for a limiting key,
// given the bucket parameters of the matched route.
//
// An implementation must evaluate and persist the bucket state as one atomic
// unit: no other evaluation for the same key may observe or mutate
// intermediate state. Ties count as allowed (a bucket holding exactly
// `requested` tokens admits the request). Tokens are never deducted on a
// denial.
type Evaluator interface {
	// Evaluate returns whether the request is allowed and how many whole
	// tokens remain in the bucket afterwards.
	Evaluate(ctx context.Context, key string, rate, capacity, requested int64) (allowed bool, remaining int64, err error)
}
