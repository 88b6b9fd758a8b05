package reliability

import (
	"context"
	"math/rand"
)

// Wrapper composes a shared Breakers registry with per-call retry
// policies, giving each tool invocation the contract described in the
// Reliability Wrapper: a call that exhausts its retries counts as one
// breaker failure, and a breaker that is open short-circuits without
// invoking the underlying function at all.
type Wrapper struct {
	breakers *Breakers
	rnd      *rand.Rand
}

// NewWrapper returns a Wrapper backed by breakers. rnd may be nil.
func NewWrapper(breakers *Breakers, rnd *rand.Rand) *Wrapper {
	return &Wrapper{breakers: breakers, rnd: rnd}
}

// Execute runs fn under retry policy retryPolicy, gated by the named
// tool's breaker under breakerPolicy. If the breaker is open, fn is never
// called and ErrCircuitOpen is returned. Otherwise fn is retried per
// retryPolicy; the final outcome (success or exhausted failure) updates
// the breaker exactly once.
func (w *Wrapper) Execute(ctx context.Context, name string, retryPolicy BackoffPolicy, breakerPolicy BreakerPolicy, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := w.breakers.Allow(name, breakerPolicy); err != nil {
		return nil, err
	}

	result, err := Retry(ctx, retryPolicy, w.rnd, fn)
	if err != nil {
		w.breakers.RecordFailure(name, breakerPolicy)
		return nil, err
	}
	w.breakers.RecordSuccess(name)
	return result, nil
}
