package reliability

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	policy := BackoffPolicy{BaseDelayMs: 1, MaxAttempts: 3}
	rnd := rand.New(rand.NewSource(42))

	result, err := Retry(context.Background(), policy, rnd, func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("result = %v, want ok", result)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhausts(t *testing.T) {
	attempts := 0
	policy := BackoffPolicy{BaseDelayMs: 1, MaxAttempts: 2}
	rnd := rand.New(rand.NewSource(42))

	_, err := Retry(context.Background(), policy, rnd, func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreakers(func() time.Time { return now })
	policy := BreakerPolicy{FailureThreshold: 3, CooldownMs: 1000}

	for i := 0; i < 2; i++ {
		b.RecordFailure("t", policy)
		if err := b.Allow("t", policy); err != nil {
			t.Fatalf("breaker opened too early after %d failures", i+1)
		}
	}
	b.RecordFailure("t", policy)
	if err := b.Allow("t", policy); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	now = now.Add(1001 * time.Millisecond)
	if err := b.Allow("t", policy); err != nil {
		t.Fatalf("breaker should have closed after cooldown: %v", err)
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	now := time.Now()
	b := NewBreakers(func() time.Time { return now })
	policy := BreakerPolicy{FailureThreshold: 3, CooldownMs: 1000}

	b.RecordFailure("t", policy)
	b.RecordFailure("t", policy)
	b.RecordSuccess("t")
	b.RecordFailure("t", policy)
	if err := b.Allow("t", policy); err != nil {
		t.Fatalf("breaker should still be closed: %v", err)
	}
}

func TestWrapperShortCircuitsWhenOpen(t *testing.T) {
	now := time.Now()
	breakers := NewBreakers(func() time.Time { return now })
	w := NewWrapper(breakers, rand.New(rand.NewSource(1)))
	retryPolicy := BackoffPolicy{BaseDelayMs: 1, MaxAttempts: 0}
	breakerPolicy := BreakerPolicy{FailureThreshold: 1, CooldownMs: 1000}

	calls := 0
	_, err := w.Execute(context.Background(), "t", retryPolicy, breakerPolicy, func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error on first call")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	_, err = w.Execute(context.Background(), "t", retryPolicy, breakerPolicy, func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want still 1 (fn must not run when circuit is open)", calls)
	}
}
