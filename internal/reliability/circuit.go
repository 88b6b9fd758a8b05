package reliability

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is rejected because the tool's
// breaker is open.
var ErrCircuitOpen = errors.New("reliability: circuit open")

// BreakerPolicy configures when a per-tool breaker trips and how long it
// stays open.
type BreakerPolicy struct {
	FailureThreshold int
	CooldownMs       int
}

// breakerState is the mutable state for one tool's breaker: a consecutive
// failure count and, once tripped, the instant it may next be tried.
// Unlike the teacher's three-state (closed/open/half-open) breaker, this
// has exactly two states: closed (openedUntil zero or past) and open.
type breakerState struct {
	failures    int
	openedUntil time.Time
}

// Breakers is a mutex-guarded map of per-tool breaker state.
type Breakers struct {
	mu    sync.Mutex
	state map[string]*breakerState
	now   func() time.Time
}

// NewBreakers returns an empty Breakers registry. now defaults to
// time.Now when nil, and exists so tests can drive the breaker with a
// fake clock.
func NewBreakers(now func() time.Time) *Breakers {
	if now == nil {
		now = time.Now
	}
	return &Breakers{state: make(map[string]*breakerState), now: now}
}

// Allow reports whether a call for name may proceed. The breaker is
// closed when openedUntil is zero or in the past, open otherwise;
// failures is only a counter toward the next trip and plays no part in
// this check.
func (b *Breakers) Allow(name string, policy BreakerPolicy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[name]
	if !ok {
		return nil
	}
	if !st.openedUntil.IsZero() && b.now().Before(st.openedUntil) {
		return ErrCircuitOpen
	}
	return nil
}

// Snapshot reports whether name's breaker is currently open, for callers
// that want to observe breaker state without affecting it (e.g. metrics).
func (b *Breakers) Snapshot(name string) (failures int, open bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[name]
	if !ok {
		return 0, false
	}
	return st.failures, !st.openedUntil.IsZero() && b.now().Before(st.openedUntil)
}

// RecordSuccess resets the failure count for name, closing its breaker.
func (b *Breakers) RecordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if st, ok := b.state[name]; ok {
		st.failures = 0
		st.openedUntil = time.Time{}
	}
}

// RecordFailure increments the failure count for name. Once it reaches
// policy.FailureThreshold, the breaker opens for policy.CooldownMs and
// the counter resets, so the next trip requires a fresh run of
// consecutive failures.
func (b *Breakers) RecordFailure(name string, policy BreakerPolicy) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[name]
	if !ok {
		st = &breakerState{}
		b.state[name] = st
	}
	st.failures++
	if st.failures >= policy.FailureThreshold {
		st.openedUntil = b.now().Add(time.Duration(policy.CooldownMs) * time.Millisecond)
		st.failures = 0
	}
}
