package registry

import (
	"sync"
	"time"
)

// UsageTracker records per-tool invocation counts and last-used times,
// feeding the semantic search usageBoost term. It survives cache
// eviction and reload: a tool's usage history outlives any one loaded
// Tool instance, unlike DynCache's per-entry accessCount.
type UsageTracker struct {
	mu       sync.Mutex
	counts   map[string]int
	lastUsed map[string]time.Time
	now      func() time.Time
}

// NewUsageTracker returns an empty tracker. now defaults to time.Now
// when nil.
func NewUsageTracker(now func() time.Time) *UsageTracker {
	if now == nil {
		now = time.Now
	}
	return &UsageTracker{
		counts:   make(map[string]int),
		lastUsed: make(map[string]time.Time),
		now:      now,
	}
}

// Record marks one invocation of name.
func (u *UsageTracker) Record(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[name]++
	u.lastUsed[name] = u.now()
}

// Boost returns the usageBoost term added to cosine similarity:
// min(0.01*usageCount, 0.10) + recency, where
// recency = 0.05*max(0, 1-daysSinceUsed/30) if name has been used
// before, else 0.
func (u *UsageTracker) Boost(name string) float64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	freq := 0.01 * float64(u.counts[name])
	if freq > 0.10 {
		freq = 0.10
	}

	last, used := u.lastUsed[name]
	if !used {
		return freq
	}
	days := u.now().Sub(last).Hours() / 24
	recencyFactor := 1 - days/30
	if recencyFactor < 0 {
		recencyFactor = 0
	}
	return freq + 0.05*recencyFactor
}
