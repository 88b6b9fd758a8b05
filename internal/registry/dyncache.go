package registry

import (
	"sync"
	"time"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

// cacheEntry holds one loaded tool plus the bookkeeping the eviction
// policy and idle sweep need.
type cacheEntry struct {
	tool        toolspec.Tool
	categories  []string
	lastAccess  time.Time
	accessCount int
	approxBytes int
}

// DynCache is the bounded, lazily-populated cache of loaded Tool
// instances. It deduplicates concurrent loads of the same tool so two
// goroutines racing to load the same cold tool share one Loader call,
// and evicts by a score that combines recency and access count once
// either MaxSize or MaxBytes is exceeded.
type DynCache struct {
	mu          sync.Mutex
	entries     map[string]*cacheEntry
	inflight    map[string]*inflightLoad
	maxSize     int
	maxBytes    int
	idleTimeout time.Duration
	now         func() time.Time
}

type inflightLoad struct {
	done chan struct{}
	tool toolspec.Tool
	err  error
}

// DynCacheConfig carries the resource bounds the cache enforces.
type DynCacheConfig struct {
	MaxSize     int
	MaxBytes    int
	IdleTimeout time.Duration
}

// NewDynCache returns an empty DynCache under cfg. now defaults to
// time.Now when nil.
func NewDynCache(cfg DynCacheConfig, now func() time.Time) *DynCache {
	if now == nil {
		now = time.Now
	}
	return &DynCache{
		entries:     make(map[string]*cacheEntry),
		inflight:    make(map[string]*inflightLoad),
		maxSize:     cfg.MaxSize,
		maxBytes:    cfg.MaxBytes,
		idleTimeout: cfg.IdleTimeout,
		now:         now,
	}
}

// Peek returns the loaded tool for name without affecting its access
// stats or triggering a load. Used by List to report load state.
func (c *DynCache) Peek(name string) (toolspec.Tool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// GetOrLoad returns the cached tool for name, loading it via load if not
// already cached. Concurrent calls for the same cold name share a single
// load call instead of racing; approxBytes is a caller-estimated
// footprint used for the MaxBytes bound (real tool objects rarely carry
// an exact size, so this is necessarily an estimate).
func (c *DynCache) GetOrLoad(name string, categories []string, approxBytes int, load Loader) (toolspec.Tool, error) {
	c.mu.Lock()
	if e, ok := c.entries[name]; ok {
		e.lastAccess = c.now()
		e.accessCount++
		c.mu.Unlock()
		return e.tool, nil
	}
	if fl, ok := c.inflight[name]; ok {
		c.mu.Unlock()
		<-fl.done
		return fl.tool, fl.err
	}

	fl := &inflightLoad{done: make(chan struct{})}
	c.inflight[name] = fl
	c.mu.Unlock()

	tool, err := load()

	c.mu.Lock()
	fl.tool, fl.err = tool, err
	close(fl.done)
	delete(c.inflight, name)
	if err == nil {
		c.insertLocked(name, tool, categories, approxBytes)
	}
	c.mu.Unlock()

	return tool, err
}

func (c *DynCache) insertLocked(name string, tool toolspec.Tool, categories []string, approxBytes int) {
	c.entries[name] = &cacheEntry{
		tool:        tool,
		categories:  categories,
		lastAccess:  c.now(),
		accessCount: 1,
		approxBytes: approxBytes,
	}
	c.evictIfOverLocked()
}

func (c *DynCache) evictIfOverLocked() {
	for c.overCapacityLocked() {
		victim, ok := c.pickEvictionVictimLocked()
		if !ok {
			return
		}
		delete(c.entries, victim)
	}
}

func (c *DynCache) overCapacityLocked() bool {
	if c.maxSize > 0 && len(c.entries) > c.maxSize {
		return true
	}
	if c.maxBytes > 0 {
		total := 0
		for _, e := range c.entries {
			total += e.approxBytes
		}
		if total > c.maxBytes {
			return true
		}
	}
	return false
}

// pickEvictionVictimLocked selects the entry minimizing
// score = lastAccess.UnixMilli() - accessCount*60000, the spec's
// eviction formula. Category "core" entries are never evicted.
func (c *DynCache) pickEvictionVictimLocked() (string, bool) {
	var victim string
	var best int64
	found := false
	for name, e := range c.entries {
		if hasCategory(e.categories, "core") {
			continue
		}
		score := e.lastAccess.UnixMilli() - int64(e.accessCount)*60000
		if !found || score < best {
			victim = name
			best = score
			found = true
		}
	}
	return victim, found
}

// SweepIdle evicts every non-core entry whose lastAccess is older than
// idleTimeout. Callers run this on a periodic ticker (spec default: every
// 2 minutes).
func (c *DynCache) SweepIdle() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []string
	cutoff := c.now().Add(-c.idleTimeout)
	for name, e := range c.entries {
		if hasCategory(e.categories, "core") {
			continue
		}
		if e.lastAccess.Before(cutoff) {
			evicted = append(evicted, name)
			delete(c.entries, name)
		}
	}
	return evicted
}

// Evict removes name from the cache unconditionally, used by
// Registry.Unregister.
func (c *DynCache) Evict(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Len returns the number of currently loaded tools.
func (c *DynCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
