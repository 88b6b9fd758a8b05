package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

// Config carries the resource bounds the registry enforces, matching the
// concurrency and resource model's defaults.
type Config struct {
	MaxCacheSize   int
	MaxCacheBytes  int
	IdleTimeout    time.Duration
	MaxEmbedCache  int
	SearchCacheTTL time.Duration
	TopK           int
}

// DefaultConfig returns the spec's default resource bounds:
// MaxCacheSize=100, MaxCacheBytes=50MiB, IdleTimeout=10m,
// MaxEmbedCache=1000, SearchCacheTTL=5m, TopK=8.
func DefaultConfig() Config {
	return Config{
		MaxCacheSize:   100,
		MaxCacheBytes:  50 * 1024 * 1024,
		IdleTimeout:    10 * time.Minute,
		MaxEmbedCache:  1000,
		SearchCacheTTL: 5 * time.Minute,
		TopK:           8,
	}
}

// MetricsSink receives optional telemetry from the Registry. It is
// defined here rather than imported from a concrete metrics package so
// the registry has no dependency on any particular sink (spec.md §1
// keeps metrics export out of the core's correctness contract); the
// default noopMetrics costs nothing when no sink is wired.
type MetricsSink interface {
	CacheHit()
	CacheMiss()
	SetCacheSize(n int)
}

type noopMetrics struct{}

func (noopMetrics) CacheHit()        {}
func (noopMetrics) CacheMiss()       {}
func (noopMetrics) SetCacheSize(int) {}

// Registry composes the static Catalog, the persisted semantic Index, the
// bounded DynCache of loaded tools, and a query-embedding cache into the
// single Tool Registry contract the planner and agent depend on.
type Registry struct {
	catalog    *Catalog
	index      *Index
	cache      *DynCache
	embedCache *EmbedCache
	usage      *UsageTracker
	embedder   Embedder
	cfg        Config
	log        *slog.Logger
	metrics    MetricsSink
}

// SetMetrics wires an optional telemetry sink. Safe to call at most once
// during startup, before concurrent use begins.
func (r *Registry) SetMetrics(m MetricsSink) {
	if m == nil {
		m = noopMetrics{}
	}
	r.metrics = m
}

// New wires a Registry from its parts. indexPath is where the semantic
// index persists (DATA_DIR/tools/index.json).
func New(cfg Config, embedder Embedder, indexPath string, now func() time.Time, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		catalog: NewCatalog(),
		index:   NewIndex(indexPath),
		cache: NewDynCache(DynCacheConfig{
			MaxSize:     cfg.MaxCacheSize,
			MaxBytes:    cfg.MaxCacheBytes,
			IdleTimeout: cfg.IdleTimeout,
		}, now),
		embedCache: NewEmbedCache(cfg.MaxEmbedCache, cfg.SearchCacheTTL, now),
		usage:      NewUsageTracker(now),
		embedder:   embedder,
		cfg:        cfg,
		log:        log,
		metrics:    noopMetrics{},
	}
}

// Register adds entry to the catalog. This is the only sanctioned
// mutation path; the semantic index is not updated until RebuildIndex or
// an incremental Append runs.
func (r *Registry) Register(entry Entry) error {
	return r.catalog.Register(entry)
}

// Unregister removes name from both the catalog and the loaded-tool
// cache.
func (r *Registry) Unregister(name string) {
	r.catalog.Unregister(name)
	r.cache.Evict(name)
}

// Get returns the catalog entry for name without loading its Tool.
func (r *Registry) Get(name string) (Entry, bool) {
	return r.catalog.Get(name)
}

// List returns catalog entries, optionally filtered by category, each
// annotated with whether its Tool is currently loaded.
type ListItem struct {
	Entry  Entry
	Loaded bool
}

// List returns catalog entries matching category ("" for all),
// optionally restricted to loaded-only.
func (r *Registry) List(category string, loadedOnly bool) []ListItem {
	entries := r.catalog.List(category)
	out := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		_, loaded := r.cache.Peek(e.Name)
		if loadedOnly && !loaded {
			continue
		}
		out = append(out, ListItem{Entry: e, Loaded: loaded})
	}
	return out
}

// GetOrLoad returns the live Tool for name, loading it through the
// catalog's Loader on a cache miss. A cold load that adds a tool never
// present in the semantic index triggers an incremental Append so the
// next Search can find it without a full RebuildIndex.
func (r *Registry) GetOrLoad(ctx context.Context, name string) (toolspec.Tool, error) {
	entry, ok := r.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("registry: unknown tool %q", name)
	}

	_, wasCached := r.cache.Peek(name)
	tool, err := r.cache.GetOrLoad(name, entry.Categories, estimateBytes(entry), entry.Load)
	if err != nil {
		return nil, fmt.Errorf("registry: load tool %q: %w", name, err)
	}
	if wasCached {
		r.metrics.CacheHit()
	} else {
		r.metrics.CacheMiss()
	}
	r.metrics.SetCacheSize(r.cache.Len())
	r.usage.Record(name)

	if r.embedder != nil {
		if err := r.index.Append(ctx, r.embedder, []Entry{entry}); err != nil {
			r.log.Warn("registry: incremental index append failed", "tool", name, "error", err)
		}
	}
	return tool, nil
}

func estimateBytes(e Entry) int {
	return 256 + len(e.Description) + len(e.Name)
}

// RebuildIndex re-embeds every catalog entry's description and replaces
// the semantic index wholesale, then persists it. Call this when the
// loaded index's fingerprint no longer matches the current catalog
// (EnsureIndex does this check automatically).
func (r *Registry) RebuildIndex(ctx context.Context) error {
	if r.embedder == nil {
		return fmt.Errorf("registry: no embedder configured")
	}
	entries := r.catalog.List("")
	if err := r.index.Rebuild(ctx, r.embedder, entries); err != nil {
		return err
	}
	if err := r.index.Save(); err != nil {
		return fmt.Errorf("registry: save index: %w", err)
	}
	r.log.Info("registry: index rebuilt", "tools", len(entries), "embedder", describeFingerprint(r.embedder))
	return nil
}

// EnsureIndex loads the persisted index and rebuilds it if stale (wrong
// embedder, changed catalog, or changed vector dimension).
func (r *Registry) EnsureIndex(ctx context.Context) error {
	if err := r.index.Load(); err != nil {
		return err
	}
	if r.embedder == nil {
		return nil
	}
	entries := r.catalog.List("")
	names := r.catalog.Names()
	namesHash := HashNames(names)
	descsHash := HashDescriptions(entries)
	if r.index.Valid(r.embedder.Name(), namesHash, descsHash, r.embedder.Dimension()) {
		return nil
	}
	return r.RebuildIndex(ctx)
}

// Search returns the topK catalog entries most semantically similar to
// query, scored by cosine similarity plus a usage boost (frequency and
// recency of past invocations). topK<=0 uses the registry's configured
// default.
func (r *Registry) Search(ctx context.Context, query string, topK int) ([]Scored, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("registry: no embedder configured")
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	vec, ok := r.embedCache.Get(query)
	if !ok {
		embedded, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("registry: embed query: %w", err)
		}
		vec = embedded
		r.embedCache.Put(query, vec)
	}

	// Index.Search ranks by raw cosine similarity only and may truncate
	// to topK before the usage boost is applied, so ask it for every
	// entry and re-rank here.
	scored := r.index.Search(vec, 0)
	for i, s := range scored {
		scored[i].Score = s.Score + r.usage.Boost(s.Name)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}

	// spec.md §4.1: search must load any returned candidate not already
	// cached before returning it, so callers can materialize a Tool for
	// every hit without a second round trip. A load failure is logged and
	// left to the caller's own GetOrLoad to surface, not treated as fatal
	// to the search itself.
	for _, s := range scored {
		if _, ok := r.cache.Peek(s.Name); ok {
			continue
		}
		entry, ok := r.catalog.Get(s.Name)
		if !ok {
			continue
		}
		if _, err := r.cache.GetOrLoad(s.Name, entry.Categories, estimateBytes(entry), entry.Load); err != nil {
			r.log.Warn("registry: search preload failed", "tool", s.Name, "error", err)
		}
	}
	return scored, nil
}

// RecordUsage bumps the access stats for name as if it had just been
// fetched, without loading it, so a tool chosen outside Search (e.g. by a
// heuristic) still counts toward the usage boost and, if it is cached,
// the cache's recency/frequency eviction score. No planner stage calls it.
func (r *Registry) RecordUsage(name string) {
	r.usage.Record(name)
	if tool, ok := r.cache.Peek(name); ok {
		entry, _ := r.catalog.Get(name)
		r.cache.GetOrLoad(name, entry.Categories, estimateBytes(entry), func() (toolspec.Tool, error) {
			return tool, nil
		})
	}
}

// SweepIdle evicts idle, non-core cache entries. Callers run this on a
// ticker (spec default: every 2 minutes).
func (r *Registry) SweepIdle() []string {
	evicted := r.cache.SweepIdle()
	if len(evicted) > 0 {
		r.log.Info("registry: idle sweep evicted tools", "names", evicted)
	}
	return evicted
}

// CacheLen reports how many tools are currently loaded, for metrics.
func (r *Registry) CacheLen() int {
	return r.cache.Len()
}
