package registry

import (
	"context"
	"path/filepath"
	"testing"
)

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func TestSmartPreloadKeywordsFiltersStopwordsAndShortWords(t *testing.T) {
	got := smartPreloadKeywords("Find the latest version of the node runtime and summarize it")
	// "find" is a stopword, "the"/"and"/"it"/"of" are too short — none
	// of these may appear even though they're real words in the task.
	for _, excluded := range []string{"find", "the", "and", "it", "of"} {
		if containsStr(got, excluded) {
			t.Fatalf("smartPreloadKeywords(...) = %v, must exclude %q", got, excluded)
		}
	}
	if len(got) == 0 {
		t.Fatalf("smartPreloadKeywords(...) = %v, want at least one keyword", got)
	}
	for _, w := range got {
		if len(w) <= 3 {
			t.Fatalf("smartPreloadKeywords(...) included short word %q", w)
		}
	}
}

func TestSmartPreloadKeywordsCapsAtFive(t *testing.T) {
	got := smartPreloadKeywords("alpha bravo charlie delta echo foxtrot golf hotel")
	if len(got) > 5 {
		t.Fatalf("smartPreloadKeywords(...) returned %d keywords, want <= 5", len(got))
	}
}

func TestSmartPreloadLoadsKeywordNeighbors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := fakeEmbedder{dim: 8, batchSize: 4}
	r := New(DefaultConfig(), embedder, filepath.Join(dir, "index.json"), nil, nil)

	if err := r.Register(newFakeEntry("filesystem_reader", "reads files from disk")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(newFakeEntry("unrelated_tool", "does something else entirely")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	if r.CacheLen() != 0 {
		t.Fatalf("CacheLen before preload = %d, want 0", r.CacheLen())
	}

	r.SmartPreload(ctx, "please read files from the local disk directory", nil)

	if r.CacheLen() == 0 {
		t.Fatalf("CacheLen after SmartPreload = 0, want at least one tool loaded")
	}
}

func TestSmartPreloadSkipsAlreadyLoaded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := fakeEmbedder{dim: 8, batchSize: 4}
	r := New(DefaultConfig(), embedder, filepath.Join(dir, "index.json"), nil, nil)

	if err := r.Register(newFakeEntry("filesystem_reader", "reads files from disk")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	already := map[string]bool{"filesystem_reader": true}
	r.SmartPreload(ctx, "please read files from the local disk directory", already)

	if r.CacheLen() != 0 {
		t.Fatalf("CacheLen = %d, want 0 (only candidate was already loaded)", r.CacheLen())
	}
}

func TestPreloadSimilarExcludesAlreadyReturned(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := fakeEmbedder{dim: 8, batchSize: 4}
	r := New(DefaultConfig(), embedder, filepath.Join(dir, "index.json"), nil, nil)

	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Register(newFakeEntry(name, name+" does a thing")); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
	if err := r.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	r.PreloadSimilar(ctx, "alpha does a thing", map[string]bool{"alpha": true})

	if _, ok := r.cache.Peek("alpha"); ok {
		t.Fatalf("PreloadSimilar loaded %q even though it was in alreadyReturned", "alpha")
	}
	if r.CacheLen() == 0 {
		t.Fatalf("CacheLen after PreloadSimilar = 0, want at least one non-excluded neighbor loaded")
	}
}
