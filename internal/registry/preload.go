package registry

import (
	"context"
	"strings"
)

// PreloadSimilar warms the cache with up to 3 catalog entries closest to
// query that are not already in alreadyReturned, so a follow-up step
// reaching for a related tool hits a warm cache. Load failures are
// swallowed; preloading is best-effort and never blocks the caller's
// actual step on a tool it didn't ask for.
func (r *Registry) PreloadSimilar(ctx context.Context, query string, alreadyReturned map[string]bool) {
	hits, err := r.Search(ctx, query, len(alreadyReturned)+3)
	if err != nil {
		return
	}
	loaded := 0
	for _, h := range hits {
		if alreadyReturned[h.Name] {
			continue
		}
		if _, err := r.GetOrLoad(ctx, h.Name); err == nil {
			loaded++
		}
		if loaded >= 3 {
			return
		}
	}
}

// stopwords excludes common function words from smartPreload's keyword
// extraction so short, high-frequency words never dominate the up-to-5
// keyword budget.
var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"about": true, "would": true, "could": true, "should": true,
	"there": true, "their": true, "which": true, "where": true,
	"what": true, "when": true, "then": true, "than": true,
	"into": true, "your": true, "been": true, "were": true,
	"will": true, "does": true, "some": true, "each": true,
	"find": true, "make": true, "just": true, "also": true,
}

// smartPreloadKeywords extracts up to 5 stopword-filtered keywords longer
// than 3 characters from task, in order of first appearance, per spec.md
// §4.1 "smartPreload(task, context)".
func smartPreloadKeywords(task string) []string {
	fields := strings.FieldsFunc(strings.ToLower(task), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	seen := map[string]bool{}
	var keywords []string
	for _, w := range fields {
		if len(w) <= 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

// SmartPreload warms the cache for task: it extracts up to 5
// stopword-filtered keywords longer than 3 characters, searches the top-3
// tools for each, and loads the union in first-seen order, capped at 5
// tools total (spec.md §4.1). alreadyLoaded names are skipped so a run
// already holding a tool warm doesn't spend a load slot re-fetching it.
func (r *Registry) SmartPreload(ctx context.Context, task string, alreadyLoaded map[string]bool) {
	keywords := smartPreloadKeywords(task)
	seen := map[string]bool{}
	var toLoad []string
	for _, kw := range keywords {
		hits, err := r.Search(ctx, kw, 3)
		if err != nil {
			continue
		}
		for _, h := range hits {
			if alreadyLoaded[h.Name] || seen[h.Name] {
				continue
			}
			seen[h.Name] = true
			toLoad = append(toLoad, h.Name)
			if len(toLoad) == 5 {
				break
			}
		}
		if len(toLoad) == 5 {
			break
		}
	}
	for _, name := range toLoad {
		_, _ = r.GetOrLoad(ctx, name)
	}
}
