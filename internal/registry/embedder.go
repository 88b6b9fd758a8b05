// Package registry implements the Tool Registry: catalog scanning, a
// persisted semantic-search embedding index, a bounded dynamic tool
// cache with lazy loading, and usage-aware preloading. Its shape follows
// the teacher's RAG index manager and tool registry but is generalized
// from document chunks to tool descriptions.
package registry

import "context"

// Embedder turns text into vectors for semantic search. Implementations
// must be safe for concurrent use.
type Embedder interface {
	// Name identifies the embedding model, used as part of the index
	// cache key so a model change invalidates stale vectors.
	Name() string
	// Dimension is the length of vectors this embedder produces.
	Dimension() int
	// MaxBatchSize caps how many texts may be embedded in one EmbedBatch
	// call.
	MaxBatchSize() int
	// Embed embeds a single text, typically a search query.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds multiple texts in as few round-trips as
	// MaxBatchSize allows.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
