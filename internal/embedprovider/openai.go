// Package embedprovider adapts third-party embedding SDKs to the
// registry.Embedder interface. OpenAI wraps sashabaranov/go-openai,
// following the teacher's embeddings/openai provider shape directly.
package embedprovider

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string // text-embedding-3-small or text-embedding-3-large
}

// OpenAI is a registry.Embedder backed by OpenAI's embeddings endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs an OpenAI embedding provider. APIKey is required;
// Model defaults to text-embedding-3-small.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedprovider: OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Name returns the provider identifier, used as part of the embedding
// index's cache key.
func (p *OpenAI) Name() string {
	return "openai/" + p.model
}

// Dimension returns the embedding width for the configured model.
func (p *OpenAI) Dimension() int {
	switch p.model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}

// MaxBatchSize returns the maximum number of texts OpenAI accepts per
// embeddings request.
func (p *OpenAI) MaxBatchSize() int {
	return 2048
}

// Embed embeds a single text.
func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedprovider: no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch embeds multiple texts in one request.
func (p *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedprovider: create embeddings: %w", err)
	}

	results := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		results[d.Index] = d.Embedding
	}
	return results, nil
}
