// Google wraps google.golang.org/genai, trimmed from the teacher's
// streaming GoogleProvider (internal/agent/providers/google.go) to a
// single non-streaming GenerateContent call, matching the non-streaming
// shape this package's Anthropic adapter already uses: the planner only
// ever needs one finished response per step.
package llmprovider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/atlasrun/agentcore/internal/planner"
)

// GoogleConfig configures the Gemini completion provider.
type GoogleConfig struct {
	APIKey       string
	DefaultModel string
}

// Google is a planner.LLM backed by the Gemini API.
type Google struct {
	client       *genai.Client
	defaultModel string
}

// NewGoogle constructs a Google provider. APIKey is required.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmprovider: google API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llmprovider: google client: %w", err)
	}

	return &Google{client: client, defaultModel: cfg.DefaultModel}, nil
}

// Complete sends req as a single Gemini GenerateContent call and returns
// the response's concatenated text.
func (g *Google) Complete(ctx context.Context, req planner.CompletionRequest) (planner.CompletionResponse, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, contents, config)
	if err != nil {
		return planner.CompletionResponse{}, fmt.Errorf("llmprovider: google completion: %w", err)
	}
	return planner.CompletionResponse{Text: resp.Text()}, nil
}
