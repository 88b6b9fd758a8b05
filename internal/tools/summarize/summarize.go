// Package summarize implements a text summarization tool backed by an
// LLM completion call, following the same request-building shape the
// teacher's providers use for a single-turn completion.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atlasrun/agentcore/internal/planner"
	"github.com/atlasrun/agentcore/internal/toolspec"
)

const schemaJSON = `{
  "type": "object",
  "properties": {
    "text": {"type": "string", "description": "the text to summarize"}
  },
  "required": ["text"]
}`

// Args is the summarize tool's argument shape.
type Args struct {
	Text string `json:"text"`
}

// Tool summarizes text using an injected LLM completion provider.
type Tool struct {
	toolspec.Base
	llm planner.LLM
}

// New constructs the summarize tool against llm.
func New(llm planner.LLM) (*Tool, error) {
	schema, err := toolspec.NewSchema(json.RawMessage(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("summarize: compile schema: %w", err)
	}
	return &Tool{
		Base: toolspec.Base{
			ToolName:        "summarize_text",
			ToolDescription: "Produce a short summary of a longer piece of text.",
			ToolSchema:      schema,
			ToolCategories:  []string{"text"},
			ToolPriority:    50,
		},
		llm: llm,
	}, nil
}

// Run summarizes args.Text in a few sentences.
func (t *Tool) Run(ctx context.Context, raw json.RawMessage) (any, error) {
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("summarize: decode args: %w", err)
	}

	resp, err := t.llm.Complete(ctx, planner.CompletionRequest{
		Messages: []planner.Message{
			{Role: "user", Content: "Summarize the following text in 2-3 sentences:\n\n" + args.Text},
		},
		MaxTokens:   256,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: completion: %w", err)
	}
	return resp.Text, nil
}
