// Package planner implements the Planner pipeline: candidate retrieval
// via semantic search, an intelligent heuristic fallback informed by run
// history, a narrower regex-driven heuristic fallback, and finally an LLM
// ReAct step, in that order of preference.
package planner

import "context"

// Message is one turn in an LLM completion request.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is what the Planner sends to an LLM provider for the
// ReAct step.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is what an LLM provider returns.
type CompletionResponse struct {
	Text string
}

// LLM is the completion provider the Planner's ReAct step and the
// Argument Inferencer's repair step depend on. Concrete implementations
// live in internal/llmprovider.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
