// Package toolspec defines the Tool contract consumed by the registry,
// planner, and reliability layers. A Tool is an immutable descriptor plus
// an executable contract: run(args) -> result, which may fail.
package toolspec

import (
	"context"
	"encoding/json"
)

// RetryPolicy configures per-tool retry behavior for the reliability
// wrapper. Zero values are replaced by DefaultRetryPolicy.
type RetryPolicy struct {
	Retries     int
	BaseDelayMs int
}

// DefaultRetryPolicy returns the spec default: 2 retries, 400ms base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 2, BaseDelayMs: 400}
}

// BreakerPolicy configures the per-tool circuit breaker. Zero values are
// replaced by DefaultBreakerPolicy.
type BreakerPolicy struct {
	FailureThreshold int
	CooldownMs       int
}

// DefaultBreakerPolicy returns the spec default: trip after 3 failures,
// cool down for 30s.
func DefaultBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{FailureThreshold: 3, CooldownMs: 30000}
}

// Tool is the uniform capability every catalog entry resolves to once
// loaded. Implementations must be safe for concurrent Run calls.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description is the natural-language text embedded and matched
	// against during semantic search.
	Description() string

	// Schema validates and introspects the tool's argument shape.
	Schema() *Schema

	// Sensitive marks a tool as requiring human approval under the
	// "sensitive" approval mode.
	Sensitive() bool

	// Retry returns the tool's retry policy.
	Retry() RetryPolicy

	// Breaker returns the tool's circuit breaker policy.
	Breaker() BreakerPolicy

	// Categories groups the tool for catalog listing and idle-sweep
	// exemptions (category "core" is never evicted on idle timeout).
	Categories() []string

	// Priority is a 0-100 ranking hint copied onto the catalog entry;
	// search ranking does not use it and breaks ties by name.
	Priority() int

	// Run executes the tool against validated arguments.
	Run(ctx context.Context, args json.RawMessage) (any, error)
}

// Base implements the descriptor portion of Tool. Concrete tools embed it
// and supply Run.
type Base struct {
	ToolName        string
	ToolDescription string
	ToolSchema      *Schema
	ToolSensitive   bool
	ToolRetry       RetryPolicy
	ToolBreaker     BreakerPolicy
	ToolCategories  []string
	ToolPriority    int
}

// Name returns the tool's unique identifier.
func (b Base) Name() string { return b.ToolName }

// Description returns the tool's natural-language description.
func (b Base) Description() string { return b.ToolDescription }

// Schema returns the tool's argument schema.
func (b Base) Schema() *Schema { return b.ToolSchema }

// Sensitive reports whether the tool requires approval in sensitive mode.
func (b Base) Sensitive() bool { return b.ToolSensitive }

// Retry returns the tool's retry policy, defaulted if unset.
func (b Base) Retry() RetryPolicy {
	if b.ToolRetry.Retries == 0 && b.ToolRetry.BaseDelayMs == 0 {
		return DefaultRetryPolicy()
	}
	return b.ToolRetry
}

// Breaker returns the tool's circuit breaker policy, defaulted if unset.
func (b Base) Breaker() BreakerPolicy {
	if b.ToolBreaker.FailureThreshold == 0 && b.ToolBreaker.CooldownMs == 0 {
		return DefaultBreakerPolicy()
	}
	return b.ToolBreaker
}

// Categories returns the tool's category tags.
func (b Base) Categories() []string { return b.ToolCategories }

// Priority returns the tool's 0-100 ranking hint.
func (b Base) Priority() int { return b.ToolPriority }
