// Package calculator implements a basic arithmetic tool used both as a
// default catalog entry and as the Planner's deterministic heuristic
// target for simple math tasks.
package calculator

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

const schemaJSON = `{
  "type": "object",
  "properties": {
    "expression": {"type": "string", "description": "an arithmetic expression, e.g. (2+3)*4"}
  },
  "required": ["expression"]
}`

// Args is the calculator's argument shape.
type Args struct {
	Expression string `json:"expression"`
}

// Tool evaluates arithmetic expressions using Go's own expression parser
// restricted to numeric literals and +-*/ operators, so it never risks
// executing arbitrary code the way a naive eval would.
type Tool struct {
	toolspec.Base
}

// New constructs the calculator tool, compiling its argument schema.
func New() (*Tool, error) {
	schema, err := toolspec.NewSchema(json.RawMessage(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("calculator: compile schema: %w", err)
	}
	return &Tool{Base: toolspec.Base{
		ToolName:        "calculator",
		ToolDescription: "Evaluate arithmetic expressions involving +, -, *, /, and parentheses.",
		ToolSchema:      schema,
		ToolCategories:  []string{"core", "math"},
		ToolPriority:    80,
	}}, nil
}

// Run evaluates args.Expression and returns its numeric result.
func (t *Tool) Run(ctx context.Context, raw json.RawMessage) (any, error) {
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("calculator: decode args: %w", err)
	}

	expr, err := parser.ParseExpr(args.Expression)
	if err != nil {
		return nil, fmt.Errorf("calculator: invalid expression: %w", err)
	}

	val, err := eval(expr)
	if err != nil {
		return nil, err
	}
	return val, nil
}

func eval(expr ast.Expr) (float64, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return 0, fmt.Errorf("calculator: unsupported literal %q", e.Value)
		}
		var f float64
		if _, err := fmt.Sscanf(e.Value, "%g", &f); err != nil {
			return 0, fmt.Errorf("calculator: parse number %q: %w", e.Value, err)
		}
		return f, nil

	case *ast.ParenExpr:
		return eval(e.X)

	case *ast.UnaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		default:
			return 0, fmt.Errorf("calculator: unsupported unary operator %s", e.Op)
		}

	case *ast.BinaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return 0, err
		}
		y, err := eval(e.Y)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, fmt.Errorf("calculator: division by zero")
			}
			return x / y, nil
		default:
			return 0, fmt.Errorf("calculator: unsupported operator %s", e.Op)
		}

	default:
		return 0, fmt.Errorf("calculator: unsupported expression")
	}
}
