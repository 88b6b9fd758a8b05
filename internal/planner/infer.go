package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

// InferArgs builds a best-effort argument object for tool from origArgs
// (the planner's rejected or missing args, possibly a bare string), task,
// and the run's history so far. It first tries a deterministic shortcut
// for a handful of well-known tool names, matching the exact argument
// shape their schema expects without ever calling an LLM. If no shortcut
// matches, it falls back to asking llm to produce arguments, constrained
// to the schema's declared keys.
func InferArgs(ctx context.Context, llm LLM, tool toolspec.Tool, task string, origArgs json.RawMessage, history []string) (json.RawMessage, error) {
	if args, ok := deterministicArgs(tool.Name(), task, origArgs, history); ok {
		return args, nil
	}
	if llm == nil {
		return json.RawMessage("{}"), nil
	}
	return llmInferArgs(ctx, llm, tool, task)
}

// bareString reports whether raw decodes as a plain JSON string (the
// shape spec.md §4.3 calls out: "if args is a bare string").
func bareString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// summarizeTextLimit is spec.md §4.3's 4000-character cap on the joined
// history passed to the summarize_text shortcut.
const summarizeTextLimit = 4000

func deterministicArgs(toolName, task string, origArgs json.RawMessage, history []string) (json.RawMessage, bool) {
	source := task
	if s, ok := bareString(origArgs); ok && strings.TrimSpace(s) != "" {
		source = s
	}

	switch toolName {
	case "calculator":
		expr, ok := sanitizeMathExpr(source)
		if !ok {
			return nil, false
		}
		raw, _ := json.Marshal(map[string]string{"expression": expr})
		return raw, true
	case "web_search":
		raw, _ := json.Marshal(map[string]any{"query": strings.TrimSpace(source), "maxResults": 5})
		return raw, true
	case "summarize_text":
		text := strings.Join(history, "\n")
		if len(text) > summarizeTextLimit {
			text = text[:summarizeTextLimit]
		}
		raw, _ := json.Marshal(map[string]string{
			"text":        text,
			"instruction": "Summarize succinctly with key bullets",
		})
		return raw, true
	default:
		return nil, false
	}
}

func llmInferArgs(ctx context.Context, llm LLM, tool toolspec.Tool, task string) (json.RawMessage, error) {
	keys := tool.Schema().Keys()
	prompt := fmt.Sprintf(
		"Task: %s\n\nProduce a JSON object with exactly these keys: %s\nRespond with only the JSON object, no prose.\nTool: %s\nTool description: %s\n",
		task, strings.Join(keys, ", "), tool.Name(), tool.Description(),
	)

	resp, err := llm.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: infer args: %w", err)
	}

	raw := json.RawMessage(extractJSONObject(resp.Text))
	if len(raw) == 0 {
		return nil, fmt.Errorf("planner: infer args: no JSON object in LLM response")
	}
	if _, err := tool.Schema().ValidateRaw(raw); err != nil {
		return nil, fmt.Errorf("planner: inferred args failed schema validation: %w", err)
	}
	return raw, nil
}

// extractJSONObject returns the first balanced {...} substring of s,
// tolerating surrounding prose or markdown code fences the LLM may add
// despite being asked not to.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
