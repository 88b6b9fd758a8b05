package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/atlasrun/agentcore/internal/action"
	"github.com/atlasrun/agentcore/internal/runstore"
)

var (
	stripNonMathRe   = regexp.MustCompile(`[^-+*/^().\d\s]`)
	decimalProtectRe = regexp.MustCompile(`(\d)\.(\d)`)
	digitOpDigitRe   = regexp.MustCompile(`\d\s*[+\-*/^]\s*\d`)
	vsRe             = regexp.MustCompile(`(?i)\bvs\b|\bversus\b`)
	summaryAskRe     = regexp.MustCompile(`(?i)\b(summarize|summary|brief|bullets?)\b`)
	infoGatherRe     = regexp.MustCompile(`(?i)\b(find|search|who is|current|latest|version)\b`)
	genericSearchRe  = regexp.MustCompile(`(?i)\b(search|find|look up|google|web|current|latest|version)\b`)
	fileReadRe       = regexp.MustCompile(`(?i)\b(read|open|load)\s+(the\s+)?file\b`)
)

// sanitizeMathExpr reduces s to a bare arithmetic expression: keep only
// digits, the operators +-*/^, parentheses and whitespace, preserve a
// decimal point only when it sits between two digits (a stray "." from
// prose like "Go vs. Rust" is dropped), and collapse whitespace runs. ok
// is false unless the result still contains a number-operator-number
// pattern worth evaluating.
func sanitizeMathExpr(s string) (cleaned string, ok bool) {
	cleaned = stripNonMathRe.ReplaceAllString(s, "")
	cleaned = decimalProtectRe.ReplaceAllString(cleaned, "${1}\x00${2}")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", ".")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if !digitOpDigitRe.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// toolInvocation is one UseTool+Observation pair reconstructed from a
// run's step log.
type toolInvocation struct {
	Tool    string
	Args    json.RawMessage
	Result  json.RawMessage
	IsError bool
}

func toolInvocations(run *runstore.Run) []toolInvocation {
	var out []toolInvocation
	var pending *toolInvocation
	for _, s := range run.Steps {
		switch s.Kind {
		case runstore.StepTool:
			var d runstore.ToolStepData
			if err := json.Unmarshal(s.Data, &d); err == nil {
				pending = &toolInvocation{Tool: d.Tool, Args: d.Args}
			}
		case runstore.StepObservation:
			if pending == nil {
				continue
			}
			var d runstore.ObservationData
			if err := json.Unmarshal(s.Data, &d); err == nil && !d.FromHuman {
				pending.Result = d.Result
				pending.IsError = d.IsError
				out = append(out, *pending)
			}
			pending = nil
		}
	}
	return out
}

// searchResultHit mirrors the web_search tool's result shape, decoded
// structurally here rather than by importing the tool package (which
// would create an import cycle through summarize_text's LLM dependency).
type searchResultHit struct {
	Snippet string `json:"snippet"`
}

// IntelligentFallback implements spec.md §4.2 step 2: task/history-aware
// rules that run before the narrower regex heuristics, informed by
// completed tool invocations rather than task text alone.
func IntelligentFallback(task string, run *runstore.Run, available map[string]bool) (action.Action, bool) {
	invocations := toolInvocations(run)

	var webSnippets []string
	webSearchCount := 0
	var lastSummary string
	summarizeDone := false

	for _, inv := range invocations {
		switch inv.Tool {
		case "web_search":
			webSearchCount++
			if inv.IsError {
				continue
			}
			var hits []searchResultHit
			if err := json.Unmarshal(inv.Result, &hits); err == nil {
				for _, h := range hits {
					if h.Snippet != "" {
						webSnippets = append(webSnippets, h.Snippet)
					}
				}
			}
		case "summarize_text":
			if inv.IsError {
				continue
			}
			var out string
			if err := json.Unmarshal(inv.Result, &out); err == nil && strings.TrimSpace(out) != "" {
				summarizeDone = true
				lastSummary = out
			}
		}
	}

	if summarizeDone {
		return action.FinalAnswer(lastSummary), true
	}

	concatenated := strings.Join(webSnippets, " ")

	if summaryAskRe.MatchString(task) && len(webSnippets) > 0 && available["summarize_text"] {
		args, _ := json.Marshal(map[string]string{"text": concatenated, "instruction": task})
		return action.UseTool("summarize_text", args), true
	}

	if webSearchCount >= 3 && len(webSnippets) > 0 {
		if available["summarize_text"] {
			args, _ := json.Marshal(map[string]string{"text": concatenated, "instruction": task})
			return action.UseTool("summarize_text", args), true
		}
		snippet := concatenated
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		return action.FinalAnswer(snippet), true
	}

	if infoGatherRe.MatchString(task) && webSearchCount < 2 && available["web_search"] {
		args, _ := json.Marshal(map[string]any{"query": task, "maxResults": 5})
		return action.UseTool("web_search", args), true
	}

	return action.Action{}, false
}

// HeuristicFallback implements spec.md §4.2 step 3: narrow regex-driven
// rules that need no LLM and no semantic search, tried only after the
// intelligent fallback has nothing to offer.
func HeuristicFallback(task string, run *runstore.Run, available map[string]bool) (action.Action, bool) {
	invocations := toolInvocations(run)

	if a, ok := comparisonHeuristic(task, invocations, available); ok {
		return a, true
	}
	if a, ok := singleMathHeuristic(task, invocations, available); ok {
		return a, true
	}
	if available["web_search"] && genericSearchRe.MatchString(task) {
		args, _ := json.Marshal(map[string]string{"query": task})
		return action.UseTool("web_search", args), true
	}
	if fileReadRe.MatchString(task) {
		return action.AskHuman("What is the file path?"), true
	}
	return action.Action{}, false
}

// comparisonHeuristic handles "X vs Y": each side is sanitized to an
// arithmetic expression and, once both have been evaluated via
// calculator, answers the comparison directly.
func comparisonHeuristic(task string, invocations []toolInvocation, available map[string]bool) (action.Action, bool) {
	if !available["calculator"] {
		return action.Action{}, false
	}
	loc := vsRe.FindStringIndex(task)
	if loc == nil {
		return action.Action{}, false
	}
	left := strings.TrimSpace(task[:loc[0]])
	right := strings.TrimSpace(task[loc[1]:])

	leftExpr, leftOK := sanitizeMathExpr(left)
	rightExpr, rightOK := sanitizeMathExpr(right)
	if !leftOK || !rightOK {
		return action.Action{}, false
	}

	leftVal, leftDone := calculatorValue(invocations, leftExpr)
	if !leftDone {
		args, _ := json.Marshal(map[string]string{"expression": leftExpr})
		return action.UseTool("calculator", args), true
	}
	rightVal, rightDone := calculatorValue(invocations, rightExpr)
	if !rightDone {
		args, _ := json.Marshal(map[string]string{"expression": rightExpr})
		return action.UseTool("calculator", args), true
	}

	rel := "equal to"
	switch {
	case leftVal < rightVal:
		rel = "less than"
	case leftVal > rightVal:
		rel = "greater than"
	}
	answer := fmt.Sprintf("L = %s vs R = %s ⇒ L is %s R", formatNumber(leftVal), formatNumber(rightVal), rel)
	return action.FinalAnswer(answer), true
}

// singleMathHeuristic handles a bare arithmetic task, skipping it if the
// exact sanitized expression has already been sent to calculator.
func singleMathHeuristic(task string, invocations []toolInvocation, available map[string]bool) (action.Action, bool) {
	if !available["calculator"] {
		return action.Action{}, false
	}
	expr, ok := sanitizeMathExpr(task)
	if !ok {
		return action.Action{}, false
	}
	for _, inv := range invocations {
		if calculatorArgsMatch(inv, expr) {
			return action.Action{}, false
		}
	}
	args, _ := json.Marshal(map[string]string{"expression": expr})
	return action.UseTool("calculator", args), true
}

func calculatorArgsMatch(inv toolInvocation, expr string) bool {
	if inv.Tool != "calculator" {
		return false
	}
	var args struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(inv.Args, &args); err != nil {
		return false
	}
	return args.Expression == expr
}

// calculatorValue finds the numeric result of the most recent successful
// calculator invocation whose expression argument equals expr exactly.
func calculatorValue(invocations []toolInvocation, expr string) (float64, bool) {
	for i := len(invocations) - 1; i >= 0; i-- {
		inv := invocations[i]
		if inv.IsError || !calculatorArgsMatch(inv, expr) {
			continue
		}
		if v, ok := parseNumericResult(inv.Result); ok {
			return v, true
		}
	}
	return 0, false
}

func parseNumericResult(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
