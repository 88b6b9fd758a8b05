package planner

import (
	"encoding/json"
	"testing"

	"github.com/atlasrun/agentcore/internal/action"
	"github.com/atlasrun/agentcore/internal/runstore"
)

func TestSanitizeMathExpr(t *testing.T) {
	cases := []struct {
		in       string
		wantOK   bool
		wantExpr string
	}{
		{"what is 2+2", true, "2+2"},
		{"3.14 * 2", true, "3.14 * 2"},
		{"Go vs. Rust performance", false, ""},
		{"no numbers here", false, ""},
		{"(12-4)/2", true, "(12-4)/2"},
	}
	for _, c := range cases {
		expr, ok := sanitizeMathExpr(c.in)
		if ok != c.wantOK {
			t.Errorf("sanitizeMathExpr(%q) ok = %v, want %v (expr=%q)", c.in, ok, c.wantOK, expr)
			continue
		}
		if ok && expr != c.wantExpr {
			t.Errorf("sanitizeMathExpr(%q) = %q, want %q", c.in, expr, c.wantExpr)
		}
	}
}

func toolStep(tool string, args json.RawMessage) runstore.Step {
	data, _ := json.Marshal(runstore.ToolStepData{Tool: tool, Args: args})
	return runstore.Step{Kind: runstore.StepTool, Data: data}
}

func obsStep(result json.RawMessage, isErr bool) runstore.Step {
	data, _ := json.Marshal(runstore.ObservationData{Result: result, IsError: isErr, Error: errString(isErr)})
	return runstore.Step{Kind: runstore.StepObservation, Data: data}
}

func errString(isErr bool) string {
	if isErr {
		return "boom"
	}
	return ""
}

func TestHeuristicFallbackSingleMath(t *testing.T) {
	run := &runstore.Run{Task: "2+2"}
	available := map[string]bool{"calculator": true}

	a, ok := HeuristicFallback("what is 2+2", run, available)
	if !ok {
		t.Fatal("expected a heuristic action")
	}
	if a.Kind != action.KindUseTool || a.Tool != "calculator" {
		t.Fatalf("action = %+v, want calculator use_tool", a)
	}

	var args struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(a.Args, &args); err != nil {
		t.Fatalf("unmarshal args: %v", err)
	}
	if args.Expression != "2+2" {
		t.Fatalf("expression = %q, want 2+2", args.Expression)
	}
}

func TestHeuristicFallbackSkipsRepeatedCalculatorCall(t *testing.T) {
	exprArgs, _ := json.Marshal(map[string]string{"expression": "2+2"})
	run := &runstore.Run{
		Steps: []runstore.Step{
			toolStep("calculator", exprArgs),
			obsStep(json.RawMessage(`4`), false),
		},
	}
	available := map[string]bool{"calculator": true}

	_, ok := HeuristicFallback("what is 2+2", run, available)
	if ok {
		t.Fatal("expected no action: the exact calculator call was already made")
	}
}

func TestHeuristicFallbackComparisonEvaluatesBothSidesThenAnswers(t *testing.T) {
	available := map[string]bool{"calculator": true}
	run := &runstore.Run{}

	a, ok := HeuristicFallback("2+2 vs 3+3", run, available)
	if !ok || a.Kind != action.KindUseTool {
		t.Fatalf("expected first calculator call, got %+v, ok=%v", a, ok)
	}
	var args struct {
		Expression string `json:"expression"`
	}
	json.Unmarshal(a.Args, &args)
	if args.Expression != "2+2" {
		t.Fatalf("expected left side 2+2 first, got %q", args.Expression)
	}

	leftArgs, _ := json.Marshal(map[string]string{"expression": "2+2"})
	run.Steps = append(run.Steps, toolStep("calculator", leftArgs), obsStep(json.RawMessage(`4`), false))

	a, ok = HeuristicFallback("2+2 vs 3+3", run, available)
	if !ok || a.Kind != action.KindUseTool {
		t.Fatalf("expected second calculator call, got %+v, ok=%v", a, ok)
	}
	json.Unmarshal(a.Args, &args)
	if args.Expression != "3+3" {
		t.Fatalf("expected right side 3+3 next, got %q", args.Expression)
	}

	rightArgs, _ := json.Marshal(map[string]string{"expression": "3+3"})
	run.Steps = append(run.Steps, toolStep("calculator", rightArgs), obsStep(json.RawMessage(`6`), false))

	a, ok = HeuristicFallback("2+2 vs 3+3", run, available)
	if !ok || a.Kind != action.KindFinalAnswer {
		t.Fatalf("expected a final comparison answer, got %+v, ok=%v", a, ok)
	}
	if a.Answer == "" {
		t.Fatal("expected a non-empty comparison answer")
	}
}

func TestHeuristicFallbackGenericWebSearch(t *testing.T) {
	run := &runstore.Run{}
	available := map[string]bool{"web_search": true}

	a, ok := HeuristicFallback("please look up the weather", run, available)
	if !ok || a.Kind != action.KindUseTool || a.Tool != "web_search" {
		t.Fatalf("action = %+v, ok=%v, want web_search use_tool", a, ok)
	}
}

func TestHeuristicFallbackFileReadAsksHuman(t *testing.T) {
	run := &runstore.Run{}
	a, ok := HeuristicFallback("please read the file and tell me what's in it", run, map[string]bool{})
	if !ok || a.Kind != action.KindAskHuman {
		t.Fatalf("action = %+v, ok=%v, want ask_human", a, ok)
	}
}

func TestIntelligentFallbackReturnsFinalAnswerAfterSummarize(t *testing.T) {
	summaryJSON, _ := json.Marshal("a tidy three sentence summary")
	run := &runstore.Run{
		Steps: []runstore.Step{
			toolStep("summarize_text", json.RawMessage(`{"text":"..."}`)),
			obsStep(summaryJSON, false),
		},
	}

	a, ok := IntelligentFallback("summarize this", run, map[string]bool{"summarize_text": true})
	if !ok || a.Kind != action.KindFinalAnswer {
		t.Fatalf("action = %+v, ok=%v, want final_answer", a, ok)
	}
	if a.Answer != "a tidy three sentence summary" {
		t.Fatalf("answer = %q, want the summarize_text output", a.Answer)
	}
}

func TestIntelligentFallbackSummarizesAfterThreeWebSearches(t *testing.T) {
	hit, _ := json.Marshal([]searchResultHit{{Snippet: "some relevant snippet"}})
	var steps []runstore.Step
	for i := 0; i < 3; i++ {
		steps = append(steps, toolStep("web_search", json.RawMessage(`{"query":"x"}`)), obsStep(hit, false))
	}
	run := &runstore.Run{Steps: steps}

	a, ok := IntelligentFallback("find out about x", run, map[string]bool{"summarize_text": true, "web_search": true})
	if !ok || a.Kind != action.KindUseTool || a.Tool != "summarize_text" {
		t.Fatalf("action = %+v, ok=%v, want summarize_text use_tool", a, ok)
	}
}

func TestIntelligentFallbackRequestsWebSearchForInfoGatheringTask(t *testing.T) {
	run := &runstore.Run{}
	a, ok := IntelligentFallback("who is the current CEO of Acme", run, map[string]bool{"web_search": true})
	if !ok || a.Kind != action.KindUseTool || a.Tool != "web_search" {
		t.Fatalf("action = %+v, ok=%v, want web_search use_tool", a, ok)
	}
}
