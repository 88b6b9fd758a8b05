package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/atlasrun/agentcore/internal/action"
	"github.com/atlasrun/agentcore/internal/registry"
	"github.com/atlasrun/agentcore/internal/runstore"
	"github.com/atlasrun/agentcore/internal/toolspec"
)

func TestBuildSearchQueryTruncatesAndKeepsLastThreeLines(t *testing.T) {
	history := []string{"line1", "line2", "line3", "line4", "line5"}
	q := buildSearchQuery("do the task", history)
	if !strings.HasPrefix(q, "do the task line3 line4 line5") {
		t.Fatalf("query = %q, want task followed by only the last 3 history lines", q)
	}

	longTask := strings.Repeat("x", searchQueryLimit+100)
	q = buildSearchQuery(longTask, nil)
	if len(q) != searchQueryLimit {
		t.Fatalf("len(query) = %d, want %d", len(q), searchQueryLimit)
	}
}

func TestWithKEnforcesPositiveOverride(t *testing.T) {
	p := New(nil, nil)
	if p.k != 8 {
		t.Fatalf("default k = %d, want 8", p.k)
	}
	p2 := p.WithK(20)
	if p2.k != 20 {
		t.Fatalf("k after WithK(20) = %d, want 20", p2.k)
	}
	p3 := p.WithK(0)
	if p3.k != 8 {
		t.Fatalf("k after WithK(0) = %d, want unchanged 8", p3.k)
	}
}

type stubLLM struct {
	text string
	err  error
}

func (s stubLLM) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if s.err != nil {
		return CompletionResponse{}, s.err
	}
	return CompletionResponse{Text: s.text}, nil
}

func newNoEmbedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(registry.DefaultConfig(), nil, t.TempDir()+"/index.json", nil, nil)
}

func TestDecideDegradesToAskHumanWhenLLMFails(t *testing.T) {
	reg := newNoEmbedRegistry(t)
	p := New(reg, stubLLM{err: context.DeadlineExceeded})
	run := &runstore.Run{Task: "do something totally unprecedented"}

	a, err := p.Decide(context.Background(), run.Task, run)
	if err != nil {
		t.Fatalf("Decide must never return an error, got %v", err)
	}
	if a.Kind != action.KindAskHuman {
		t.Fatalf("action = %+v, want ask_human fallback", a)
	}
}

func TestDecideUsesLLMReactStepWhenHeuristicsHaveNoOpinion(t *testing.T) {
	reg := newNoEmbedRegistry(t)
	p := New(reg, stubLLM{text: `{"kind":"final_answer","answer":"42","rationale":"computed"}`})
	run := &runstore.Run{Task: "what is the meaning of life"}

	a, err := p.Decide(context.Background(), run.Task, run)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if a.Kind != action.KindFinalAnswer || a.Answer != "42" {
		t.Fatalf("action = %+v, want final_answer 42", a)
	}
}

func TestDecidePrefersHeuristicOverLLM(t *testing.T) {
	reg := newNoEmbedRegistry(t)
	if err := reg.Register(registry.Entry{
		Name:        "calculator",
		Description: "evaluates arithmetic expressions",
		Categories:  []string{"core"},
		Load:        func() (toolspec.Tool, error) { return nil, nil },
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := New(reg, stubLLM{text: `{"kind":"final_answer","answer":"should not be used"}`})
	run := &runstore.Run{Task: "what is 2+2"}

	a, err := p.Decide(context.Background(), run.Task, run)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if a.Kind != action.KindUseTool || a.Tool != "calculator" {
		t.Fatalf("action = %+v, want calculator use_tool heuristic chosen over the LLM response", a)
	}
}

func TestReactStepRejectsHallucinatedToolName(t *testing.T) {
	reg := newNoEmbedRegistry(t)
	p := New(reg, stubLLM{text: `{"kind":"use_tool","tool":"does_not_exist","args":{},"rationale":"guessing"}`})

	_, err := p.reactStep(context.Background(), "do something totally unprecedented", nil, nil, nil)
	if err == nil {
		t.Fatalf("reactStep() err = nil, want an error for a tool name absent from the registry")
	}
}

func TestDecideDegradesToAskHumanWhenLLMHallucinatesToolName(t *testing.T) {
	reg := newNoEmbedRegistry(t)
	p := New(reg, stubLLM{text: `{"kind":"use_tool","tool":"does_not_exist","args":{},"rationale":"guessing"}`})
	run := &runstore.Run{Task: "do something totally unprecedented"}

	a, err := p.Decide(context.Background(), run.Task, run)
	if err != nil {
		t.Fatalf("Decide must never return an error, got %v", err)
	}
	if a.Kind != action.KindAskHuman {
		t.Fatalf("action = %+v, want ask_human fallback when the LLM names an unknown tool", a)
	}
}

func TestReactStepAcceptsRegisteredToolName(t *testing.T) {
	reg := newNoEmbedRegistry(t)
	if err := reg.Register(registry.Entry{
		Name:        "web_search",
		Description: "searches the web",
		Load:        func() (toolspec.Tool, error) { return nil, nil },
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := New(reg, stubLLM{text: `{"kind":"use_tool","tool":"web_search","args":{"query":"go"},"rationale":"looking it up"}`})

	a, err := p.reactStep(context.Background(), "look something up", nil, nil, nil)
	if err != nil {
		t.Fatalf("reactStep: %v", err)
	}
	if a.Kind != action.KindUseTool || a.Tool != "web_search" {
		t.Fatalf("action = %+v, want use_tool web_search", a)
	}
}
