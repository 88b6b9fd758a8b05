package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atlasrun/agentcore/internal/action"
	"github.com/atlasrun/agentcore/internal/registry"
	"github.com/atlasrun/agentcore/internal/runstore"
)

// Planner decides the next Action given a task and its run history so
// far. It runs four stages in order, taking the first that produces a
// decision: candidate retrieval (semantic search over the tool
// registry), an intelligent fallback informed by the run's completed
// tool invocations,
// a narrow regex-driven heuristic fallback, and finally an LLM ReAct
// step.
type Planner struct {
	reg *registry.Registry
	llm LLM
	k   int
}

// LLM returns the planner's completion provider, or nil if none was
// configured. The agent controller uses this to drive the Argument
// Inferencer's LLM-based repair step with the same provider the ReAct
// step uses, rather than wiring a second LLM handle end to end.
func (p *Planner) LLM() LLM { return p.llm }

// New returns a Planner backed by reg for tool discovery and llm for the
// ReAct step (and argument inference repair). llm may be nil, in which
// case the pipeline never falls through past the heuristic stages and
// Decide returns an AskHuman action if none of them produce a decision.
func New(reg *registry.Registry, llm LLM) *Planner {
	return &Planner{reg: reg, llm: llm, k: 8}
}

// WithK returns a copy of p whose candidate retrieval stage asks the
// registry for max(k, 15) results, per spec.md §4.2 step 1. k<=0 leaves
// the planner's default (spec.md §5's TopK=8) in place.
func (p *Planner) WithK(k int) *Planner {
	cp := *p
	if k > 0 {
		cp.k = k
	}
	return &cp
}

// fallbackGuidance is the spec's literal message for when the LLM step
// fails to parse or is unavailable and no heuristic has anything to
// propose: the planner asks the human rather than erroring the run out.
const fallbackGuidance = "I need more specific guidance about how to proceed."

// Decide runs the four-stage pipeline for task given history, returning
// the next Action. It never re-proposes a UseTool action byte-identical
// to one already present in history's tool steps. Decide itself never
// fails: when the LLM step is unavailable or unparseable, it degrades to
// an AskHuman action rather than propagating a planner error out of the
// run loop (spec.md §7's PlannerParseError is "recovered by fallback or
// escalated to AskHuman", never a fatal run error).
func (p *Planner) Decide(ctx context.Context, task string, run *runstore.Run) (action.Action, error) {
	a, err := p.decide(ctx, task, run)
	if err != nil {
		return action.AskHuman(fallbackGuidance), nil
	}
	return a, nil
}

func (p *Planner) decide(ctx context.Context, task string, run *runstore.Run) (action.Action, error) {
	tried := triedActions(run)
	history := runstore.BuildHistory(run).Lines

	candidates, err := p.rankedCandidates(ctx, task, history)
	if err == nil && len(candidates) > 0 {
		if a, ok := p.fromCandidates(candidates, tried); ok {
			return a, nil
		}
	}

	available := p.availableSet(ctx)

	if a, ok := IntelligentFallback(task, run, available); ok {
		if !isRepeat(a, tried) {
			return a, nil
		}
	}

	if a, ok := HeuristicFallback(task, run, available); ok {
		if !isRepeat(a, tried) {
			return a, nil
		}
	}

	if p.llm == nil {
		return action.Action{}, fmt.Errorf("planner: no candidate action and no LLM configured")
	}

	act, err := p.reactStep(ctx, task, history, candidates, tried)
	if err != nil {
		// spec.md §4.2 step 4: a failed LLM step retries the intelligent
		// fallback once more before the caller degrades to AskHuman.
		if fb, ok := IntelligentFallback(task, run, available); ok && !isRepeat(fb, tried) {
			return fb, nil
		}
		return action.Action{}, err
	}
	return act, nil
}

// searchQueryLimit is spec.md §4.2 step 1's 500-character cap on the
// candidate-retrieval query.
const searchQueryLimit = 500

func (p *Planner) rankedCandidates(ctx context.Context, task string, history []string) ([]string, error) {
	query := buildSearchQuery(task, history)
	k := p.k
	if k < 15 {
		k = 15
	}
	hits, err := p.reg.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
	}
	return names, nil
}

// buildSearchQuery concatenates task with up to the last 3 history lines,
// truncated to searchQueryLimit characters (spec.md §4.2 step 1).
func buildSearchQuery(task string, history []string) string {
	last := history
	if len(last) > 3 {
		last = last[len(last)-3:]
	}
	q := task
	if len(last) > 0 {
		q += " " + strings.Join(last, " ")
	}
	if len(q) > searchQueryLimit {
		q = q[:searchQueryLimit]
	}
	return q
}

// fromCandidates picks the first candidate not already tried with the
// same inferred arguments, returning a UseTool action for it. Argument
// inference happens inside Decide's caller (the agent controller) once a
// tool is chosen here only by name with empty args; InferArgs runs
// downstream once the live Tool is loaded. This keeps the Planner free
// of a registry-load round-trip for candidates it ultimately rejects.
func (p *Planner) fromCandidates(candidates []string, tried []action.Action) (action.Action, bool) {
	for _, name := range candidates {
		a := action.UseTool(name, json.RawMessage("{}"))
		if !isRepeat(a, tried) {
			return action.UseTool(name, nil), true
		}
	}
	return action.Action{}, false
}

func (p *Planner) availableSet(ctx context.Context) map[string]bool {
	set := map[string]bool{}
	for _, item := range p.reg.List("", false) {
		set[item.Entry.Name] = true
	}
	return set
}

func triedActions(run *runstore.Run) []action.Action {
	var out []action.Action
	for _, s := range run.Steps {
		if s.Kind != runstore.StepTool {
			continue
		}
		var d runstore.ToolStepData
		if err := json.Unmarshal(s.Data, &d); err == nil {
			out = append(out, action.UseTool(d.Tool, d.Args))
		}
	}
	return out
}

func isRepeat(a action.Action, tried []action.Action) bool {
	for _, t := range tried {
		if a.SameUseTool(t) {
			return true
		}
	}
	return false
}

// reactHistoryLimit is spec.md §4.2 step 4's 1500-character cap on the
// history included in the ReAct prompt.
const reactHistoryLimit = 1500

// reactStep builds a ReAct-style prompt from task, the last 1500
// characters of history, and the candidate catalog from step 1, and asks
// the LLM for the next action, expecting a JSON object with a "kind"
// discriminator matching action.Kind.
func (p *Planner) reactStep(ctx context.Context, task string, history, candidates []string, tried []action.Action) (action.Action, error) {
	var sb strings.Builder
	sb.WriteString("You are an autonomous agent solving a task step by step.\n")
	sb.WriteString("Task: " + task + "\n\n")
	if len(history) > 0 {
		joined := strings.Join(history, "\n")
		if len(joined) > reactHistoryLimit {
			joined = joined[len(joined)-reactHistoryLimit:]
		}
		sb.WriteString("History:\n" + joined + "\n\n")
	}
	if len(candidates) > 0 {
		sb.WriteString("Candidate tools: " + strings.Join(candidates, ", ") + "\n\n")
	}
	sb.WriteString(`Respond with exactly one JSON object describing your next action, one of:` + "\n")
	sb.WriteString(`{"kind":"use_tool","tool":"<name>","args":{...},"rationale":"<why>"}` + "\n")
	sb.WriteString(`{"kind":"ask_human","question":"<text>","rationale":"<why>"}` + "\n")
	sb.WriteString(`{"kind":"final_answer","answer":"<text>","rationale":"<why>"}` + "\n")
	sb.WriteString("Respond with only the JSON object, no prose.\n")

	resp, err := p.llm.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: "user", Content: sb.String()}},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return action.Action{}, fmt.Errorf("planner: react step: %w", err)
	}

	raw := extractJSONObject(resp.Text)
	if raw == "" {
		return action.Action{}, fmt.Errorf("planner: react step: no JSON object in response: %q", resp.Text)
	}

	var a action.Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return action.Action{}, fmt.Errorf("planner: react step: parse action: %w", err)
	}
	switch a.Kind {
	case action.KindUseTool:
		// spec.md §4.2 step 4: a use_tool action must resolve via
		// registry.getOrLoad; a hallucinated tool name is a planner
		// failure, not a normal action, so the caller's retry-fallback-
		// else-AskHuman path fires for it just like a parse failure.
		if _, err := p.reg.GetOrLoad(ctx, a.Tool); err != nil {
			return action.Action{}, fmt.Errorf("planner: react step: resolve tool %q: %w", a.Tool, err)
		}
	case action.KindAskHuman, action.KindFinalAnswer:
	default:
		return action.Action{}, fmt.Errorf("planner: react step: unknown action kind %q", a.Kind)
	}

	if isRepeat(a, tried) {
		return action.Action{}, fmt.Errorf("planner: react step: LLM repeated an already-tried action")
	}
	return a, nil
}
