// Package action defines the Planner's output type: a tagged union of the
// three moves the agent loop can take on any given step.
package action

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the variants of Action.
type Kind string

const (
	// KindUseTool invokes a catalog tool with a set of arguments.
	KindUseTool Kind = "use_tool"
	// KindAskHuman suspends the run pending a human answer.
	KindAskHuman Kind = "ask_human"
	// KindFinalAnswer ends the run successfully with a result.
	KindFinalAnswer Kind = "final_answer"
)

// Action is the Planner's decision for a single step. Exactly one of the
// payload fields is meaningful, selected by Kind. Rationale is optional
// free text explaining why the planner chose this action; it is carried
// through to the run's thought step but never affects equality checks.
type Action struct {
	Kind      Kind   `json:"kind"`
	Rationale string `json:"rationale,omitempty"`

	// UseTool fields.
	Tool string          `json:"tool,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`

	// AskHuman fields.
	Question string `json:"question,omitempty"`

	// FinalAnswer fields.
	Answer string `json:"answer,omitempty"`
}

// UseTool constructs a tool-invocation action. args must already be valid
// JSON; callers that build args from a map should use json.Marshal first.
func UseTool(tool string, args json.RawMessage) Action {
	return Action{Kind: KindUseTool, Tool: tool, Args: args}
}

// UseToolWithRationale is UseTool plus an explanatory rationale, used by
// the LLM ReAct step where the model supplies one.
func UseToolWithRationale(tool string, args json.RawMessage, rationale string) Action {
	return Action{Kind: KindUseTool, Tool: tool, Args: args, Rationale: rationale}
}

// AskHuman constructs a human-question action.
func AskHuman(question string) Action {
	return Action{Kind: KindAskHuman, Question: question}
}

// AskHumanWithRationale is AskHuman plus an explanatory rationale.
func AskHumanWithRationale(question, rationale string) Action {
	return Action{Kind: KindAskHuman, Question: question, Rationale: rationale}
}

// FinalAnswer constructs a terminal action carrying the run's result.
func FinalAnswer(answer string) Action {
	return Action{Kind: KindFinalAnswer, Answer: answer}
}

// FinalAnswerWithRationale is FinalAnswer plus an explanatory rationale.
func FinalAnswerWithRationale(answer, rationale string) Action {
	return Action{Kind: KindFinalAnswer, Answer: answer, Rationale: rationale}
}

// String renders a human-readable summary, used in history projections
// and log lines.
func (a Action) String() string {
	switch a.Kind {
	case KindUseTool:
		return fmt.Sprintf("UseTool(%s, %s)", a.Tool, string(a.Args))
	case KindAskHuman:
		return fmt.Sprintf("AskHuman(%s)", a.Question)
	case KindFinalAnswer:
		return fmt.Sprintf("FinalAnswer(%s)", a.Answer)
	default:
		return fmt.Sprintf("Action(kind=%s)", a.Kind)
	}
}

// SameUseTool reports whether a and b are both UseTool actions naming the
// same tool with byte-identical argument JSON. The Planner uses this to
// avoid re-proposing an action already present in the run's history.
func (a Action) SameUseTool(b Action) bool {
	if a.Kind != KindUseTool || b.Kind != KindUseTool {
		return false
	}
	if a.Tool != b.Tool {
		return false
	}
	return bytes.Equal(normalizeJSON(a.Args), normalizeJSON(b.Args))
}

// normalizeJSON re-marshals raw through a generic decode so that two
// arg payloads differing only in key order or whitespace compare equal.
func normalizeJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}
