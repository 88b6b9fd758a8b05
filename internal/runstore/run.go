// Package runstore persists Run state as an append-only, per-run JSON
// file, mirroring the atomic write-then-rename discipline used by the
// teacher's pairing store.
package runstore

import (
	"encoding/json"
	"time"

	"github.com/atlasrun/agentcore/internal/action"
)

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// StepKind discriminates the entries recorded in a Run's step log.
type StepKind string

const (
	StepThought           StepKind = "thought"
	StepTool              StepKind = "tool"
	StepObservation       StepKind = "observation"
	StepFinal             StepKind = "final"
	StepApprovalRequest   StepKind = "approval-request"
	StepApprovalResponse  StepKind = "approval-response"
	StepInterruption      StepKind = "interruption"
)

// Step is one entry in a Run's durable log. Data holds kind-specific
// payload and is kept as json.RawMessage so the store never needs to know
// the full set of payload shapes to round-trip a Run.
type Step struct {
	ID    string          `json:"id"`
	RunID string          `json:"run_id"`
	Kind  StepKind        `json:"kind"`
	TS    time.Time       `json:"ts"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Run is the complete durable record of one agent execution.
type Run struct {
	RunID     string    `json:"run_id"`
	Task      string    `json:"task"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    Status    `json:"status"`
	Steps     []Step    `json:"steps"`
}

// ThoughtData is the Data payload for a StepThought step: the planner's
// decision before it is acted on, recorded verbatim per spec.md §4.4
// step 2 ("{step, actionType, tool?, rationale}").
type ThoughtData struct {
	Step       int    `json:"step"`
	ActionType string `json:"action_type"`
	Tool       string `json:"tool,omitempty"`
	Rationale  string `json:"rationale,omitempty"`
}

// ToolStepData is the Data payload for a StepTool step.
type ToolStepData struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// ObservationData is the Data payload for a StepObservation step.
// FromHuman marks an observation that carries a human's free-text answer
// to an AskHuman action rather than a tool's result, so History renders
// it as "Human: ..." per spec.md §3.
type ObservationData struct {
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	IsError   bool            `json:"is_error"`
	FromHuman bool            `json:"from_human,omitempty"`
}

// FinalData is the Data payload for a StepFinal step.
type FinalData struct {
	Answer string `json:"answer"`
}

// ApprovalRequestData is the Data payload for a StepApprovalRequest step.
type ApprovalRequestData struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
	Action    action.Action `json:"action"`
}

// ApprovalResponseData is the Data payload for a StepApprovalResponse step.
type ApprovalResponseData struct {
	RequestID string `json:"request_id"`
	Approved  bool   `json:"approved"`
}

// InterruptionData is the Data payload for a StepInterruption step.
type InterruptionData struct {
	Reason string `json:"reason"`
}

// History is the textual projection of a Run's steps, reconstructed for
// the planner's ReAct prompt. It never mutates the underlying Run.
type History struct {
	Lines []string
}

// BuildHistory projects run's steps into a linear textual history,
// skipping approval bookkeeping steps (those are policy mechanics, not
// reasoning trace).
func BuildHistory(run *Run) History {
	var h History
	for _, s := range run.Steps {
		switch s.Kind {
		case StepThought:
			var d ThoughtData
			if err := json.Unmarshal(s.Data, &d); err == nil {
				line := "Thought: " + d.ActionType
				if d.Tool != "" {
					line += " " + d.Tool
				}
				if d.Rationale != "" {
					line += " - " + d.Rationale
				}
				h.Lines = append(h.Lines, line)
			}
		case StepTool:
			var d ToolStepData
			if err := json.Unmarshal(s.Data, &d); err == nil {
				h.Lines = append(h.Lines, "Action: "+d.Tool+" "+string(d.Args))
			}
		case StepObservation:
			var d ObservationData
			if err := json.Unmarshal(s.Data, &d); err == nil {
				switch {
				case d.FromHuman:
					var answer string
					_ = json.Unmarshal(d.Result, &answer)
					h.Lines = append(h.Lines, "Human: "+answer)
				case d.IsError:
					h.Lines = append(h.Lines, "Observation: error: "+d.Error)
				default:
					h.Lines = append(h.Lines, "Observation: "+string(d.Result))
				}
			}
		case StepFinal:
			var d FinalData
			if err := json.Unmarshal(s.Data, &d); err == nil {
				h.Lines = append(h.Lines, "Final Answer: "+d.Answer)
			}
		case StepInterruption:
			var d InterruptionData
			if err := json.Unmarshal(s.Data, &d); err == nil {
				h.Lines = append(h.Lines, "Interrupted: "+d.Reason)
			}
		}
	}
	return h
}
