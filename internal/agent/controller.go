// Package agent implements the Agent Controller: the state machine that
// drives a Run from task to completion by alternating Planner decisions,
// approval checks, reliability-wrapped tool execution, and durable step
// logging.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/atlasrun/agentcore/internal/action"
	"github.com/atlasrun/agentcore/internal/approval"
	"github.com/atlasrun/agentcore/internal/ids"
	"github.com/atlasrun/agentcore/internal/planner"
	"github.com/atlasrun/agentcore/internal/registry"
	"github.com/atlasrun/agentcore/internal/reliability"
	"github.com/atlasrun/agentcore/internal/runstore"
)

// Config carries the agent's operating parameters.
type Config struct {
	MaxSteps     int
	ApprovalMode approval.Mode
}

// DefaultConfig returns the spec default: MaxSteps=20, approval mode
// "sensitive".
func DefaultConfig() Config {
	return Config{MaxSteps: 20, ApprovalMode: approval.ModeSensitive}
}

// MetricsSink receives optional telemetry from the Agent. Defined locally
// for the same reason as registry.MetricsSink: the core has no
// dependency on any concrete metrics package (spec.md §1).
type MetricsSink interface {
	Step()
	BreakerTrip(tool string)
}

type noopMetrics struct{}

func (noopMetrics) Step()              {}
func (noopMetrics) BreakerTrip(string) {}

// Agent owns exactly one Run at a time through Run/Resume. It does
// not own the Registry, Planner, or Run Store; those are injected so
// multiple Agents can share them.
type Agent struct {
	cfg      Config
	reg      *registry.Registry
	plan     *planner.Planner
	store    runstore.Store
	breakers *reliability.Breakers
	wrapper  *reliability.Wrapper
	prompter approval.Prompter
	now      func() time.Time
	log      *slog.Logger
	metrics  MetricsSink

	interrupted atomic.Bool
}

// SetMetrics wires an optional telemetry sink. Safe to call at most once
// during startup, before concurrent use begins.
func (a *Agent) SetMetrics(m MetricsSink) {
	if m == nil {
		m = noopMetrics{}
	}
	a.metrics = m
}

// New wires an Agent from its collaborators. now and log default to
// time.Now and slog.Default when nil.
func New(cfg Config, reg *registry.Registry, plan *planner.Planner, store runstore.Store, prompter approval.Prompter, now func() time.Time, log *slog.Logger) *Agent {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if prompter == nil {
		prompter = approval.AutoApprove{}
	}
	breakers := reliability.NewBreakers(now)
	return &Agent{
		cfg:      cfg,
		reg:      reg,
		plan:     plan,
		store:    store,
		breakers: breakers,
		wrapper:  reliability.NewWrapper(breakers, rand.New(rand.NewSource(now().UnixNano()))),
		prompter: prompter,
		now:      now,
		log:      log,
		metrics:  noopMetrics{},
	}
}

// Interrupt asks the agent to stop at the next step boundary. It is safe
// to call from another goroutine.
func (a *Agent) Interrupt() {
	a.interrupted.Store(true)
}

// Run starts a new run for task and drives it until a FinalAnswer,
// MaxSteps, a denied AskHuman approval, an interruption, or a
// StoreIOError.
func (a *Agent) Run(ctx context.Context, task string) (*runstore.Run, error) {
	run, err := a.store.Create(ctx, ids.NewRunID(), task, a.now())
	if err != nil {
		return nil, fmt.Errorf("agent: create run: %w", err)
	}
	a.kickSmartPreload(task)
	return a.drive(ctx, run)
}

// kickSmartPreload fires the registry's best-effort keyword-driven
// preload in the background so it never delays the first planner
// decision. Its own failures are swallowed by SmartPreload itself
// (spec.md §4.1: "Failures in preloads must not propagate").
func (a *Agent) kickSmartPreload(task string) {
	if a.reg == nil {
		return
	}
	go a.reg.SmartPreload(context.Background(), task, nil)
}

// Resume continues a previously suspended or paused run.
func (a *Agent) Resume(ctx context.Context, runID string) (*runstore.Run, error) {
	run, err := a.store.Load(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("agent: load run %s: %w", runID, err)
	}
	if run.Status == runstore.StatusDone || run.Status == runstore.StatusFailed {
		return run, nil
	}
	if _, err := a.store.SetStatus(ctx, runID, runstore.StatusRunning, a.now()); err != nil {
		return nil, fmt.Errorf("agent: resume run %s: %w", runID, err)
	}
	run.Status = runstore.StatusRunning
	return a.drive(ctx, run)
}

// drive runs the step loop up to MaxSteps steps for this invocation. A
// resumed run gets a fresh MaxSteps budget rather than one shared across
// its whole lifetime (spec.md §4.4: "continue ... up to MaxSteps
// additional steps").
func (a *Agent) drive(ctx context.Context, run *runstore.Run) (*runstore.Run, error) {
	stepsTaken := 0

	for stepsTaken < a.cfg.MaxSteps {
		if a.interrupted.Load() {
			return a.recordInterruption(ctx, run, "interrupted by request")
		}
		select {
		case <-ctx.Done():
			return a.recordInterruption(ctx, run, "context canceled")
		default:
		}

		act, err := a.plan.Decide(ctx, run.Task, run)
		if err != nil {
			return a.fail(ctx, run, err)
		}

		thought, _ := json.Marshal(runstore.ThoughtData{
			Step:       stepsTaken + 1,
			ActionType: string(act.Kind),
			Tool:       act.Tool,
			Rationale:  act.Rationale,
		})
		run, err = a.appendStep(ctx, run, runstore.StepThought, thought)
		if err != nil {
			return nil, err
		}

		done, updated, err := a.step(ctx, run, act)
		if err != nil {
			return nil, err
		}
		a.metrics.Step()
		run = updated
		if done {
			return run, nil
		}
		stepsTaken++
		if run.Status == runstore.StatusPaused {
			return run, nil
		}
	}

	return a.recordInterruption(ctx, run, fmt.Sprintf("exceeded max steps (%d)", a.cfg.MaxSteps))
}

// step executes a single planner decision against the run, appending the
// resulting steps to the store. It returns done=true when the run has
// reached a terminal or suspended state.
func (a *Agent) step(ctx context.Context, run *runstore.Run, act action.Action) (bool, *runstore.Run, error) {
	switch act.Kind {
	case action.KindFinalAnswer:
		data, _ := json.Marshal(runstore.FinalData{Answer: act.Answer})
		run, err := a.appendStep(ctx, run, runstore.StepFinal, data)
		if err != nil {
			return false, nil, err
		}
		run, err = a.setStatus(ctx, run, runstore.StatusDone)
		return true, run, err

	case action.KindAskHuman:
		return a.askHuman(ctx, run, act)

	case action.KindUseTool:
		return a.executeToolStep(ctx, run, act)

	default:
		return false, nil, fmt.Errorf("agent: unexpected action kind %q", act.Kind)
	}
}

// askHuman implements spec.md §4.4 step 4: in ModeAlways, the act of
// asking is itself gated by an approval round (distinct from the
// question's real answer) and a denial pauses the run; otherwise — and
// after an approval — the question is put to the human directly and the
// answer is folded into history as an observation, and the run continues
// rather than suspending.
func (a *Agent) askHuman(ctx context.Context, run *runstore.Run, act action.Action) (bool, *runstore.Run, error) {
	if a.cfg.ApprovalMode == approval.ModeAlways {
		reqID := ids.NewID()
		reqData, _ := json.Marshal(runstore.ApprovalRequestData{RequestID: reqID, Reason: "ask human: " + act.Question, Action: act})
		run, err := a.appendStep(ctx, run, runstore.StepApprovalRequest, reqData)
		if err != nil {
			return false, nil, err
		}

		approved, err := a.prompter.Confirm(fmt.Sprintf("ask the human %q", act.Question))
		if err != nil {
			return false, nil, fmt.Errorf("agent: approval prompt: %w", err)
		}
		respData, _ := json.Marshal(runstore.ApprovalResponseData{RequestID: reqID, Approved: approved})
		run, err = a.appendStep(ctx, run, runstore.StepApprovalResponse, respData)
		if err != nil {
			return false, nil, err
		}
		if !approved {
			run, err = a.setStatus(ctx, run, runstore.StatusPaused)
			return true, run, err
		}
	}

	answer, err := a.prompter.Ask(act.Question)
	if err != nil {
		return false, nil, fmt.Errorf("agent: ask human: %w", err)
	}

	answerJSON, _ := json.Marshal(answer)
	obsData, _ := json.Marshal(runstore.ObservationData{Result: answerJSON, FromHuman: true})
	run, err = a.appendStep(ctx, run, runstore.StepObservation, obsData)
	return false, run, err
}

func (a *Agent) executeToolStep(ctx context.Context, run *runstore.Run, act action.Action) (bool, *runstore.Run, error) {
	tool, err := a.reg.GetOrLoad(ctx, act.Tool)
	if err != nil {
		run, storeErr := a.recordObservation(ctx, run, fmt.Errorf("agent: %w", err))
		return false, run, storeErr
	}

	args := act.Args
	schema := tool.Schema()
	needsRepair := len(args) == 0
	if schema != nil && !needsRepair {
		if _, err := schema.ValidateRaw(args); err != nil {
			needsRepair = true
		}
	}
	if needsRepair {
		history := runstore.BuildHistory(run).Lines
		inferred, err := planner.InferArgs(ctx, a.plan.LLM(), tool, run.Task, act.Args, history)
		if err != nil {
			run, storeErr := a.recordObservation(ctx, run, fmt.Errorf("schema_validation: %w", err))
			return false, run, storeErr
		}
		args = inferred
	}

	if schema != nil {
		if _, err := schema.ValidateRaw(args); err != nil {
			run, storeErr := a.recordObservation(ctx, run, fmt.Errorf("schema_validation: %w", err))
			return false, run, storeErr
		}
	}

	if approval.Decide(a.cfg.ApprovalMode, tool.Sensitive()) {
		reqID := ids.NewID()
		reqData, _ := json.Marshal(runstore.ApprovalRequestData{RequestID: reqID, Reason: "tool " + act.Tool + " requires approval", Action: act})
		var storeErr error
		run, storeErr = a.appendStep(ctx, run, runstore.StepApprovalRequest, reqData)
		if storeErr != nil {
			return false, nil, storeErr
		}

		approved, err := a.prompter.Confirm(fmt.Sprintf("run tool %q with args %s", act.Tool, string(args)))
		if err != nil {
			return false, nil, fmt.Errorf("agent: approval prompt: %w", err)
		}
		respData, _ := json.Marshal(runstore.ApprovalResponseData{RequestID: reqID, Approved: approved})
		run, storeErr = a.appendStep(ctx, run, runstore.StepApprovalResponse, respData)
		if storeErr != nil {
			return false, nil, storeErr
		}
		if !approved {
			run, storeErr = a.recordObservation(ctx, run, fmt.Errorf("human denied tool %q", act.Tool))
			return false, run, storeErr
		}
	}

	toolData, _ := json.Marshal(runstore.ToolStepData{Tool: act.Tool, Args: args})
	var err2 error
	run, err2 = a.appendStep(ctx, run, runstore.StepTool, toolData)
	if err2 != nil {
		return false, nil, err2
	}

	retryPolicy := reliability.BackoffPolicy{BaseDelayMs: tool.Retry().BaseDelayMs, MaxAttempts: tool.Retry().Retries}
	breakerPolicy := reliability.BreakerPolicy{FailureThreshold: tool.Breaker().FailureThreshold, CooldownMs: tool.Breaker().CooldownMs}

	result, runErr := a.wrapper.Execute(ctx, act.Tool, retryPolicy, breakerPolicy, func(ctx context.Context) (any, error) {
		return tool.Run(ctx, args)
	})

	if runErr != nil {
		if errors.Is(runErr, reliability.ErrCircuitOpen) {
			run, storeErr := a.recordObservation(ctx, run, fmt.Errorf("circuit_open:%s", act.Tool))
			return false, run, storeErr
		}
		if a.breakers != nil {
			if _, open := a.breakers.Snapshot(act.Tool); open {
				a.metrics.BreakerTrip(act.Tool)
			}
		}
		run, storeErr := a.recordObservation(ctx, run, runErr)
		return false, run, storeErr
	}

	resultJSON, _ := json.Marshal(result)
	obsData, _ := json.Marshal(runstore.ObservationData{Result: resultJSON})
	run, err2 = a.appendStep(ctx, run, runstore.StepObservation, obsData)
	a.kickPreloadSimilar(run, tool.Description())
	return false, run, err2
}

// kickPreloadSimilar fires the registry's best-effort neighbor preload in
// the background using the tool just executed as the similarity seed, so
// a likely next tool is already warm by the time the planner reaches for
// it. Tools already used in this run are excluded as "already returned"
// per spec.md §4.1.
func (a *Agent) kickPreloadSimilar(run *runstore.Run, seed string) {
	if a.reg == nil {
		return
	}
	already := map[string]bool{}
	for _, s := range run.Steps {
		if s.Kind != runstore.StepTool {
			continue
		}
		var d runstore.ToolStepData
		if err := json.Unmarshal(s.Data, &d); err == nil {
			already[d.Tool] = true
		}
	}
	go a.reg.PreloadSimilar(context.Background(), seed, already)
}

func (a *Agent) recordObservation(ctx context.Context, run *runstore.Run, cause error) (*runstore.Run, error) {
	data, _ := json.Marshal(runstore.ObservationData{Error: cause.Error(), IsError: true})
	return a.appendStep(ctx, run, runstore.StepObservation, data)
}

func (a *Agent) recordInterruption(ctx context.Context, run *runstore.Run, reason string) (*runstore.Run, error) {
	data, _ := json.Marshal(runstore.InterruptionData{Reason: reason})
	run, err := a.appendStep(ctx, run, runstore.StepInterruption, data)
	if err != nil {
		return nil, err
	}
	return a.setStatus(ctx, run, runstore.StatusPaused)
}

func (a *Agent) fail(ctx context.Context, run *runstore.Run, cause error) (*runstore.Run, error) {
	data, _ := json.Marshal(runstore.ObservationData{Error: cause.Error(), IsError: true})
	run, err := a.appendStep(ctx, run, runstore.StepObservation, data)
	if err != nil {
		return nil, err
	}
	return a.setStatus(ctx, run, runstore.StatusFailed)
}

func (a *Agent) appendStep(ctx context.Context, run *runstore.Run, kind runstore.StepKind, data json.RawMessage) (*runstore.Run, error) {
	step := runstore.Step{ID: ids.NewStepID(), RunID: run.RunID, Kind: kind, TS: a.now(), Data: data}
	updated, err := a.store.AppendStep(ctx, run.RunID, step)
	if err != nil {
		a.log.Error("agent: append step failed", "run", run.RunID, "kind", kind, "error", err)
		return nil, fmt.Errorf("agent: append step: %w", err)
	}
	return updated, nil
}

func (a *Agent) setStatus(ctx context.Context, run *runstore.Run, status runstore.Status) (*runstore.Run, error) {
	updated, err := a.store.SetStatus(ctx, run.RunID, status, a.now())
	if err != nil {
		return nil, fmt.Errorf("agent: set status: %w", err)
	}
	return updated, nil
}

