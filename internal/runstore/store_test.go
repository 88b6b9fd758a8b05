package runstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	run, err := ms.Create(ctx, "run_1", "do the thing", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.Status != StatusRunning {
		t.Fatalf("status = %s, want running", run.Status)
	}

	data, _ := json.Marshal(ThoughtData{Step: 1, ActionType: "use_tool", Tool: "calculator", Rationale: "thinking"})
	if _, err := ms.AppendStep(ctx, "run_1", Step{ID: "step_1", RunID: "run_1", Kind: StepThought, TS: now, Data: data}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}

	loaded, err := ms.Load(ctx, "run_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(loaded.Steps))
	}

	// Mutating the returned Run must not affect the stored copy.
	loaded.Steps[0].Kind = StepFinal
	reloaded, _ := ms.Load(ctx, "run_1")
	if reloaded.Steps[0].Kind != StepThought {
		t.Fatalf("store was mutated through a returned Run alias")
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	ms := NewMemoryStore()
	if _, err := ms.Load(context.Background(), "run_missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := NewFileStore(dir)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := fs.Create(ctx, "run_2", "task", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, _ := json.Marshal(FinalData{Answer: "42"})
	if _, err := fs.AppendStep(ctx, "run_2", Step{ID: "s1", RunID: "run_2", Kind: StepFinal, TS: now, Data: data}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}

	run, err := fs.Load(ctx, "run_2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(run.Steps) != 1 || run.Steps[0].Kind != StepFinal {
		t.Fatalf("unexpected steps: %+v", run.Steps)
	}

	p := filepath.Join(dir, "runs", "run_2.json")
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected run file at %s: %v", p, err)
	}
}

func TestFileStoreRejectsUnsafeID(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	if _, err := fs.Create(context.Background(), "../etc/passwd", "x", time.Now()); err == nil {
		t.Fatal("expected error for unsafe run id")
	}
}

func TestBuildHistorySkipsApprovalBookkeeping(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	thoughtData, _ := json.Marshal(ThoughtData{Step: 1, ActionType: "final_answer", Rationale: "plan"})
	approvalData, _ := json.Marshal(ApprovalRequestData{RequestID: "a1", Reason: "sensitive"})

	run := &Run{
		RunID: "r",
		Steps: []Step{
			{Kind: StepThought, TS: now, Data: thoughtData},
			{Kind: StepApprovalRequest, TS: now, Data: approvalData},
		},
	}
	h := BuildHistory(run)
	if len(h.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1 (approval steps should be skipped)", len(h.Lines))
	}
}
