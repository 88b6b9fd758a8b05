package action

import (
	"encoding/json"
	"testing"
)

func TestSameUseToolIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a := UseTool("calculator", json.RawMessage(`{"expression":"2+2","precision":2}`))
	b := UseTool("calculator", json.RawMessage(`{ "precision": 2, "expression": "2+2" }`))
	if !a.SameUseTool(b) {
		t.Fatal("expected actions with reordered/whitespaced args to compare equal")
	}
}

func TestSameUseToolDistinguishesToolAndArgs(t *testing.T) {
	base := UseTool("calculator", json.RawMessage(`{"expression":"2+2"}`))

	diffTool := UseTool("web_search", json.RawMessage(`{"expression":"2+2"}`))
	if base.SameUseTool(diffTool) {
		t.Fatal("expected different tool names to compare unequal")
	}

	diffArgs := UseTool("calculator", json.RawMessage(`{"expression":"3+3"}`))
	if base.SameUseTool(diffArgs) {
		t.Fatal("expected different args to compare unequal")
	}
}

func TestSameUseToolRequiresBothKindsToBeUseTool(t *testing.T) {
	useTool := UseTool("calculator", json.RawMessage(`{}`))
	askHuman := AskHuman("what now?")
	if useTool.SameUseTool(askHuman) {
		t.Fatal("expected a non-UseTool action to never compare equal")
	}
}

func TestConstructorsSetKindAndPayload(t *testing.T) {
	if a := AskHuman("q"); a.Kind != KindAskHuman || a.Question != "q" {
		t.Fatalf("AskHuman() = %+v", a)
	}
	if a := FinalAnswer("done"); a.Kind != KindFinalAnswer || a.Answer != "done" {
		t.Fatalf("FinalAnswer() = %+v", a)
	}
	if a := UseToolWithRationale("t", json.RawMessage(`{}`), "why"); a.Rationale != "why" {
		t.Fatalf("UseToolWithRationale() = %+v", a)
	}
}

func TestStringFormatsEachKind(t *testing.T) {
	cases := []struct {
		a    Action
		want string
	}{
		{UseTool("calculator", json.RawMessage(`{"expression":"2+2"}`)), `UseTool(calculator, {"expression":"2+2"})`},
		{AskHuman("what next?"), "AskHuman(what next?)"},
		{FinalAnswer("42"), "FinalAnswer(42)"},
	}
	for _, c := range cases {
		if got := c.a.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
