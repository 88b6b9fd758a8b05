// Package approval implements the human-in-the-loop gate the agent
// controller consults before executing a tool action, following the
// decision-function-plus-interactive-prompt split used by the teacher's
// approval policy.
package approval

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Mode selects how aggressively the agent requires human sign-off.
type Mode string

const (
	// ModeAuto never asks; every action proceeds without approval.
	ModeAuto Mode = "auto"
	// ModeSensitive asks only for actions a tool marks Sensitive.
	ModeSensitive Mode = "sensitive"
	// ModeAlways asks before every tool action.
	ModeAlways Mode = "always"
)

// Decide is the pure decision function: given the configured mode and
// whether the pending action's tool is marked sensitive, it reports
// whether a human must be asked before proceeding. It has no side
// effects and performs no I/O.
func Decide(mode Mode, sensitive bool) bool {
	switch mode {
	case ModeAlways:
		return true
	case ModeSensitive:
		return sensitive
	case ModeAuto:
		return false
	default:
		return sensitive
	}
}

// Prompter asks a human a yes/no question and returns their answer. The
// interactive terminal implementation is the only side-effecting piece
// of the approval gate; Decide above stays pure and testable without it.
// Ask is the free-text counterpart used for the Planner's AskHuman
// action, where the agent needs the human's actual answer rather than a
// yes/no sign-off.
type Prompter interface {
	Confirm(reason string) (bool, error)
	Ask(question string) (string, error)
}

// TerminalPrompter asks for approval over a plain reader/writer pair,
// matching the teacher's stdin/stdout interactive approval flow.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter returns a TerminalPrompter bound to in/out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{In: in, Out: out}
}

// Confirm prints reason and a y/n prompt, then blocks for a line of
// input. Any answer other than a leading 'y' or 'Y' is treated as denial.
func (p *TerminalPrompter) Confirm(reason string) (bool, error) {
	fmt.Fprintf(p.Out, "Approval required: %s\nProceed? [y/N] ", reason)

	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("approval: read response: %w", err)
		}
		return false, nil
	}
	answer := strings.TrimSpace(scanner.Text())
	return strings.HasPrefix(strings.ToLower(answer), "y"), nil
}

// Ask prints question and blocks for a line of free-text input, used for
// the Planner's AskHuman action.
func (p *TerminalPrompter) Ask(question string) (string, error) {
	fmt.Fprintf(p.Out, "%s\n> ", question)

	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("approval: read answer: %w", err)
		}
		return "", nil
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// AutoApprove always approves without any I/O, for auto mode call sites
// and tests that don't exercise the interactive path.
type AutoApprove struct{}

// Confirm always returns true.
func (AutoApprove) Confirm(reason string) (bool, error) { return true, nil }

// Ask returns an empty answer; AutoApprove has no human behind it to ask.
func (AutoApprove) Ask(question string) (string, error) { return "", nil }
