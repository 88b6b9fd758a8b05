// Package dynamic implements dynamic code-generated tools as an
// optional, time-bounded plug-in. Each script runs in a separate
// interpreter process; that process gets no isolation beyond being a
// subprocess killed at the timeout. It is disabled
// by default: the spec treats dynamic code execution as an optional
// capability, never a required one, and this package's Tool will refuse
// to run unless explicitly enabled via Config.Enabled.
package dynamic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

const schemaJSON = `{
  "type": "object",
  "properties": {
    "script": {"type": "string", "description": "a short script, passed to the configured runner on stdin; the runner's stdout is returned as the result"}
  },
  "required": ["script"]
}`

// Args is the dynamic tool's argument shape.
type Args struct {
	Script string `json:"script"`
}

// Config controls whether and how dynamic scripts execute.
type Config struct {
	// Enabled must be explicitly set true; the zero value refuses every
	// invocation. There is no environment-variable escape hatch for this
	// by design.
	Enabled bool
	// Timeout bounds how long a single script may run before being
	// killed.
	Timeout time.Duration
	// Runner is the interpreter invoked with the script on stdin, e.g.
	// "go run -" for a Go one-liner. Required when Enabled.
	Runner []string
}

// Tool runs short scripts through an external interpreter process,
// subject to Config.Timeout. It is never registered as "core" and is
// always evictable by the idle sweep.
type Tool struct {
	toolspec.Base
	cfg Config
}

// New constructs the dynamic tool under cfg. Construction always
// succeeds even when cfg.Enabled is false; Run is what enforces the
// gate, so the tool can still be listed and its disabled status
// inspected without special-casing catalog registration.
func New(cfg Config) (*Tool, error) {
	schema, err := toolspec.NewSchema(json.RawMessage(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("dynamic: compile schema: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Tool{
		Base: toolspec.Base{
			ToolName:        "dynamic_script",
			ToolDescription: "Run a short script in an external interpreter process when no catalog tool fits the task. Disabled unless explicitly enabled.",
			ToolSchema:      schema,
			ToolCategories:  []string{"dynamic"},
			ToolSensitive:   true,
			ToolPriority:    10,
		},
		cfg: cfg,
	}, nil
}

// Run executes args.Script through cfg.Runner, bounded by cfg.Timeout.
// It refuses unconditionally when the tool is not enabled.
func (t *Tool) Run(ctx context.Context, raw json.RawMessage) (any, error) {
	if !t.cfg.Enabled {
		return nil, fmt.Errorf("dynamic: disabled; enable explicitly via Config.Enabled to use this tool")
	}
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("dynamic: decode args: %w", err)
	}
	if len(t.cfg.Runner) == 0 {
		return nil, fmt.Errorf("dynamic: no runner configured")
	}

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.cfg.Runner[0], t.cfg.Runner[1:]...)
	cmd.Stdin = bytes.NewReader([]byte(args.Script))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("dynamic: script timed out after %s", t.cfg.Timeout)
		}
		return nil, fmt.Errorf("dynamic: script failed: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
