// Command agentcore runs an autonomous task-execution agent: a
// reasoning-and-acting control loop over a lazily-loaded tool catalog
// with semantic search, reliability-wrapped tool execution, and durable
// resumable run state.
//
// # Basic Usage
//
// Run a task:
//
//	agentcore run "summarize the README"
//
// Resume a paused run (e.g. after an interruption or the step limit):
//
//	agentcore resume run_...
//
// Inspect the tool catalog:
//
//	agentcore tools list
//	agentcore tool-search "search the web"
//	agentcore serve-metrics --addr :9090
//
// # Environment Variables
//
//   - APPROVAL_MODE: auto, sensitive, or always (default: sensitive)
//   - MAX_STEPS: maximum planner steps per run or resume call (default: 20)
//   - TOPK_TOOLS: semantic search result count (default: 8)
//   - DATA_DIR: root directory for run and index persistence (default: ./data)
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY: provider credentials
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlasrun/agentcore/internal/config"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:           "agentcore",
		Short:         "Autonomous task-execution agent with a lazily-loaded tool catalog",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newToolSearchCmd())
	root.AddCommand(newServeMetricsCmd())

	if err := root.Execute(); err != nil {
		var exitErr *runExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
