package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/atlasrun/agentcore/internal/runstore"
)

func cliContext() context.Context {
	return context.Background()
}

// runExitError wraps a non-done terminal run status so main can translate
// it into spec.md §6's non-zero exit code while still printing the run
// and its runId to stdout.
type runExitError struct {
	status runstore.Status
}

func (e *runExitError) Error() string {
	return fmt.Sprintf("run ended with status %s", e.status)
}

func reportRun(run *runstore.Run) error {
	fmt.Printf("run %s finished with status %s\n", run.RunID, run.Status)
	if err := printJSON(run); err != nil {
		return err
	}
	if run.Status != runstore.StatusDone {
		return &runExitError{status: run.Status}
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var ov cliOverrides
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Start a new run for the given task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ov)
			if err != nil {
				return err
			}
			run, err := rt.ag.Run(cliContext(), args[0])
			if err != nil {
				return err
			}
			return reportRun(run)
		},
	}
	bindRunFlags(cmd, &ov, true)
	return cmd
}

func newResumeCmd() *cobra.Command {
	var ov cliOverrides
	cmd := &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Resume a paused or interrupted run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ov)
			if err != nil {
				return err
			}
			run, err := rt.ag.Resume(cliContext(), args[0])
			if err != nil {
				return err
			}
			return reportRun(run)
		},
	}
	bindRunFlags(cmd, &ov, false)
	return cmd
}

// bindRunFlags registers the shared `run`/`resume` flag surface from
// spec.md §6. includeModelAndLazy is false for `resume`, which per the
// spec only accepts --max-steps, --approval-mode, and --data-dir.
func bindRunFlags(cmd *cobra.Command, ov *cliOverrides, includeModelAndLazy bool) {
	cmd.Flags().IntVar(&ov.maxSteps, "max-steps", 0, "override the configured max steps per run")
	cmd.Flags().StringVar(&ov.approvalMode, "approval-mode", "", "auto, always, or sensitive")
	cmd.Flags().StringVar(&ov.dataDir, "data-dir", "", "override the configured data directory")
	if includeModelAndLazy {
		cmd.Flags().StringVar(&ov.model, "model", "", "override the configured LLM model")
		cmd.Flags().IntVar(&ov.topK, "topk", 0, "override the configured semantic search result count")
		cmd.Flags().BoolVar(&ov.lazyLoading, "lazy-loading", false, "skip loading or building the semantic index at startup; it is not built later, so search covers only tools loaded during this process")
	}
}

func newToolsCmd() *cobra.Command {
	var category string
	var loadedOnly bool
	var watchDir string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cliOverrides{})
			if err != nil {
				return err
			}

			if watchDir != "" {
				w, err := rt.reg.WatchDir(watchDir, scanManifestDir)
				if err != nil {
					return err
				}
				defer w.Close()
				fmt.Printf("watching %s for manifest changes; Ctrl-C to exit\n", watchDir)
			}

			for _, item := range rt.reg.List(category, loadedOnly) {
				loaded := "cold"
				if item.Loaded {
					loaded = "loaded"
				}
				fmt.Printf("%-24s %-8s %s\n", item.Entry.Name, loaded, item.Entry.Description)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&category, "category", "", "filter by category")
	listCmd.Flags().BoolVar(&loadedOnly, "loaded-only", false, "only show currently loaded tools")
	listCmd.Flags().StringVar(&watchDir, "watch", "", "watch a directory of tool manifests for hot-reloadable metadata changes")

	tools := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool catalog",
	}
	tools.AddCommand(listCmd)
	return tools
}

func newToolSearchCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "tool-search [query]",
		Short: "Semantically search the tool catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cliOverrides{})
			if err != nil {
				return err
			}
			hits, err := rt.reg.Search(cliContext(), args[0], topK)
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Printf("%-24s %.4f\n", h.Name, h.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "topk", 0, "number of results (default: registry config)")
	return cmd
}

// newServeMetricsCmd exposes the optional Prometheus sink (internal/obsmetrics)
// over HTTP. This is outside spec.md §1's core correctness contract
// ("metrics export sinks" is explicitly out of scope); it is a thin,
// decoupled adapter over the same runtime a `run` invocation builds, not
// required for the agent loop itself to function.
func newServeMetricsCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Expose Prometheus metrics for the registry and agent over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cliOverrides{})
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(rt.metricsReg, promhttp.HandlerOpts{}))
			rt.log.Info("agentcore: serving metrics", "addr", addr)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address for the /metrics endpoint")
	return cmd
}
