package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlasrun/agentcore/internal/agent"
	"github.com/atlasrun/agentcore/internal/approval"
	"github.com/atlasrun/agentcore/internal/config"
	"github.com/atlasrun/agentcore/internal/embedprovider"
	"github.com/atlasrun/agentcore/internal/llmprovider"
	"github.com/atlasrun/agentcore/internal/obsmetrics"
	"github.com/atlasrun/agentcore/internal/planner"
	"github.com/atlasrun/agentcore/internal/registry"
	"github.com/atlasrun/agentcore/internal/runstore"
	"github.com/atlasrun/agentcore/internal/tools/calculator"
	"github.com/atlasrun/agentcore/internal/tools/summarize"
	"github.com/atlasrun/agentcore/internal/tools/websearch"
	"github.com/atlasrun/agentcore/internal/toolspec"
)

// runtime bundles the wired components a CLI command needs.
type runtime struct {
	cfg        config.Config
	reg        *registry.Registry
	ag         *agent.Agent
	store      runstore.Store
	log        *slog.Logger
	metricsReg *prometheus.Registry
}

// cliOverrides carries the subset of spec.md §6's CLI flags that take
// precedence over both the YAML config file and the environment. Zero
// values mean "not set on the command line" and leave the loaded config
// value in place.
type cliOverrides struct {
	model        string
	topK         int
	maxSteps     int
	approvalMode string
	dataDir      string
	lazyLoading  bool
}

func buildRuntime(ov cliOverrides) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	applyCLIOverrides(&cfg, ov)
	log := newLogger()

	var llm planner.LLM
	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		llm, err = llmprovider.NewAnthropic(llmprovider.AnthropicConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY"), DefaultModel: cfg.LLM.Model})
		if err != nil {
			return nil, fmt.Errorf("agentcore: configure LLM provider: %w", err)
		}
	case os.Getenv("GOOGLE_API_KEY") != "":
		llm, err = llmprovider.NewGoogle(cliContext(), llmprovider.GoogleConfig{APIKey: os.Getenv("GOOGLE_API_KEY"), DefaultModel: cfg.LLM.Model})
		if err != nil {
			return nil, fmt.Errorf("agentcore: configure LLM provider: %w", err)
		}
	}

	var embedder registry.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedder, err = embedprovider.NewOpenAI(embedprovider.OpenAIConfig{APIKey: key, Model: cfg.Embedding.Model})
		if err != nil {
			return nil, fmt.Errorf("agentcore: configure embedding provider: %w", err)
		}
	}

	indexPath := filepath.Join(cfg.Store.DataDir, "tools", "index.json")
	reg := registry.New(cfg.RegistryConfig(), embedder, indexPath, nil, log)

	if err := registerDefaultTools(reg, llm); err != nil {
		return nil, err
	}
	if embedder != nil && !ov.lazyLoading {
		if err := reg.EnsureIndex(cliContext()); err != nil {
			log.Warn("agentcore: failed to build semantic index", "error", err)
		}
	}

	store := runstore.NewFileStore(cfg.Store.DataDir)
	plan := planner.New(reg, llm).WithK(cfg.Registry.TopK)
	prompter := approval.NewTerminalPrompter(os.Stdin, os.Stdout)
	ag := agent.New(cfg.AgentConfig(), reg, plan, store, prompter, nil, log)

	metricsReg := prometheus.NewRegistry()
	m := obsmetrics.New(metricsReg)
	reg.SetMetrics(m)
	ag.SetMetrics(m)

	return &runtime{cfg: cfg, reg: reg, ag: ag, store: store, log: log, metricsReg: metricsReg}, nil
}

// applyCLIOverrides layers command-line flags on top of a config already
// resolved from YAML + environment, per spec.md §6 ("CLI flags override
// environment"). Zero-valued fields in ov are left alone.
func applyCLIOverrides(cfg *config.Config, ov cliOverrides) {
	if ov.model != "" {
		cfg.LLM.Model = ov.model
	}
	if ov.topK > 0 {
		cfg.Registry.TopK = ov.topK
	}
	if ov.maxSteps > 0 {
		cfg.Agent.MaxSteps = ov.maxSteps
	}
	if ov.approvalMode != "" {
		cfg.Agent.ApprovalMode = ov.approvalMode
	}
	if ov.dataDir != "" {
		cfg.Store.DataDir = ov.dataDir
	}
}

func registerDefaultTools(reg *registry.Registry, llm planner.LLM) error {
	calc, err := calculator.New()
	if err != nil {
		return err
	}
	if err := reg.Register(toolEntry(calc)); err != nil {
		return err
	}

	search, err := websearch.New(websearch.Config{SearXNGURL: os.Getenv("SEARXNG_URL")})
	if err != nil {
		return err
	}
	if err := reg.Register(toolEntry(search)); err != nil {
		return err
	}

	if llm != nil {
		summ, err := summarize.New(llm)
		if err != nil {
			return err
		}
		if err := reg.Register(toolEntry(summ)); err != nil {
			return err
		}
	}
	return nil
}

// toolEntry adapts an already-constructed Tool into a catalog Entry
// whose Loader just returns the same instance. Concrete default tools
// are cheap to construct, so there is no laziness lost here; catalog
// entries backed by expensive external resources would instead build
// the Tool inside Load.
func toolEntry(t toolspec.Tool) registry.Entry {
	return registry.Entry{
		Name:        t.Name(),
		Description: t.Description(),
		Categories:  t.Categories(),
		Priority:    t.Priority(),
		Sensitive:   t.Sensitive(),
		Load:        func() (toolspec.Tool, error) { return t, nil },
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
