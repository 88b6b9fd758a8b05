// Package config loads agentcore's configuration from a YAML file,
// environment variables, and CLI flags, in that increasing order of
// precedence, matching the teacher's config/loader split.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atlasrun/agentcore/internal/agent"
	"github.com/atlasrun/agentcore/internal/approval"
	"github.com/atlasrun/agentcore/internal/registry"
)

// AgentSection configures the Agent Controller.
type AgentSection struct {
	MaxSteps     int    `yaml:"max_steps"`
	ApprovalMode string `yaml:"approval_mode"`
}

// RegistrySection configures the Tool Registry's resource bounds.
type RegistrySection struct {
	MaxCacheSize   int `yaml:"max_cache_size"`
	MaxCacheBytes  int `yaml:"max_cache_bytes"`
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`
	MaxEmbedCache  int `yaml:"max_embed_cache"`
	SearchCacheTTL int `yaml:"search_cache_ttl_sec"`
	TopK           int `yaml:"topk"`
}

// LLMSection configures the LLM completion provider.
type LLMSection struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// EmbeddingSection configures the embedding provider.
type EmbeddingSection struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// StoreSection configures durable storage.
type StoreSection struct {
	DataDir string `yaml:"data_dir"`
}

// Config is the root configuration object, loaded from YAML with
// $ENV_VAR references expanded before parsing.
type Config struct {
	Agent     AgentSection     `yaml:"agent"`
	Registry  RegistrySection  `yaml:"registry"`
	LLM       LLMSection       `yaml:"llm"`
	Embedding EmbeddingSection `yaml:"embedding"`
	Store     StoreSection     `yaml:"store"`
}

// Default returns a Config carrying every spec-mandated default.
func Default() Config {
	return Config{
		Agent: AgentSection{MaxSteps: 20, ApprovalMode: string(approval.ModeSensitive)},
		Registry: RegistrySection{
			MaxCacheSize:   100,
			MaxCacheBytes:  50 * 1024 * 1024,
			IdleTimeoutSec: 600,
			MaxEmbedCache:  1000,
			SearchCacheTTL: 300,
			TopK:           8,
		},
		Store: StoreSection{DataDir: "./data"},
	}
}

// Load reads path (if non-empty and present), expanding $VAR / ${VAR}
// references against the process environment before parsing YAML, the
// same trick the teacher's loader uses. A missing path is not an error:
// the returned Config is Default()'s values layered with any environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			expanded := os.ExpandEnv(string(raw))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APPROVAL_MODE"); v != "" {
		cfg.Agent.ApprovalMode = v
	}
	if v := os.Getenv("MAX_STEPS"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Agent.MaxSteps = n
		}
	}
	if v := os.Getenv("TOPK_TOOLS"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Registry.TopK = n
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// AgentConfig converts the loaded Agent section into agent.Config.
func (c Config) AgentConfig() agent.Config {
	return agent.Config{
		MaxSteps:     c.Agent.MaxSteps,
		ApprovalMode: approval.Mode(c.Agent.ApprovalMode),
	}
}

// RegistryConfig converts the loaded Registry section into
// registry.Config.
func (c Config) RegistryConfig() registry.Config {
	return registry.Config{
		MaxCacheSize:   c.Registry.MaxCacheSize,
		MaxCacheBytes:  c.Registry.MaxCacheBytes,
		IdleTimeout:    time.Duration(c.Registry.IdleTimeoutSec) * time.Second,
		MaxEmbedCache:  c.Registry.MaxEmbedCache,
		SearchCacheTTL: time.Duration(c.Registry.SearchCacheTTL) * time.Second,
		TopK:           c.Registry.TopK,
	}
}
