// Package config loads application settings from a YAML file with safe
// defaults for local development. All fields are optional; a missing file
// yields the default settings rather than an error so the CLI works out of
// the box.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MemorySettings configures the persistent conversation store.
type MemorySettings struct {
	// DBPath is the SQLite database file. An empty value selects the
	// in-memory store.
	DBPath string `yaml:"db_path"`
}

// ModelSettings configures the language model backend.
type ModelSettings struct {
	// Provider selects the backend: "ollama", "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// Host is the Ollama endpoint; ignored by the hosted providers.
	Host string `yaml:"host"`
	// Model is the default model identifier for the selected provider.
	Model string `yaml:"model"`
	// Timeout bounds a single model call.
	Timeout time.Duration `yaml:"timeout"`
}

// OrchestratorSettings tunes the agent registry and dialogue loops.
type OrchestratorSettings struct {
	MaxAgents            int           `yaml:"max_agents"`
	MaxContextMessages   int           `yaml:"max_context_messages"`
	InterAgentRetryDelay time.Duration `yaml:"inter_agent_retry_delay"`
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Settings is the root configuration document.
type Settings struct {
	Memory       MemorySettings       `yaml:"memory"`
	Model        ModelSettings        `yaml:"model"`
	Orchestrator OrchestratorSettings `yaml:"orchestrator"`
	Logging      LoggingSettings      `yaml:"logging"`
}

// Default returns the settings used when no config file is present.
func Default() Settings {
	return Settings{
		Memory: MemorySettings{
			DBPath: "botoclock.db",
		},
		Model: ModelSettings{
			Provider: "ollama",
			Host:     "http://localhost:11434",
			Model:    "llama3.1:8b",
			Timeout:  120 * time.Second,
		},
		Orchestrator: OrchestratorSettings{
			MaxAgents:            10,
			MaxContextMessages:   20,
			InterAgentRetryDelay: 2 * time.Second,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads settings from path, overlaying the defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Validate rejects settings that cannot produce a working system.
func (s Settings) Validate() error {
	switch s.Model.Provider {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown model provider %q", s.Model.Provider)
	}
	if s.Orchestrator.MaxAgents <= 0 {
		return fmt.Errorf("max_agents must be positive, got %d", s.Orchestrator.MaxAgents)
	}
	if s.Orchestrator.MaxContextMessages < 0 {
		return fmt.Errorf("max_context_messages must not be negative, got %d", s.Orchestrator.MaxContextMessages)
	}
	return nil
}
