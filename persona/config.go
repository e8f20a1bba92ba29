// Package persona defines the immutable behavioral profile bound to one
// agent: system prompt, generation parameters, goals/beliefs/traits and an
// optional voice sample. Configs are loaded from YAML documents or built from
// one of the built-in templates and never change after agent construction.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied to missing optional fields.
const (
	DefaultModel         = "llama3.1:8b"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 2048
	DefaultVoiceLanguage = "en"
)

// Config is the immutable definition of a persona.
type Config struct {
	Name          string   `yaml:"name"`
	SystemPrompt  string   `yaml:"system_prompt"`
	Model         string   `yaml:"model"`
	Temperature   float64  `yaml:"temperature"`
	MaxTokens     int      `yaml:"max_tokens"`
	Goals         []string `yaml:"goals"`
	Beliefs       []string `yaml:"beliefs"`
	Traits        []string `yaml:"traits"`
	VoiceSample   string   `yaml:"voice_sample,omitempty"`
	VoiceLanguage string   `yaml:"voice_language"`
}

// FromYAMLFile loads a persona configuration document, applies defaults and
// validates it.
func FromYAMLFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read persona file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid persona file %s: %w", path, err)
	}
	return cfg, nil
}

// ToYAMLFile writes the configuration as a YAML document.
func (c Config) ToYAMLFile(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal persona: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write persona file: %w", err)
	}
	return nil
}

// ApplyDefaults fills unset optional fields with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.VoiceLanguage == "" {
		c.VoiceLanguage = DefaultVoiceLanguage
	}
}

// Validate checks required fields and parameter bounds.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("persona name is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0.0, 2.0]", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	return nil
}

// SystemMessage renders the complete system prompt with goals, beliefs and
// traits appended in the fixed order models were tuned against.
func (c Config) SystemMessage() string {
	parts := []string{c.SystemPrompt}

	if len(c.Goals) > 0 {
		var b strings.Builder
		b.WriteString("\nYour goals:\n")
		for _, goal := range c.Goals {
			b.WriteString("- " + goal + "\n")
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	if len(c.Beliefs) > 0 {
		var b strings.Builder
		b.WriteString("\nYour beliefs:\n")
		for _, belief := range c.Beliefs {
			b.WriteString("- " + belief + "\n")
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	if len(c.Traits) > 0 {
		parts = append(parts, "\nYour personality traits: "+strings.Join(c.Traits, ", "))
	}

	return strings.Join(parts, "\n")
}
