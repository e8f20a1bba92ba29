package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", s.Model.Provider)
	assert.Equal(t, 10, s.Orchestrator.MaxAgents)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
model:
  provider: anthropic
  model: claude-sonnet-4-20250514
orchestrator:
  max_agents: 3
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", s.Model.Provider)
	assert.Equal(t, 3, s.Orchestrator.MaxAgents)
	assert.Equal(t, "debug", s.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "botoclock.db", s.Memory.DBPath)
	assert.Equal(t, 120*time.Second, s.Model.Timeout)
	assert.Equal(t, 20, s.Orchestrator.MaxContextMessages)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [not a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  provider: carrier-pigeon\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestValidate(t *testing.T) {
	s := Default()
	assert.NoError(t, s.Validate())

	s.Orchestrator.MaxAgents = 0
	assert.Error(t, s.Validate())
}
