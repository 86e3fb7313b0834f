package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", env(map[string]string{"OPENAI_API_KEY": "sk-test"}))
	require.NoError(t, err)

	want := Default()
	want.Provider.APIKeyEnv = "OPENAI_API_KEY"
	want.Provider.APIKey = "sk-test"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
provider:
  name: anthropic
  model: claude-test
  timeout: 30s
  max_retries: 5
store:
  driver: sqlite
  dsn: /tmp/tasks.db
conversation:
  history_window: 10
format:
  strategy: model
  strict: true
log:
  backend: zap
  level: debug
  format: json
`)
	cfg, err := load(path, env(map[string]string{
		"ANTHROPIC_API_KEY":     "ak",
		"TASKMESH_MAX_PARALLEL": "8",
		"TASKMESH_LOG_LEVEL":    "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Provider.APIKeyEnv)
	assert.Equal(t, "ak", cfg.Provider.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 5, cfg.Provider.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Conversation.HistoryWindow)
	assert.Equal(t, 8, cfg.Executor.MaxParallel)
	assert.True(t, cfg.Format.Strict)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.InDelta(t, 0.7, cfg.Composer.Temperature, 1e-9)
}

func TestLoad_ExplicitKeyWins(t *testing.T) {
	cfg, err := load("", env(map[string]string{"TASKMESH_API_KEY": "explicit", "OPENAI_API_KEY": "ambient"}))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Provider.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorContains(t, err, "reading config")

	_, err = load(writeFile(t, "provider: [unclosed"), env(nil))
	assert.ErrorContains(t, err, "parsing config")

	_, err = load("", env(map[string]string{"TASKMESH_MAX_PARALLEL": "many"}))
	assert.ErrorContains(t, err, "TASKMESH_MAX_PARALLEL")

	_, err = load("", env(map[string]string{"TASKMESH_STORE": "sqlite"}))
	assert.ErrorContains(t, err, "store.dsn")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Provider.Name = "mystery"
	cfg.Log.Format = "xml"
	cfg.Conversation.HistoryWindow = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider.name")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "history_window")

	assert.NoError(t, Default().Validate())
}
