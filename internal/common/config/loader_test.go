package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: "http://backend.local/api"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sales-assistant", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1000, cfg.Retry.MinWait)
	assert.Equal(t, 15000, cfg.Classifier.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Backend.OAuth.Enabled())
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_BACKEND_KEY", "secret-key")
	path := writeConfig(t, `
backend:
  base_url: "http://backend.local/api"
  api_key: "${TEST_BACKEND_KEY}"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Backend.APIKey)
}

func TestLoadFromFile_UnsetPlaceholderIsEmpty(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	path := writeConfig(t, `
backend:
  base_url: "http://backend.local/api"
completion:
  api_key: "${SALES_ASSISTANT_UNSET_KEY}"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.Completion.APIKey)
}

func TestLoadFromFile_ProviderKeyOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeConfig(t, `
backend:
  base_url: "http://backend.local/api"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing backend",
			body:    "completion:\n  model: gpt-4o\n",
			wantErr: "backend.base_url is required",
		},
		{
			name:    "unsupported provider",
			body:    "backend:\n  base_url: http://x\ncompletion:\n  provider: carrier-pigeon\n",
			wantErr: "not supported",
		},
		{
			name:    "camunda enabled without broker",
			body:    "backend:\n  base_url: http://x\ncamunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "cache without redis",
			body:    "backend:\n  base_url: http://x\ncache:\n  enabled: true\n",
			wantErr: "redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWorkerConfigDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"prompt-dispatch": {Enabled: false, Timeout: 5000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "prompt-dispatch"))
	assert.True(t, IsWorkerEnabled(cfg, "other"))
	assert.Equal(t, 5000, GetWorkerConfig(cfg, "prompt-dispatch").Timeout)
	assert.Equal(t, 3, GetWorkerConfig(cfg, "other").MaxRetries)
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
