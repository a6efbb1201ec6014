package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.json"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.taostats.io/api", cfg.TaostatsBaseURL)
	assert.Equal(t, "pipeline_output", cfg.OutputDir)
	assert.Equal(t, 3, cfg.CrawlWorkers)
	assert.Equal(t, "gemini-2.0-flash", cfg.AgentModel)
	assert.Equal(t, 2, cfg.AgentConcurrency)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"output_dir": "out",
		"crawl_workers": 5,
		"max_pages_per_subnet": 10,
		"agent_model": "gemini-1.5-pro"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 5, cfg.CrawlWorkers)
	assert.Equal(t, 10, cfg.MaxPagesPerSubnet)
	assert.Equal(t, "gemini-1.5-pro", cfg.AgentModel)

	// Unspecified fields still default
	assert.Equal(t, 10000, cfg.RequestTimeoutMs)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"request_timeout_ms": 100}`), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout_ms")
}

func TestLoadConfigReadsSecretsFromEnv(t *testing.T) {
	t.Setenv("TAOSTATS_API_KEY", "taostats-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "taostats-key", cfg.TaostatsAPIKey)
	assert.Equal(t, "gemini-key", cfg.GeminiAPIKey)
}
