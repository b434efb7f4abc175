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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log_level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 0.75, cfg.Compare.Threshold)
	assert.Equal(t, 5, cfg.Compare.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Compare.BatchDelay)
	assert.Equal(t, 8, cfg.Compare.Concurrency)
	assert.Equal(t, "openai", cfg.EmbedLLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.InferenceLLM.Timeout)
	assert.Equal(t, "pgdriver", cfg.Database.Driver)
	assert.Equal(t, 10000, cfg.Analysis.MaxDocumentChars)
	assert.Equal(t, 8000, cfg.Obligations.MaxDocumentChars)
	assert.False(t, cfg.Obligations.RulesOnly)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Cache.Reset)
}

func TestLoadConfigOverridesAndEnv(t *testing.T) {
	t.Setenv("DIFF_TEST_KEY", "sk-secret")
	body := `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
  timeout: 5s
inference_llm:
  key: ${DIFF_TEST_KEY}
  model: gpt-4o-mini
compare:
  threshold: 0.8
  batch_size: 10
  batch_delay: 250ms
  concurrency: -1
obligations:
  max_document_chars: 2000
  rules_only: true
cache:
  enabled: true
  reset: true
`
	cfg, err := LoadConfig(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.EmbedLLM.Timeout)
	assert.Equal(t, "sk-secret", cfg.InferenceLLM.Key)
	assert.Equal(t, 0.8, cfg.Compare.Threshold)
	assert.Equal(t, 10, cfg.Compare.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Compare.BatchDelay)
	assert.Equal(t, -1, cfg.Compare.Concurrency)
	assert.Equal(t, 2000, cfg.Obligations.MaxDocumentChars)
	assert.True(t, cfg.Obligations.RulesOnly)
	assert.True(t, cfg.Cache.Reset)
	assert.Equal(t, "clause_embeddings", cfg.Cache.Collection)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "compare: [unclosed"))
	require.Error(t, err)
}
