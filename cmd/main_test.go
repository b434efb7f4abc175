package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-diff/internal/chromemdb"
	"document-diff/internal/compare"
	"document-diff/internal/config"
)

// unavailableModel answers every model call with a server error.
func unavailableModel(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	url := unavailableModel(t)
	cfg := &config.Config{
		EmbedLLM:     config.LLMConfig{Provider: "ollama", BaseURL: url, Model: "nomic-embed-text"},
		InferenceLLM: config.LLMConfig{Provider: "ollama", BaseURL: url, Model: "llama3"},
		Cache:        config.CacheConfig{Enabled: true, Path: t.TempDir(), InMemory: true},
	}
	cfg.ApplyDefaults()
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func cacheFile(cfg *config.Config) string {
	return filepath.Join(cfg.Cache.Path, cfg.Cache.Collection+".chromem")
}

func TestCompareFilesExportsCacheOnFailure(t *testing.T) {
	lease := writeFile(t, "lease-v1.txt", "The tenant pays rent on the first day of each month.")
	tests := []struct {
		name     string
		original string
		revised  string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "missing file",
			original: filepath.Join(t.TempDir(), "missing.txt"),
			revised:  lease,
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, os.ErrNotExist) },
		},
		{
			name:     "unsupported format",
			original: lease,
			revised:  writeFile(t, "lease-v2.exe", "MZ"),
			check:    func(t *testing.T, err error) { assert.True(t, compare.IsInputError(err)) },
		},
		{
			name:     "embedding failure",
			original: lease,
			revised:  writeFile(t, "lease-v2.txt", "The tenant pays rent on the fifth day of each month."),
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, compare.ErrEmbedding) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			err := compareFiles(context.Background(), cfg, tt.original, tt.revised)
			require.Error(t, err)
			tt.check(t, err)

			_, statErr := os.Stat(cacheFile(cfg))
			assert.NoError(t, statErr, "cache must be exported after a failed comparison")
		})
	}
}

func TestOpenCacheReset(t *testing.T) {
	cfg := testConfig(t)

	store, err := openCache(&cfg.Cache)
	require.NoError(t, err)
	require.NoError(t, store.CreateDocs(context.Background(), []chromem.Document{
		{ID: "clause", Content: "The tenant pays rent.", Embedding: []float32{1, 0}},
	}))
	require.NoError(t, store.Export())

	store, err = openCache(&cfg.Cache)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count())

	cfg.Cache.Reset = true
	store, err = openCache(&cfg.Cache)
	require.NoError(t, err)
	assert.Zero(t, store.Count())

	require.NoError(t, store.Export())
	restored, err := chromemdb.NewVectorDBManager(cfg.Cache.Path, cfg.Cache.Collection, true, "")
	require.NoError(t, err)
	require.NoError(t, restored.Import())
	_, err = restored.GetOrCreateCollection(cfg.Cache.Collection)
	require.NoError(t, err)
	assert.Zero(t, restored.Count())
}

func TestExtractObligationsRulesOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Obligations.RulesOnly = true

	path := writeFile(t, "lease.txt", "The Tenant shall pay rent within 5 days of each invoice.")
	assert.NoError(t, extractObligations(context.Background(), cfg, path))

	err := extractObligations(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
