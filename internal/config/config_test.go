package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.05, cfg.Search.LexicalWeight, 1e-9)
	assert.InDelta(t, 0.95, cfg.Search.DenseWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.VectorWeight, 1e-9)
	assert.Equal(t, 1024, cfg.Search.TopK)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "ia:synonyms", cfg.Synonyms.RedisKey)
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	body := `
search:
  vector_weight: 0.5
  top_k: 256
embeddings:
  provider: ollama
  base_url: http://localhost:11434
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(body), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Search.VectorWeight, 1e-9)
	assert.Equal(t, 256, cfg.Search.TopK)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	// Untouched fields keep their defaults.
	assert.InDelta(t, 0.95, cfg.Search.DenseWeight, 1e-9)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	body := "embeddings:\n  provider: ollama\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(body), 0o644))
	t.Setenv("IA_EMBED_PROVIDER", "static")
	t.Setenv("IA_VECTOR_WEIGHT", "0.7")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.InDelta(t, 0.7, cfg.Search.VectorWeight, 1e-9)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.LexicalWeight = 0.5
	cfg.Search.DenseWeight = 0.9
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidateRerankRequiresURL(t *testing.T) {
	cfg := NewConfig()
	cfg.Rerank.Enabled = true
	require.Error(t, cfg.Validate())

	cfg.Rerank.Client.BaseURL = "http://localhost:8000"
	require.NoError(t, cfg.Validate())
}

func TestLoadFileMissingErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := NewConfig()
	cfg.Search.TopK = 64
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 64, loaded.Search.TopK)
}
