package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tfserving", cfg.Classifier.Type)
	assert.Equal(t, 5, cfg.Annotate.TopK)
	assert.Equal(t, 224, cfg.Annotate.ImageSize)
	assert.Equal(t, 32, cfg.Weights.ExpectedCount)
	assert.Equal(t, "memory", cfg.Search.VectorStore.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
classifier:
  type: openai
features:
  encoder: lire
weights:
  expected_count: 1299
  key_root: /data/images/
  normalize_slashes: true
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NotNil(t, cfg.Classifier.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Classifier.OpenAI.APIKeyEnv)
	assert.Equal(t, "gpt-4o-mini", cfg.Classifier.OpenAI.Model)
	assert.Equal(t, "lire", cfg.Features.Encoder)
	assert.Equal(t, 1299, cfg.Weights.ExpectedCount)
	assert.Equal(t, 2, cfg.Weights.KeyPrefixLen)
	assert.True(t, cfg.Weights.NormalizeSlashes)
	assert.Equal(t, 5, cfg.Annotate.TopK)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitZeroKeyPrefixLen(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("weights:\n  key_prefix_len: 0\n"), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Weights.KeyPrefixLen)
}

func TestLoad_BadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("classifier: [\n"), 0o644))
	_, err := Load(p)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Classifier.Type = "svm"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Features.Encoder = "command"
	assert.Error(t, cfg.Validate())
	cfg.Features.Command = "lire-convert"
	assert.NoError(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Search.VectorStore = VectorStoreConfig{Type: "qdrant", Qdrant: &QdrantConfig{}}
	assert.Error(t, cfg.Validate())
	cfg.Search.VectorStore.Qdrant.URL = "http://localhost:6333"
	assert.NoError(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Annotate.Interpolation = "sinc"
	assert.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Report.Path = "runs.db"
	require.NoError(t, Save(p, cfg))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadFrom(t *testing.T) {
	p := filepath.Join(t.TempDir(), "c.yaml")
	cfg, used, err := LoadFrom(p)
	require.NoError(t, err)
	assert.Equal(t, p, used)
	assert.NotNil(t, cfg)
}
