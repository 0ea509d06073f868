package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.4, cfg.Rank.SceneThreshold)
	assert.Equal(t, 0.5, cfg.Rank.TextWeight)
	assert.Equal(t, 4, cfg.Rank.NumFrames)
	assert.Equal(t, "onnx", cfg.Embed.Backend)
	assert.Equal(t, 0.005, cfg.Assemble.MinSimilarity)
	assert.Equal(t, 1080, cfg.Assemble.Width)
	assert.Equal(t, 1920, cfg.Assemble.Height)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 8
rank:
  text_weight: 0.7
  num_frames: 6
embed:
  backend: remote
  base_url: https://api.example.com/v1
  model: jina-clip-v2
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 0.7, cfg.Rank.TextWeight)
	assert.Equal(t, 6, cfg.Rank.NumFrames)
	assert.Equal(t, "remote", cfg.Embed.Backend)
	assert.Equal(t, "https://api.example.com/v1", cfg.Embed.BaseURL)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.4, cfg.Rank.SceneThreshold)
	assert.Equal(t, 0.005, cfg.Assemble.MinSimilarity)
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embed:\n  backend: remote\n"), 0644))

	t.Setenv("EMBED_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Embed.APIKey)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rank: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := defaultConfig()
	cfg.Workers = 5
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Workers)
	assert.Equal(t, cfg.Rank, loaded.Rank)
}

func TestConfigContextCarrier(t *testing.T) {
	cfg := defaultConfig()
	cfg.Workers = 7

	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))

	// Absent config falls back to defaults instead of nil.
	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, defaultConfig().Workers, fallback.Workers)
}
