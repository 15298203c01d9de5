package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagewise/internal/classify"
	"stagewise/internal/errors"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(Dir(root), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(Dir(root), name), []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, 1, cfg.Boundaries.MinSize)
	assert.Equal(t, 8, cfg.Boundaries.MaxSize)
	assert.Equal(t, 8.0, cfg.Boundaries.ComplexityThreshold)
	assert.Equal(t, 500, cfg.Analysis.SizeGuard)
	assert.Equal(t, classify.DefaultWeights(), cfg.Weights)
	assert.Equal(t, "human", cfg.Output.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", `
version: 1
boundaries:
  max_size: 4
  force: true
ignore_patterns:
  - "*.lock"
  - vendor/
output:
  format: markdown
`)
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Boundaries.MaxSize)
	assert.True(t, cfg.Boundaries.Force)
	assert.Equal(t, []string{"*.lock", "vendor/"}, cfg.IgnorePatterns)
	assert.Equal(t, "markdown", cfg.Output.Format)
	// untouched keys keep their defaults
	assert.Equal(t, 1, cfg.Boundaries.MinSize)
	assert.Equal(t, 0.5, cfg.Boundaries.DependencyThreshold)
}

func TestLoad_JSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.json", `{"analysis": {"size_guard": 50, "workers": 2}}`)
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Analysis.SizeGuard)
	assert.Equal(t, 2, cfg.Analysis.Workers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.toml", "version = 1\n[boundaries]\nmax_size = 4\n")
	t.Setenv("STAGEWISE_BOUNDARIES_MAX_SIZE", "6")
	t.Setenv("STAGEWISE_LOGGING_LEVEL", "debug")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Boundaries.MaxSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", "output:\n  format: html\n")
	_, err := Load(root)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ValidationError))
	assert.Contains(t, err.Error(), "output.format")

	root = t.TempDir()
	writeFile(t, root, "config.toml", "boundaries = [\n")
	_, err = Load(root)
	assert.True(t, errors.HasCode(err, errors.ValidationError))
}

func TestSaveThenLoad(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Boundaries.MaxSize = 3
	cfg.IgnorePatterns = []string{"dist/"}
	cfg.Weights.PathOnlyFactor = 0.5

	path, err := cfg.Save(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".stagewise", "config.toml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_size = 3")
	assert.Contains(t, string(data), "[weights]")

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadWeights(t *testing.T) {
	base := classify.DefaultWeights()

	w, err := LoadWeights(t.TempDir(), base)
	require.NoError(t, err)
	assert.Equal(t, base, w)

	root := t.TempDir()
	writeFile(t, root, WeightsFile, "high_confidence = 0.9\n")
	w, err = LoadWeights(root, base)
	require.NoError(t, err)
	assert.Equal(t, 0.9, w.HighConfidence)
	assert.Equal(t, base.Fallback, w.Fallback)

	writeFile(t, root, WeightsFile, "fallback = 0.95\n")
	_, err = LoadWeights(root, base)
	assert.True(t, errors.HasCode(err, errors.ValidationError))

	writeFile(t, root, WeightsFile, "fallback = \"high\"\n")
	_, err = LoadWeights(root, base)
	assert.True(t, errors.HasCode(err, errors.ValidationError))
}

func TestWriteWeightsRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := classify.Weights{HighConfidence: 0.85, Fallback: 0.25, PathOnlyFactor: 0.7}
	_, err := WriteWeights(root, want)
	require.NoError(t, err)

	got, err := LoadWeights(root, classify.DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_WeightsOverlay(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, WeightsFile, "path_only_factor = 0.4\n")
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Weights.PathOnlyFactor)
}
