package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"stagewise/internal/classify"
	"stagewise/internal/errors"
)

// WeightsFile is the optional classifier weights overlay under DirName
const WeightsFile = "weights.toml"

// LoadWeights overlays .stagewise/weights.toml onto base. Keys missing from
// the file keep their base value; a missing file returns base unchanged.
func LoadWeights(repoRoot string, base classify.Weights) (classify.Weights, error) {
	path := filepath.Join(Dir(repoRoot), WeightsFile)
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("failed to read %s: %w", WeightsFile, err)
	}

	w := base
	if err := toml.Unmarshal(data, &w); err != nil {
		return base, errors.New(errors.ValidationError, fmt.Sprintf("failed to parse %s", WeightsFile), err, nil)
	}
	if err := w.Validate(); err != nil {
		return base, err
	}
	return w, nil
}

// WriteWeights writes w to .stagewise/weights.toml
func WriteWeights(repoRoot string, w classify.Weights) (string, error) {
	data, err := toml.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("failed to encode weights: %w", err)
	}
	if err := os.MkdirAll(Dir(repoRoot), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(Dir(repoRoot), WeightsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", WeightsFile, err)
	}
	return path, nil
}
