// Package config loads stagewise settings from .stagewise/config.{toml,yaml,json}
// and STAGEWISE_* environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"stagewise/internal/classify"
	"stagewise/internal/errors"
)

// CurrentVersion is the config schema version written by Save
const CurrentVersion = 1

// DirName is the per-repository config directory
const DirName = ".stagewise"

// EnvPrefix scopes environment overrides, e.g. STAGEWISE_BOUNDARIES_MAX_SIZE
const EnvPrefix = "STAGEWISE"

// Config represents the complete stagewise configuration
type Config struct {
	Version int `json:"version" toml:"version" mapstructure:"version"`

	Boundaries     BoundariesConfig `json:"boundaries" toml:"boundaries" mapstructure:"boundaries"`
	Analysis       AnalysisConfig   `json:"analysis" toml:"analysis" mapstructure:"analysis"`
	IgnorePatterns []string         `json:"ignorePatterns" toml:"ignore_patterns" mapstructure:"ignore_patterns"`
	Weights        classify.Weights `json:"weights" toml:"weights" mapstructure:"weights"`
	Output         OutputConfig     `json:"output" toml:"output" mapstructure:"output"`
	Logging        LoggingConfig    `json:"logging" toml:"logging" mapstructure:"logging"`
}

// BoundariesConfig contains clustering and ordering settings
type BoundariesConfig struct {
	MinSize             int     `json:"minSize" toml:"min_size" mapstructure:"min_size"`
	MaxSize             int     `json:"maxSize" toml:"max_size" mapstructure:"max_size"`
	Force               bool    `json:"force" toml:"force" mapstructure:"force"`
	ComplexityThreshold float64 `json:"complexityThreshold" toml:"complexity_threshold" mapstructure:"complexity_threshold"`
	EdgeThreshold       float64 `json:"edgeThreshold" toml:"edge_threshold" mapstructure:"edge_threshold"`
	DependencyThreshold float64 `json:"dependencyThreshold" toml:"dependency_threshold" mapstructure:"dependency_threshold"`
	MediumLineThreshold int     `json:"mediumLineThreshold" toml:"medium_line_threshold" mapstructure:"medium_line_threshold"`
	MediumFileThreshold int     `json:"mediumFileThreshold" toml:"medium_file_threshold" mapstructure:"medium_file_threshold"`
}

// AnalysisConfig contains classification and relationship settings
type AnalysisConfig struct {
	SizeGuard           int     `json:"sizeGuard" toml:"size_guard" mapstructure:"size_guard"`
	Workers             int     `json:"workers" toml:"workers" mapstructure:"workers"`
	SimilarityThreshold float64 `json:"similarityThreshold" toml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// OutputConfig contains rendering defaults
type OutputConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" toml:"level" mapstructure:"level"`
}

// Formats accepted by output.format
var Formats = []string{"human", "json", "yaml", "markdown"}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Boundaries: BoundariesConfig{
			MinSize:             1,
			MaxSize:             8,
			ComplexityThreshold: 8,
			EdgeThreshold:       0.3,
			DependencyThreshold: 0.5,
			MediumLineThreshold: 200,
			MediumFileThreshold: 5,
		},
		Analysis: AnalysisConfig{
			SizeGuard:           500,
			SimilarityThreshold: 0.3,
		},
		IgnorePatterns: []string{},
		Weights:        classify.DefaultWeights(),
		Output:         OutputConfig{Format: "human"},
		Logging:        LoggingConfig{Format: "human", Level: "info"},
	}
}

// Dir returns the config directory of a repository
func Dir(repoRoot string) string {
	return filepath.Join(repoRoot, DirName)
}

// Load reads the config file under repoRoot (if any), applies environment
// overrides and overlays .stagewise/weights.toml.
func Load(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(Dir(repoRoot))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.New(errors.ValidationError, "failed to read config", err, nil)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ValidationError, "failed to decode config", err, nil)
	}
	if cfg.IgnorePatterns == nil {
		cfg.IgnorePatterns = []string{}
	}

	weights, err := LoadWeights(repoRoot, cfg.Weights)
	if err != nil {
		return nil, err
	}
	cfg.Weights = weights

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("boundaries.min_size", d.Boundaries.MinSize)
	v.SetDefault("boundaries.max_size", d.Boundaries.MaxSize)
	v.SetDefault("boundaries.force", d.Boundaries.Force)
	v.SetDefault("boundaries.complexity_threshold", d.Boundaries.ComplexityThreshold)
	v.SetDefault("boundaries.edge_threshold", d.Boundaries.EdgeThreshold)
	v.SetDefault("boundaries.dependency_threshold", d.Boundaries.DependencyThreshold)
	v.SetDefault("boundaries.medium_line_threshold", d.Boundaries.MediumLineThreshold)
	v.SetDefault("boundaries.medium_file_threshold", d.Boundaries.MediumFileThreshold)
	v.SetDefault("analysis.size_guard", d.Analysis.SizeGuard)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.similarity_threshold", d.Analysis.SimilarityThreshold)
	v.SetDefault("ignore_patterns", d.IgnorePatterns)
	v.SetDefault("weights.high_confidence", d.Weights.HighConfidence)
	v.SetDefault("weights.fallback", d.Weights.Fallback)
	v.SetDefault("weights.path_only_factor", d.Weights.PathOnlyFactor)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Save writes the configuration to .stagewise/config.toml
func (c *Config) Save(repoRoot string) (string, error) {
	if err := os.MkdirAll(Dir(repoRoot), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(Dir(repoRoot), "config.toml")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return path, nil
}

// Validate checks the settings owned by the config layer. Planning
// thresholds are validated by the engine.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return errors.NewValidationError("version", fmt.Sprintf("unsupported config version %d", c.Version))
	}
	if !validFormat(c.Output.Format) {
		return errors.NewValidationError("output.format",
			fmt.Sprintf("unknown format %q (want one of %s)", c.Output.Format, strings.Join(Formats, ", ")))
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return errors.NewValidationError("logging.format", fmt.Sprintf("unknown format %q (want human or json)", c.Logging.Format))
	}
	return nil
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
