package engine

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"stagewise/internal/boundary"
	"stagewise/internal/classify"
	"stagewise/internal/config"
	"stagewise/internal/errors"
	"stagewise/internal/relations"
	"stagewise/internal/staging"
)

// Options configures a planning run
type Options struct {
	// MinBoundarySize is the smallest boundary the builder tries to produce (default: 1)
	MinBoundarySize int `validate:"gte=1"`

	// MaxBoundarySize caps boundary size unless Force is set (default: 8)
	MaxBoundarySize int `validate:"gte=1,gtefield=MinBoundarySize"`

	// ComplexityThreshold flags boundaries worth splitting; 0 disables (default: 8)
	ComplexityThreshold float64 `validate:"gte=0,lte=10"`

	// IgnorePatterns are globs for paths left out of the plan
	IgnorePatterns []string `validate:"dive,required"`

	// Force lets boundaries exceed MaxBoundarySize
	Force bool

	// SizeGuard is the change count above which analysis degrades to path heuristics (default: 500)
	SizeGuard int `validate:"gte=1"`

	// Workers bounds relationship goroutines; 0 uses GOMAXPROCS
	Workers int `validate:"gte=0"`

	// EdgeThreshold is the relationship strength that links two files into one boundary (default: 0.3)
	EdgeThreshold float64 `validate:"gt=0,lte=1"`

	// DependencyThreshold is the strength a relationship must exceed to order boundaries (default: 0.5)
	DependencyThreshold float64 `validate:"gt=0,lt=1"`

	// SimilarityThreshold is the minimum cosine similarity for similar changes (default: 0.3)
	SimilarityThreshold float64 `validate:"gt=0,lte=1"`

	// MediumLineThreshold and MediumFileThreshold promote boundaries to medium priority (defaults: 200, 5)
	MediumLineThreshold int `validate:"gte=1"`
	MediumFileThreshold int `validate:"gte=1"`

	// Weights tunes detector selection
	Weights classify.Weights
}

// DefaultOptions returns the default planning options
func DefaultOptions() Options {
	b := boundary.DefaultOptions()
	return Options{
		MinBoundarySize:     b.MinBoundarySize,
		MaxBoundarySize:     b.MaxBoundarySize,
		ComplexityThreshold: 8,
		IgnorePatterns:      []string{},
		SizeGuard:           500,
		EdgeThreshold:       b.EdgeThreshold,
		DependencyThreshold: 0.5,
		SimilarityThreshold: 0.3,
		MediumLineThreshold: b.MediumLineThreshold,
		MediumFileThreshold: b.MediumFileThreshold,
		Weights:             classify.DefaultWeights(),
	}
}

// OptionsFromConfig maps a loaded configuration onto planning options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinBoundarySize:     cfg.Boundaries.MinSize,
		MaxBoundarySize:     cfg.Boundaries.MaxSize,
		ComplexityThreshold: cfg.Boundaries.ComplexityThreshold,
		IgnorePatterns:      append([]string{}, cfg.IgnorePatterns...),
		Force:               cfg.Boundaries.Force,
		SizeGuard:           cfg.Analysis.SizeGuard,
		Workers:             cfg.Analysis.Workers,
		EdgeThreshold:       cfg.Boundaries.EdgeThreshold,
		DependencyThreshold: cfg.Boundaries.DependencyThreshold,
		SimilarityThreshold: cfg.Analysis.SimilarityThreshold,
		MediumLineThreshold: cfg.Boundaries.MediumLineThreshold,
		MediumFileThreshold: cfg.Boundaries.MediumFileThreshold,
		Weights:             cfg.Weights,
	}
}

var validate = validator.New()

// Validate checks every option. The first failure is returned as a
// VALIDATION_ERROR naming the offending field.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) || len(verrs) == 0 {
			return errors.New(errors.ValidationError, "invalid options", err, nil)
		}
		fe := verrs[0]
		return errors.NewValidationError(fieldName(fe.Namespace()), describe(fe))
	}
	return o.Weights.Validate()
}

// BoundaryOptions are the clustering options, also used by mutations to
// describe split halves
func (o Options) BoundaryOptions() boundary.Options {
	return boundary.Options{
		MinBoundarySize:     o.MinBoundarySize,
		MaxBoundarySize:     o.MaxBoundarySize,
		Force:               o.Force,
		EdgeThreshold:       o.EdgeThreshold,
		MediumLineThreshold: o.MediumLineThreshold,
		MediumFileThreshold: o.MediumFileThreshold,
		CompanionVoteFactor: boundary.DefaultOptions().CompanionVoteFactor,
	}
}

func (o Options) relationOptions(degraded bool) relations.Options {
	return relations.Options{
		SimilarityThreshold: o.SimilarityThreshold,
		Workers:             o.Workers,
		Degraded:            degraded,
	}
}

func (o Options) plannerOptions() staging.Options {
	return staging.Options{
		MaxBoundarySize:     o.MaxBoundarySize,
		ComplexityThreshold: o.ComplexityThreshold,
	}
}

// fieldName turns "Options.MaxBoundarySize" into "maxBoundarySize"
func fieldName(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if ns == "" {
		return ns
	}
	return strings.ToLower(ns[:1]) + ns[1:]
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gtefield":
		return fmt.Sprintf("must be >= %s (got %v)", fieldName(fe.Param()), fe.Value())
	case "required":
		return "must not be empty"
	default:
		return fmt.Sprintf("must satisfy %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
}
