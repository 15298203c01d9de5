// Package engine runs the full planning pipeline: filter, classify and
// relate, assess impact, cluster into boundaries, resolve dependencies,
// order the plan and check its invariants.
//
// Usage:
//
//	eng, err := engine.New(engine.DefaultOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	strategy, err := eng.Plan(ctx, changes)
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"stagewise/internal/boundary"
	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/deps"
	"stagewise/internal/errors"
	"stagewise/internal/impact"
	"stagewise/internal/relations"
	"stagewise/internal/slogutil"
	"stagewise/internal/staging"
	"stagewise/internal/symbols"
)

// Engine plans staging strategies. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	opts      Options
	matcher   *changes.Matcher
	extractor *symbols.Extractor
	logger    *slog.Logger
}

// New validates opts and creates an engine
func New(opts Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	matcher, err := changes.NewMatcher(opts.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	logger = slogutil.OrDiscard(logger)
	return &Engine{
		opts:      opts,
		matcher:   matcher,
		extractor: symbols.NewExtractor(logger),
		logger:    logger,
	}, nil
}

// Options returns the options the engine was created with
func (e *Engine) Options() Options {
	return e.opts
}

// Plan computes the staging strategy for cs. On failure the zero strategy
// is returned with the error; a partial plan is never returned.
func (e *Engine) Plan(ctx context.Context, cs []changes.GitChange) (staging.StagingStrategy, error) {
	kept, ignored := changes.Filter(cs, e.matcher)
	if len(ignored) > 0 {
		e.logger.Info("ignored changes", "count", len(ignored), "patterns", e.matcher.Len())
	}
	if len(kept) == 0 {
		return staging.StagingStrategy{}, errors.NewEmptyInputError()
	}
	if err := changes.Validate(kept); err != nil {
		return staging.StagingStrategy{}, err
	}

	var warnings []string
	degraded := len(kept) > e.opts.SizeGuard
	if degraded {
		warnings = append(warnings, fmt.Sprintf(
			"%d changed files exceed the size guard of %d; classification used paths only and relationships used path heuristics",
			len(kept), e.opts.SizeGuard))
		e.logger.Warn("size guard exceeded, analysis degraded", "files", len(kept), "sizeGuard", e.opts.SizeGuard)
	}

	extractor := e.extractor
	if degraded {
		extractor = extractor.PatternOnly()
	}
	classifier := classify.NewClassifier(e.opts.Weights, e.logger, classify.WithExtractor(extractor))
	analyzer := relations.NewAnalyzer(e.opts.relationOptions(degraded), extractor, e.logger)

	var (
		analyses []classify.Analysis
		rels     []relations.FileRelationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analyses, err = classifier.ClassifyAll(gctx, kept, degraded)
		return err
	})
	g.Go(func() error {
		var err error
		rels, err = analyzer.Analyze(gctx, kept)
		return err
	})
	if err := g.Wait(); err != nil {
		return staging.StagingStrategy{}, errors.New(errors.InternalError, "analysis interrupted", err, nil)
	}

	assessments, err := impact.NewAnalyzer(e.logger).AssessAll(kept, analyses)
	if err != nil {
		return staging.StagingStrategy{}, err
	}

	built, err := boundary.NewBuilder(e.opts.BoundaryOptions(), e.logger).Build(kept, analyses, assessments, rels)
	if err != nil {
		return staging.StagingStrategy{}, err
	}

	resolved := deps.NewResolver(e.opts.DependencyThreshold, e.logger).Resolve(built.Boundaries, rels)

	s, err := staging.NewPlanner(e.opts.plannerOptions(), e.logger).Plan(staging.Input{
		Boundaries:    resolved.Boundaries,
		Graph:         resolved.Graph,
		CycleWarnings: resolved.Warnings,
		BuildWarnings: built.Warnings,
	})
	if err != nil {
		return staging.StagingStrategy{}, err
	}
	s.Warnings = append(warnings, s.Warnings...)
	if s.Warnings == nil {
		s.Warnings = []string{}
	}

	if err := staging.Validate(s, changes.Paths(kept)); err != nil {
		e.logger.Error("plan failed invariant checks", "error", err)
		return staging.StagingStrategy{}, err
	}

	e.logger.Info("staging plan ready",
		"files", s.TotalFiles,
		"commits", len(s.Commits),
		"strategy", s.Strategy,
		"overallRisk", s.OverallRisk,
		"warnings", len(s.Warnings),
	)
	return s, nil
}
