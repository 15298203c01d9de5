package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"stagewise/internal/changes"
	"stagewise/internal/slogutil"
	"stagewise/internal/symbols"
)

// Analysis is the classification of one file change
type Analysis struct {
	Path             string   `json:"path"`
	Category         Category `json:"category"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SuggestedActions []string `json:"suggestedActions"`
	Detector         string   `json:"detector"`
	Evidence         []string `json:"evidence,omitempty"`
	PathOnly         bool     `json:"pathOnly,omitempty"`

	// RemovedExports is the exported API the change removes, for impact scoring
	RemovedExports []string `json:"removedExports,omitempty"`
}

// Classifier runs the detector registry over changes. Safe for concurrent use.
type Classifier struct {
	detectors []Detector
	weights   Weights
	extractor *symbols.Extractor
	logger    *slog.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithDetectors replaces the registry. The last detector must always answer.
func WithDetectors(detectors ...Detector) Option {
	return func(c *Classifier) {
		c.detectors = detectors
	}
}

// WithExtractor sets the symbol extractor
func WithExtractor(e *symbols.Extractor) Option {
	return func(c *Classifier) {
		c.extractor = e
	}
}

// NewClassifier creates a classifier with the default registry
func NewClassifier(weights Weights, logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		detectors: DefaultDetectors(),
		weights:   weights,
		logger:    slogutil.OrDiscard(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = symbols.NewExtractor(c.logger)
	}
	return c
}

// Classify labels one change. It never fails: a panicking detector is
// logged and skipped, and generic-source always answers.
func (c *Classifier) Classify(ctx context.Context, change changes.GitChange, pathOnly bool) Analysis {
	in := NewInput(ctx, c.extractor, change, pathOnly)
	return c.classifyInput(in)
}

// ClassifyAll labels every change, preserving order
func (c *Classifier) ClassifyAll(ctx context.Context, cs []changes.GitChange, pathOnly bool) ([]Analysis, error) {
	out := make([]Analysis, len(cs))
	for i, change := range cs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = c.Classify(ctx, change, pathOnly)
	}
	c.logger.Debug("classified changes",
		"count", len(out),
		"pathOnly", pathOnly,
	)
	return out, nil
}

type candidate struct {
	name string
	det  Detection
}

func (c *Classifier) classifyInput(in Input) Analysis {
	var (
		winner   *candidate
		best     *candidate
		fallback *candidate
	)

	for _, d := range c.detectors {
		det, ok := c.safeDetect(d, in)
		if !ok {
			continue
		}
		cand := &candidate{name: d.Name(), det: det}

		if d.Name() == DetectorGeneric {
			if fallback == nil {
				fallback = cand
			}
			if det.Confidence >= c.weights.HighConfidence && winner == nil {
				winner = cand
				break
			}
			continue
		}
		if det.Confidence >= c.weights.HighConfidence {
			winner = cand
			break
		}
		if det.Confidence > c.weights.Fallback && (best == nil || det.Confidence > best.det.Confidence) {
			best = cand
		}
	}

	chosen := winner
	if chosen == nil {
		chosen = best
	}
	if chosen == nil {
		chosen = fallback
	}
	if chosen == nil {
		// only reachable with a custom registry lacking an answering detector
		chosen = &candidate{name: DetectorGeneric, det: genericPathOnly(in.Change)}
	}

	confidence := chosen.det.Confidence
	reasoning := chosen.det.Reasoning
	if in.PathOnly {
		confidence *= c.weights.PathOnlyFactor
		reasoning += " (path only)"
	}

	a := Analysis{
		Path:             in.Change.Path,
		Category:         chosen.det.Category,
		Confidence:       clamp01(confidence),
		Reasoning:        reasoning,
		SuggestedActions: SuggestedActions(chosen.det.Category),
		Detector:         chosen.name,
		Evidence:         chosen.det.Evidence,
		PathOnly:         in.PathOnly,
	}
	if !in.PathOnly {
		a.RemovedExports = in.RemovedExports()
	}
	return a
}

// safeDetect runs one detector, recovering a panic as "no detection"
func (c *Classifier) safeDetect(d Detector, in Input) (det Detection, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("detector panicked, skipping",
				"detector", d.Name(),
				"path", in.Change.Path,
				"panic", fmt.Sprint(r),
			)
			det, ok = Detection{}, false
		}
	}()
	det, ok = d.Detect(in)
	if ok && !det.Category.Valid() {
		c.logger.Warn("detector returned unknown category, skipping",
			"detector", d.Name(),
			"category", string(det.Category),
		)
		return Detection{}, false
	}
	return det, ok
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
