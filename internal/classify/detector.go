package classify

import (
	"context"

	"stagewise/internal/changes"
	"stagewise/internal/symbols"
)

// Input is what a detector sees of one change.
type Input struct {
	Change changes.GitChange

	// Added and Removed are the symbol views of the added and removed lines.
	// Both are empty when PathOnly is set.
	Added   symbols.Fragment
	Removed symbols.Fragment

	AddedLines   []string
	RemovedLines []string

	// PathOnly is set when hunk content is unreadable or analysis is degraded
	PathOnly bool
}

// NewInput builds detector input for change. Content is skipped when
// pathOnly is set or the change carries no readable lines.
func NewInput(ctx context.Context, ext *symbols.Extractor, change changes.GitChange, pathOnly bool) Input {
	in := Input{Change: change, PathOnly: pathOnly || !change.HasContent()}
	if in.PathOnly {
		return in
	}
	in.AddedLines = change.AddedLines()
	in.RemovedLines = change.RemovedLines()
	in.Added = ext.Extract(ctx, change.Path, in.AddedLines)
	in.Removed = ext.Extract(ctx, change.Path, in.RemovedLines)
	return in
}

// RemovedExports is the exported API this change removes without re-adding
func (in Input) RemovedExports() []string {
	return symbols.RemovedExported(in.Removed, in.Added)
}

// Detection is one detector's opinion of a change
type Detection struct {
	Category   Category
	Confidence float64
	Reasoning  string
	Evidence   []string
}

// Detector is a named, independently testable classification rule.
// Detect returns false when the rule has nothing to say about the change.
type Detector interface {
	Name() string
	Detect(in Input) (Detection, bool)
}

// Detector names, in default registry order
const (
	DetectorAPI           = "api"
	DetectorTest          = "test"
	DetectorConfig        = "config"
	DetectorDocumentation = "documentation"
	DetectorSecurity      = "security"
	DetectorPerformance   = "performance"
	DetectorDeployment    = "deployment"
	DetectorGeneric       = "generic-source"
)

// DefaultDetectors returns the built-in registry in evaluation order.
// generic-source is last and always answers.
func DefaultDetectors() []Detector {
	return []Detector{
		apiDetector{},
		testDetector{},
		configDetector{},
		documentationDetector{},
		securityDetector{},
		performanceDetector{},
		deploymentDetector{},
		genericDetector{},
	}
}
