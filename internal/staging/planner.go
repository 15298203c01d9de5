package staging

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"stagewise/internal/boundary"
	"stagewise/internal/errors"
	"stagewise/internal/graph"
	"stagewise/internal/impact"
	"stagewise/internal/slogutil"
)

// Options configures the planner
type Options struct {
	// MaxBoundarySize is reported in warnings for forced boundaries
	MaxBoundarySize int

	// ComplexityThreshold warns about boundaries above it; 0 disables
	ComplexityThreshold float64
}

// Input is what the planner orders
type Input struct {
	// Boundaries with dependencies resolved, in builder order
	Boundaries []boundary.CommitBoundary
	// Graph is the resolved dependency graph; nil rebuilds it from Boundaries
	Graph *graph.Graph
	// CycleWarnings come from dependency resolution
	CycleWarnings []string
	// BuildWarnings come from clustering
	BuildWarnings []string
}

// Planner assembles staging strategies
type Planner struct {
	opts   Options
	logger *slog.Logger
}

// NewPlanner creates a planner
func NewPlanner(opts Options, logger *slog.Logger) *Planner {
	return &Planner{opts: opts, logger: slogutil.OrDiscard(logger)}
}

// EstimateTime is round(2 + complexity*1.2 + 0.3*files) minutes
func EstimateTime(complexity float64, files int) int {
	return int(math.Round(2 + complexity*1.2 + 0.3*float64(files)))
}

// Plan orders boundaries by dependency depth, then descending priority,
// then builder position, and fills in per-commit metadata.
func (p *Planner) Plan(in Input) (StagingStrategy, error) {
	g := in.Graph
	if g == nil {
		g = DependencyGraph(in.Boundaries)
	}
	depths, err := g.Depths()
	if err != nil {
		return StagingStrategy{}, errors.New(errors.InternalError, "dependency graph is not acyclic", err, nil)
	}

	order := make([]int, len(in.Boundaries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := in.Boundaries[order[x]], in.Boundaries[order[y]]
		if depths[a.ID] != depths[b.ID] {
			return depths[a.ID] < depths[b.ID]
		}
		return a.Priority.Rank() > b.Priority.Rank()
	})

	s := StagingStrategy{
		Commits:  make([]PlannedCommit, 0, len(order)),
		Warnings: []string{},
	}
	for _, i := range order {
		b := in.Boundaries[i].Clone()
		s.Commits = append(s.Commits, PlannedCommit{
			Boundary:      b,
			Message:       NewMessageSkeleton(b),
			Rationale:     rationaleFor(b, depths[b.ID]),
			Risk:          b.Risk(),
			EstimatedTime: EstimateTime(b.EstimatedComplexity, b.FileCount()),
		})
	}

	for _, c := range s.Commits {
		if c.Boundary.Forced {
			s.Warnings = append(s.Warnings, fmt.Sprintf(
				"boundary %q has %d files, above the maximum of %d (forced)",
				c.Boundary.Theme, c.Boundary.FileCount(), p.opts.MaxBoundarySize))
		}
	}
	s.Warnings = append(s.Warnings, in.CycleWarnings...)
	if p.opts.ComplexityThreshold > 0 {
		for _, c := range s.Commits {
			if c.Boundary.EstimatedComplexity > p.opts.ComplexityThreshold {
				s.Warnings = append(s.Warnings, fmt.Sprintf(
					"boundary %q has complexity %.1f, above the threshold of %.1f; consider splitting it",
					c.Boundary.Theme, c.Boundary.EstimatedComplexity, p.opts.ComplexityThreshold))
			}
		}
	}
	s.Warnings = append(s.Warnings, in.BuildWarnings...)

	s = s.Normalize()
	p.logger.Debug("staging plan assembled",
		"commits", len(s.Commits),
		"strategy", s.Strategy,
		"overallRisk", s.OverallRisk,
		"warnings", len(s.Warnings),
	)
	return s, nil
}

// Normalize renumbers commits 1..n and recomputes the strategy type,
// overall risk and file total from the commits.
func (s StagingStrategy) Normalize() StagingStrategy {
	out := s
	out.Commits = append([]PlannedCommit(nil), s.Commits...)
	out.OverallRisk = impact.RiskLow
	out.TotalFiles = 0
	for i := range out.Commits {
		out.Commits[i].Order = i + 1
		out.OverallRisk = impact.MaxLevel(out.OverallRisk, out.Commits[i].Risk)
		out.TotalFiles += out.Commits[i].Boundary.FileCount()
	}
	out.Strategy = StrategyFor(out.DependencyGraph())
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}

// Restabilize reorders commits into a valid topological order that keeps
// their current relative order wherever the dependencies allow.
func Restabilize(commits []PlannedCommit) ([]PlannedCommit, error) {
	bs := make([]boundary.CommitBoundary, len(commits))
	pos := make(map[string]int, len(commits))
	for i, c := range commits {
		bs[i] = c.Boundary
		pos[c.Boundary.ID] = i
	}
	ids, err := DependencyGraph(bs).TopoOrder(func(id string) int { return pos[id] })
	if err != nil {
		return nil, err
	}
	out := make([]PlannedCommit, len(ids))
	for i, id := range ids {
		out[i] = commits[pos[id]]
	}
	return out, nil
}

func rationaleFor(b boundary.CommitBoundary, depth int) string {
	var lead string
	switch n := len(b.Dependencies); {
	case n == 0:
		lead = "Independent of other commits"
	case depth > 1:
		lead = fmt.Sprintf("Follows %d prerequisite commit(s) at depth %d", n, depth)
	default:
		lead = fmt.Sprintf("Follows %d prerequisite commit(s)", n)
	}

	var why string
	switch b.Priority {
	case boundary.PriorityHigh:
		why = "high priority: touches critical files or breaks exported API"
	case boundary.PriorityMedium:
		why = "medium priority: large change"
	default:
		why = "low priority: small, contained change"
	}
	return fmt.Sprintf("%s; %s", lead, why)
}
