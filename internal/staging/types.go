// Package staging turns resolved boundaries into an ordered staging plan
// and checks the invariants every plan must satisfy.
package staging

import (
	"fmt"
	"strings"

	"stagewise/internal/boundary"
	"stagewise/internal/classify"
	"stagewise/internal/graph"
	"stagewise/internal/impact"
)

// StrategyType is the shape of the dependency graph
type StrategyType string

const (
	// Progressive is a partial order: some commits wait on others
	Progressive StrategyType = "progressive"
	// Parallel has no dependencies: any order works
	Parallel StrategyType = "parallel"
	// Sequential is a single chain through every commit
	Sequential StrategyType = "sequential"
)

// MessageSkeleton is the structured frame of a commit message. Prose is the
// caller's job.
type MessageSkeleton struct {
	Type     string `json:"type" yaml:"type"`
	Scope    string `json:"scope" yaml:"scope"`
	Title    string `json:"title" yaml:"title"`
	Body     string `json:"body" yaml:"body"`
	Breaking bool   `json:"breaking" yaml:"breaking"`
}

// Header renders "type(scope)!: title"
func (m MessageSkeleton) Header() string {
	var b strings.Builder
	b.WriteString(m.Type)
	if m.Scope != "" {
		fmt.Fprintf(&b, "(%s)", m.Scope)
	}
	if m.Breaking {
		b.WriteString("!")
	}
	fmt.Fprintf(&b, ": %s", m.Title)
	return b.String()
}

// PlannedCommit is one step of the plan
type PlannedCommit struct {
	Order         int                     `json:"order"`
	Boundary      boundary.CommitBoundary `json:"boundary"`
	Message       MessageSkeleton         `json:"suggestedMessage"`
	Rationale     string                  `json:"rationale"`
	Risk          impact.RiskLevel        `json:"risk"`
	EstimatedTime int                     `json:"estimatedTime"` // minutes
}

// StagingStrategy is the ordered plan. Treat it as a value: mutations go
// through the mutation package, which returns new snapshots.
type StagingStrategy struct {
	Strategy    StrategyType     `json:"strategy"`
	Commits     []PlannedCommit  `json:"commits"`
	Warnings    []string         `json:"warnings"`
	OverallRisk impact.RiskLevel `json:"overallRisk"`
	TotalFiles  int              `json:"totalFiles"`
}

// Boundaries returns the boundaries in commit order
func (s StagingStrategy) Boundaries() []boundary.CommitBoundary {
	out := make([]boundary.CommitBoundary, len(s.Commits))
	for i, c := range s.Commits {
		out[i] = c.Boundary
	}
	return out
}

// Paths returns every planned file in commit order
func (s StagingStrategy) Paths() []string {
	var out []string
	for _, c := range s.Commits {
		out = append(out, c.Boundary.Paths()...)
	}
	return out
}

// IndexOf returns the position of the boundary with id, or -1
func (s StagingStrategy) IndexOf(id string) int {
	for i, c := range s.Commits {
		if c.Boundary.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy
func (s StagingStrategy) Clone() StagingStrategy {
	out := s
	out.Commits = make([]PlannedCommit, len(s.Commits))
	for i, c := range s.Commits {
		out.Commits[i] = c
		out.Commits[i].Boundary = c.Boundary.Clone()
	}
	out.Warnings = append([]string{}, s.Warnings...)
	return out
}

// DependencyGraph rebuilds the graph from boundary dependencies. Nodes
// follow commit order; dependencies on unknown ids are skipped.
func (s StagingStrategy) DependencyGraph() *graph.Graph {
	return DependencyGraph(s.Boundaries())
}

// DependencyGraph builds the graph of bs: an edge dep -> b for every
// dependency of b on another boundary of bs.
func DependencyGraph(bs []boundary.CommitBoundary) *graph.Graph {
	g := graph.NewGraph()
	known := make(map[string]bool, len(bs))
	for _, b := range bs {
		g.AddNode(b.ID)
		known[b.ID] = true
	}
	for _, b := range bs {
		for _, dep := range b.Dependencies {
			if known[dep] && dep != b.ID {
				g.AddEdge(graph.Edge{From: dep, To: b.ID, Weight: 1})
			}
		}
	}
	return g
}

// StrategyFor classifies the shape of a dependency graph
func StrategyFor(g *graph.Graph) StrategyType {
	switch {
	case g.NumEdges() == 0:
		return Parallel
	case g.IsChain():
		return Sequential
	default:
		return Progressive
	}
}

// NewMessageSkeleton frames the commit message of a boundary
func NewMessageSkeleton(b boundary.CommitBoundary) MessageSkeleton {
	var body strings.Builder
	for i, m := range b.Members {
		if i > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "- %s (+%d/-%d)", m.Change.Path, m.Change.Insertions, m.Change.Deletions)
	}
	return MessageSkeleton{
		Type:     b.Category.ConventionalType(),
		Scope:    b.Topic,
		Title:    b.Theme,
		Body:     body.String(),
		Breaking: b.Breaking() || b.Category == classify.BreakingChange,
	}
}
