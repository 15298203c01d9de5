// Package deps orders boundaries: tests and docs come after the feature or
// API work they exercise. The resulting graph is always acyclic.
package deps

import (
	"fmt"
	"log/slog"
	"sort"

	"stagewise/internal/boundary"
	"stagewise/internal/classify"
	"stagewise/internal/graph"
	"stagewise/internal/relations"
	"stagewise/internal/slogutil"
)

// DefaultThreshold is the strength a relationship must exceed to order two boundaries
const DefaultThreshold = 0.5

// Result is the resolved dependency graph
type Result struct {
	// Boundaries are copies of the input with Dependencies filled in
	Boundaries []boundary.CommitBoundary
	// Graph holds one node per boundary id; an edge A -> B means A goes first
	Graph *graph.Graph
	// Removed lists edges dropped to break cycles
	Removed  []graph.Edge
	Warnings []string
}

// Resolver derives dependency edges between boundaries
type Resolver struct {
	threshold float64
	logger    *slog.Logger
}

// NewResolver creates a resolver; threshold <= 0 uses DefaultThreshold
func NewResolver(threshold float64, logger *slog.Logger) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{threshold: threshold, logger: slogutil.OrDiscard(logger)}
}

// Resolve builds the dependency graph and removes cycles. It never fails.
func (r *Resolver) Resolve(bs []boundary.CommitBoundary, rels []relations.FileRelationship) Result {
	g := graph.NewGraph()
	owner := make(map[string]int)
	category := make(map[string]classify.Category)
	for i, b := range bs {
		g.AddNode(b.ID)
		for _, m := range b.Members {
			owner[m.Change.Path] = i
			category[m.Change.Path] = m.Category
		}
	}

	for _, rel := range rels {
		if rel.Type != relations.TestPair && rel.Type != relations.Import {
			continue
		}
		if rel.Strength <= r.threshold {
			continue
		}
		ia, okA := owner[rel.FileA]
		ib, okB := owner[rel.FileB]
		if !okA || !okB || ia == ib {
			continue
		}
		r.link(g, bs[ia], rel.FileA, bs[ib], rel.FileB, category, rel)
		r.link(g, bs[ib], rel.FileB, bs[ia], rel.FileA, category, rel)
	}

	res := Result{Graph: g}
	for {
		cycle := g.FindCycle()
		if cycle == nil {
			break
		}
		drop := weakestEdge(cycle, g.Edges())
		g.RemoveEdge(drop.From, drop.To)
		res.Removed = append(res.Removed, drop)
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"dependency cycle across %d boundaries resolved by dropping %s -> %s (strength %.2f)",
			len(cycle), themeOf(bs, drop.From), themeOf(bs, drop.To), drop.Weight))
	}

	pos := make(map[string]int, len(bs))
	for i, b := range bs {
		pos[b.ID] = i
	}
	res.Boundaries = make([]boundary.CommitBoundary, len(bs))
	for i, b := range bs {
		out := b.Clone()
		preds := g.Predecessors(b.ID)
		sort.Slice(preds, func(x, y int) bool { return pos[preds[x]] < pos[preds[y]] })
		out.Dependencies = append([]string{}, preds...)
		res.Boundaries[i] = out
	}

	r.logger.Debug("dependencies resolved",
		"boundaries", len(bs),
		"edges", g.NumEdges(),
		"cyclesBroken", len(res.Removed),
	)
	return res
}

// link adds first -> then when then is a companion boundary and the first
// file carries feature or API work.
func (r *Resolver) link(g *graph.Graph, first boundary.CommitBoundary, firstFile string, then boundary.CommitBoundary, thenFile string, category map[string]classify.Category, rel relations.FileRelationship) {
	if then.Category != classify.Testing && then.Category != classify.Documentation {
		return
	}
	switch category[firstFile] {
	case classify.FeatureAddition, classify.APIChange:
	default:
		return
	}
	g.AddEdge(graph.Edge{
		From:     first.ID,
		To:       then.ID,
		Weight:   rel.Strength,
		Kind:     string(rel.Type),
		Evidence: fmt.Sprintf("%s %s %s", thenFile, verb(rel.Type), firstFile),
	})
}

func verb(t relations.Type) string {
	if t == relations.TestPair {
		return "tests"
	}
	return "imports"
}

// weakestEdge picks the lowest-weight cycle edge, ties to the edge latest
// in graph order.
func weakestEdge(cycle, all []graph.Edge) graph.Edge {
	rank := make(map[[2]string]int, len(all))
	for i, e := range all {
		rank[[2]string{e.From, e.To}] = i
	}
	best := cycle[0]
	for _, e := range cycle[1:] {
		switch {
		case e.Weight < best.Weight:
			best = e
		case e.Weight == best.Weight && rank[[2]string{e.From, e.To}] > rank[[2]string{best.From, best.To}]:
			best = e
		}
	}
	return best
}

func themeOf(bs []boundary.CommitBoundary, id string) string {
	for _, b := range bs {
		if b.ID == id {
			return fmt.Sprintf("%q", b.Theme)
		}
	}
	return id
}
