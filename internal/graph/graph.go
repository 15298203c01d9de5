// Package graph provides a small directed weighted graph with the ordering
// algorithms the staging plan needs: cycle detection, depth and stable
// topological order.
package graph

import (
	"fmt"
)

// Edge represents a directed edge: From must come before To.
type Edge struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Weight   float64 `json:"weight"` // 0.0-1.0
	Kind     string  `json:"kind,omitempty"`
	Evidence string  `json:"evidence,omitempty"`
}

// Graph is a sparse directed graph. Nodes keep insertion order, and edges
// keep insertion order per source node, so every traversal is deterministic.
type Graph struct {
	// Node IDs (for index lookup)
	nodes   []string
	nodeIdx map[string]int

	// Adjacency lists: outEdges[i] = edges leaving node i
	outEdges [][]edgeEntry
	inEdges  [][]int // predecessor indices
}

type edgeEntry struct {
	target   int
	weight   float64
	kind     string
	evidence string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodeIdx: make(map[string]int)}
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	return idx
}

// AddEdge adds a directed edge. A repeated edge keeps one entry with the
// higher weight. Both endpoints are registered; self-loops add no edge.
func (g *Graph) AddEdge(e Edge) {
	src := g.AddNode(e.From)
	dst := g.AddNode(e.To)
	if src == dst {
		return
	}
	for i, existing := range g.outEdges[src] {
		if existing.target == dst {
			if e.Weight > existing.weight {
				g.outEdges[src][i] = edgeEntry{target: dst, weight: e.Weight, kind: e.Kind, evidence: e.Evidence}
			}
			return
		}
	}
	g.outEdges[src] = append(g.outEdges[src], edgeEntry{target: dst, weight: e.Weight, kind: e.Kind, evidence: e.Evidence})
	g.inEdges[dst] = append(g.inEdges[dst], src)
}

// RemoveEdge deletes the edge from -> to, reporting whether it existed.
func (g *Graph) RemoveEdge(from, to string) bool {
	src, ok1 := g.nodeIdx[from]
	dst, ok2 := g.nodeIdx[to]
	if !ok1 || !ok2 {
		return false
	}
	found := false
	out := g.outEdges[src][:0]
	for _, e := range g.outEdges[src] {
		if e.target == dst {
			found = true
			continue
		}
		out = append(out, e)
	}
	g.outEdges[src] = out
	if !found {
		return false
	}
	in := g.inEdges[dst][:0]
	for _, p := range g.inEdges[dst] {
		if p != src {
			in = append(in, p)
		}
	}
	g.inEdges[dst] = in
	return true
}

// HasNode checks if a node exists in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// HasEdge checks for an edge from -> to.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edge(from, to)
	return ok
}

func (g *Graph) edge(from, to string) (edgeEntry, bool) {
	src, ok1 := g.nodeIdx[from]
	dst, ok2 := g.nodeIdx[to]
	if !ok1 || !ok2 {
		return edgeEntry{}, false
	}
	for _, e := range g.outEdges[src] {
		if e.target == dst {
			return e, true
		}
	}
	return edgeEntry{}, false
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the total number of edges.
func (g *Graph) NumEdges() int {
	total := 0
	for _, edges := range g.outEdges {
		total += len(edges)
	}
	return total
}

// AllNodes returns all node IDs in insertion order.
func (g *Graph) AllNodes() []string {
	return append([]string(nil), g.nodes...)
}

// Edges returns every edge, ordered by source node then insertion.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.NumEdges())
	for src, edges := range g.outEdges {
		for _, e := range edges {
			out = append(out, g.toEdge(src, e))
		}
	}
	return out
}

func (g *Graph) toEdge(src int, e edgeEntry) Edge {
	return Edge{From: g.nodes[src], To: g.nodes[e.target], Weight: e.weight, Kind: e.kind, Evidence: e.evidence}
}

// Neighbors returns the outgoing neighbors of a node.
func (g *Graph) Neighbors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	neighbors := make([]string, len(g.outEdges[idx]))
	for i, e := range g.outEdges[idx] {
		neighbors[i] = g.nodes[e.target]
	}
	return neighbors
}

// Predecessors returns the nodes with an edge into id.
func (g *Graph) Predecessors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	preds := make([]string, len(g.inEdges[idx]))
	for i, p := range g.inEdges[idx] {
		preds[i] = g.nodes[p]
	}
	return preds
}

// FindCycle returns the edges of the first cycle a depth-first search meets,
// visiting nodes and edges in insertion order, or nil when the graph is
// acyclic.
func (g *Graph) FindCycle() []Edge {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.nodes))
	var stack []int // current DFS path
	var cycle []Edge

	var visit func(n int) bool
	visit = func(n int) bool {
		color[n] = gray
		stack = append(stack, n)
		for _, e := range g.outEdges[n] {
			switch color[e.target] {
			case gray:
				// unwind the path back to e.target
				start := len(stack) - 1
				for stack[start] != e.target {
					start--
				}
				for k := start; k < len(stack)-1; k++ {
					from := stack[k]
					for _, pe := range g.outEdges[from] {
						if pe.target == stack[k+1] {
							cycle = append(cycle, g.toEdge(from, pe))
							break
						}
					}
				}
				cycle = append(cycle, g.toEdge(n, e))
				return true
			case white:
				if visit(e.target) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for n := range g.nodes {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

// IsAcyclic reports whether the graph has no cycle.
func (g *Graph) IsAcyclic() bool {
	return g.FindCycle() == nil
}

// Depths returns, per node, the length of the longest path from any root.
func (g *Graph) Depths() (map[string]int, error) {
	order, err := g.TopoOrder(nil)
	if err != nil {
		return nil, err
	}
	depth := make([]int, len(g.nodes))
	for _, id := range order {
		n := g.nodeIdx[id]
		for _, e := range g.outEdges[n] {
			if depth[n]+1 > depth[e.target] {
				depth[e.target] = depth[n] + 1
			}
		}
	}
	out := make(map[string]int, len(g.nodes))
	for i, id := range g.nodes {
		out[id] = depth[i]
	}
	return out, nil
}

// TopoOrder returns a topological order. Among nodes whose predecessors are
// all placed, the one with the smallest rank goes first; a nil rank uses
// insertion order. It fails when the graph has a cycle.
func (g *Graph) TopoOrder(rank func(id string) int) ([]string, error) {
	if rank == nil {
		rank = func(id string) int { return g.nodeIdx[id] }
	}
	indegree := make([]int, len(g.nodes))
	for _, edges := range g.outEdges {
		for _, e := range edges {
			indegree[e.target]++
		}
	}
	placed := make([]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for n := range g.nodes {
			if placed[n] || indegree[n] > 0 {
				continue
			}
			if next < 0 || rank(g.nodes[n]) < rank(g.nodes[next]) {
				next = n
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("graph has a cycle through %d unplaced node(s)", len(g.nodes)-len(order))
		}
		placed[next] = true
		order = append(order, g.nodes[next])
		for _, e := range g.outEdges[next] {
			indegree[e.target]--
		}
	}
	return order, nil
}

// IsChain reports whether the edges form one path through every node:
// at least two nodes, one root, and every node with at most one
// predecessor and one successor.
func (g *Graph) IsChain() bool {
	n := len(g.nodes)
	if n < 2 || g.NumEdges() != n-1 {
		return false
	}
	roots := 0
	for i := range g.nodes {
		if len(g.outEdges[i]) > 1 || len(g.inEdges[i]) > 1 {
			return false
		}
		if len(g.inEdges[i]) == 0 {
			roots++
		}
	}
	return roots == 1 && g.IsAcyclic()
}

// Violations returns the edges that do not point forward in order. An edge
// touching a node missing from order is a violation.
func (g *Graph) Violations(order []string) []Edge {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	var violated []Edge
	for _, e := range g.Edges() {
		pf, ok1 := pos[e.From]
		pt, ok2 := pos[e.To]
		if !ok1 || !ok2 || pf >= pt {
			violated = append(violated, e)
		}
	}
	return violated
}
