package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(ids ...string) *Graph {
	g := NewGraph()
	for _, id := range ids {
		g.AddNode(id)
	}
	for i := 0; i+1 < len(ids); i++ {
		g.AddEdge(Edge{From: ids[i], To: ids[i+1], Weight: 1})
	}
	return g
}

func TestAddEdge(t *testing.T) {
	g := NewGraph()
	g.AddEdge(Edge{From: "A", To: "B", Weight: 0.5, Kind: "import"})
	g.AddEdge(Edge{From: "A", To: "B", Weight: 0.9, Kind: "test_pair"})
	g.AddEdge(Edge{From: "A", To: "B", Weight: 0.2})
	g.AddEdge(Edge{From: "C", To: "C", Weight: 1})

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 1, g.NumEdges())
	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, 0.9, edges[0].Weight)
	assert.Equal(t, "test_pair", edges[0].Kind)
	assert.Equal(t, []string{"B"}, g.Neighbors("A"))
	assert.Equal(t, []string{"A"}, g.Predecessors("B"))
	assert.Nil(t, g.Neighbors("missing"))
	assert.True(t, g.HasEdge("A", "B"))
	assert.False(t, g.HasEdge("B", "A"))
}

func TestAddEdge_SelfLoopRegistersNode(t *testing.T) {
	g := NewGraph()
	g.AddEdge(Edge{From: "C", To: "C", Weight: 1})

	assert.Equal(t, 1, g.NumNodes())
	assert.Equal(t, 0, g.NumEdges())
	assert.False(t, g.HasEdge("C", "C"))
	assert.Empty(t, g.Neighbors("C"))
	assert.True(t, g.IsAcyclic())
}

func TestRemoveEdge(t *testing.T) {
	g := chain("A", "B", "C")
	assert.True(t, g.RemoveEdge("A", "B"))
	assert.False(t, g.RemoveEdge("A", "B"))
	assert.False(t, g.RemoveEdge("A", "missing"))
	assert.Empty(t, g.Predecessors("B"))
	assert.Equal(t, 1, g.NumEdges())
}

func TestFindCycle(t *testing.T) {
	g := chain("A", "B", "C")
	assert.Nil(t, g.FindCycle())
	assert.True(t, g.IsAcyclic())

	g.AddEdge(Edge{From: "C", To: "A", Weight: 0.3})
	cycle := g.FindCycle()
	require.Len(t, cycle, 3)
	assert.Equal(t, Edge{From: "A", To: "B", Weight: 1}, cycle[0])
	assert.Equal(t, Edge{From: "B", To: "C", Weight: 1}, cycle[1])
	assert.Equal(t, Edge{From: "C", To: "A", Weight: 0.3}, cycle[2])
	assert.False(t, g.IsAcyclic())

	_, err := g.TopoOrder(nil)
	assert.Error(t, err)
	_, err = g.Depths()
	assert.Error(t, err)
}

func TestFindCycle_InnerLoop(t *testing.T) {
	// A -> B -> C -> B: the cycle excludes A
	g := chain("A", "B", "C")
	g.AddEdge(Edge{From: "C", To: "B", Weight: 0.4})
	cycle := g.FindCycle()
	require.Len(t, cycle, 2)
	assert.Equal(t, "B", cycle[0].From)
	assert.Equal(t, "C", cycle[1].From)
}

func TestDepths(t *testing.T) {
	// A -> B -> D, A -> D, C alone
	g := NewGraph()
	for _, id := range []string{"A", "B", "C", "D"} {
		g.AddNode(id)
	}
	g.AddEdge(Edge{From: "A", To: "B"})
	g.AddEdge(Edge{From: "B", To: "D"})
	g.AddEdge(Edge{From: "A", To: "D"})

	d, err := g.Depths()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 0, "D": 2}, d)
}

func TestTopoOrder(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"A", "B", "C", "D"} {
		g.AddNode(id)
	}
	g.AddEdge(Edge{From: "D", To: "A"})

	order, err := g.TopoOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "A"}, order)

	// rank reverses preference among ready nodes
	rank := map[string]int{"A": 0, "B": 3, "C": 2, "D": 1}
	order, err = g.TopoOrder(func(id string) int { return rank[id] })
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A", "C", "B"}, order)
	assert.Empty(t, g.Violations(order))
	assert.Len(t, g.Violations([]string{"A", "B", "C", "D"}), 1)
	assert.Len(t, g.Violations([]string{"A", "B", "C"}), 1)
}

func TestIsChain(t *testing.T) {
	assert.True(t, chain("A", "B", "C").IsChain())
	assert.False(t, chain("A").IsChain())

	g := chain("A", "B")
	g.AddNode("C")
	assert.False(t, g.IsChain())

	fork := NewGraph()
	fork.AddEdge(Edge{From: "A", To: "B"})
	fork.AddEdge(Edge{From: "A", To: "C"})
	assert.False(t, fork.IsChain())
}
