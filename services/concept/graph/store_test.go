// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph()

	assert.True(t, g.AddNode("bread", "bread"))
	assert.True(t, g.AddNode("flour", "bread"))
	assert.False(t, g.AddNode("flour", "wheat"), "existing node is a no-op")

	section, ok := g.SectionOf("flour")
	require.True(t, ok)
	assert.Equal(t, "bread", section, "first section of observation wins")
	assert.Equal(t, []string{"bread"}, g.Sections())
	assert.Equal(t, []string{"bread", "flour"}, g.SectionListing("bread"))
	assert.True(t, g.IsSectionNode("bread"))
	assert.False(t, g.IsSectionNode("flour"))
	assert.Equal(t, []SectionCount{{Section: "bread", Count: 1}}, g.SectionCounts("flour"))

	_, ok = g.SectionOf("missing")
	assert.False(t, ok)
	assert.Nil(t, g.SectionCounts("missing"))
}

func TestGraph_UpdateSectionCount(t *testing.T) {
	g := NewGraph()
	g.AddNode("yeast", "bread")
	g.UpdateSectionCount("yeast", "beer")
	g.UpdateSectionCount("yeast", "beer")
	g.UpdateSectionCount("yeast", "bread")

	assert.Equal(t, []SectionCount{
		{Section: "bread", Count: 2},
		{Section: "beer", Count: 2},
	}, g.SectionCounts("yeast"))

	section, _ := g.SectionOf("yeast")
	assert.Equal(t, "bread", section, "counting does not move the node")
}

func TestGraph_MarkSectionNode(t *testing.T) {
	g := NewGraph()
	g.AddNode("bread", "bread")
	g.AddNode("wheat", "bread")

	assert.False(t, g.MarkSectionNode("rye"), "unknown node")
	assert.True(t, g.MarkSectionNode("wheat"))
	assert.True(t, g.IsSectionNode("wheat"))
	assert.Equal(t, []string{"bread", "wheat"}, g.Sections())
	assert.Equal(t, []string{"bread", "wheat"}, g.SectionNodes())
}

func TestGraph_AddEdge(t *testing.T) {
	t.Run("self loop rejected", func(t *testing.T) {
		g := NewGraph()
		g.AddNode("bread", "bread")

		edge, ok := g.AddEdge("bread", "bread", EdgeKindPlain)
		assert.False(t, ok)
		assert.Nil(t, edge)
		assert.Zero(t, g.EdgeCount())
	})

	t.Run("duplicates increase frequency", func(t *testing.T) {
		g := NewGraph()
		for i := 0; i < 5; i++ {
			_, ok := g.AddEdge("bread", "flour", EdgeKindPlain)
			require.True(t, ok)
		}

		require.Equal(t, 1, g.EdgeCount())
		edge, ok := g.GetEdge("bread", "flour")
		require.True(t, ok)
		assert.Equal(t, 5, edge.Frequency)
		assert.Equal(t, []string{"flour"}, g.Successors("bread"))
		assert.Equal(t, []string{"bread"}, g.Predecessors("flour"))
	})

	t.Run("duplicate keeps first kind", func(t *testing.T) {
		g := NewGraph()
		first, _ := g.AddEdge("wheat flour", "wheat", EdgeKindImplicit)
		second, _ := g.AddEdge("wheat flour", "wheat", EdgeKindPlain)

		assert.Same(t, first, second)
		assert.Equal(t, EdgeKindImplicit, second.Kind)
		assert.True(t, second.Implicit)
		assert.Equal(t, 0.5, second.Weight)
	})

	t.Run("direction matters", func(t *testing.T) {
		g := NewGraph()
		g.AddEdge("a", "b", EdgeKindPlain)
		g.AddEdge("b", "a", EdgeKindPlain)
		assert.Equal(t, 2, g.EdgeCount())
	})
}

func TestGraph_GetEdge_Absent(t *testing.T) {
	g := NewGraph()
	edge, ok := g.GetEdge("bread", "flour")
	assert.False(t, ok)
	assert.Nil(t, edge)
}

func TestGraph_RemoveEdge(t *testing.T) {
	g := NewGraph()
	edge, _ := g.AddEdge("bread", "flour", EdgeKindPlain)

	g.RemoveEdge(edge)
	g.RemoveEdge(edge)
	g.RemoveEdge(nil)
	g.RemoveEdge(NewEdge("never", "added", EdgeKindPlain))

	assert.Zero(t, g.EdgeCount())
	assert.Empty(t, g.Successors("bread"))
	assert.Empty(t, g.Predecessors("flour"))
}

func TestGraph_ReplaceEdge(t *testing.T) {
	g := NewGraph()
	g.AddEdge("bread", "flour", EdgeKindPlain)

	err := g.ReplaceEdge(NewEdge("bread", "rye", EdgeKindForward))
	assert.ErrorIs(t, err, ErrEdgeNotFound)
	assert.Equal(t, 1, g.EdgeCount())

	assert.ErrorIs(t, g.ReplaceEdge(nil), ErrEdgeNotFound)
	assert.Equal(t, 1, g.EdgeCount())

	replacement := NewEdge("bread", "flour", EdgeKindForward)
	replacement.Frequency = 3
	require.NoError(t, g.ReplaceEdge(replacement))

	edge, ok := g.GetEdge("bread", "flour")
	require.True(t, ok)
	assert.Same(t, replacement, edge)
	assert.Equal(t, EdgeKindForward, edge.Kind)
	assert.Equal(t, 3, edge.Frequency)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"flour"}, g.Successors("bread"))
}

func TestGraph_SetSections(t *testing.T) {
	g := NewGraph()
	g.AddNode("a1", "alpha")
	g.AddNode("b1", "beta")
	g.AddNode("g1", "gamma")

	tests := []struct {
		name  string
		order []string
	}{
		{"too short", []string{"alpha", "beta"}},
		{"unknown", []string{"alpha", "beta", "delta"}},
		{"duplicate", []string{"alpha", "beta", "beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, g.SetSections(tt.order), ErrInvalidSectionOrder)
			assert.Equal(t, []string{"alpha", "beta", "gamma"}, g.Sections())
		})
	}

	order := []string{"gamma", "alpha", "beta"}
	require.NoError(t, g.SetSections(order))
	order[0] = "mutated"
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, g.Sections(), "order is copied")

	sections := g.Sections()
	sections[0] = "mutated"
	assert.Equal(t, "gamma", g.Sections()[0], "accessor returns a copy")
}

func TestGraph_Clone(t *testing.T) {
	g := NewGraph()
	g.AddNode("alpha", "alpha")
	g.AddNode("beta", "beta")
	g.AddEdge("alpha", "beta", EdgeKindPlain)

	c := g.Clone()
	c.AddEdge("alpha", "beta", EdgeKindPlain)
	c.AddNode("gamma", "gamma")
	c.UpdateSectionCount("beta", "alpha")
	require.NoError(t, c.SetSections([]string{"gamma", "beta", "alpha"}))

	edge, _ := g.GetEdge("alpha", "beta")
	assert.Equal(t, 1, edge.Frequency)
	assert.False(t, g.HasNode("gamma"))
	assert.Equal(t, []string{"alpha", "beta"}, g.Sections())
	assert.Equal(t, []SectionCount{{Section: "beta", Count: 1}}, g.SectionCounts("beta"))

	cloned, _ := c.GetEdge("alpha", "beta")
	assert.Equal(t, 2, cloned.Frequency)
	assert.NoError(t, c.Validate())
}

func TestGraph_Validate(t *testing.T) {
	newValid := func() *Graph {
		g := NewGraph()
		g.AddNode("bread", "bread")
		g.AddNode("flour", "bread")
		g.AddEdge("bread", "flour", EdgeKindPlain)
		return g
	}

	require.NoError(t, newValid().Validate())

	tests := []struct {
		name    string
		corrupt func(g *Graph)
	}{
		{"listing disagrees with index", func(g *Graph) {
			g.sectionIndex["flour"] = "wheat"
		}},
		{"node in two listings", func(g *Graph) {
			g.AddSection("wheat")
			g.sectionListings["wheat"] = stringSet{"flour": {}}
		}},
		{"dangling adjacency", func(g *Graph) {
			g.outgoing.add("flour", "bread")
		}},
		{"edge missing from incoming", func(g *Graph) {
			g.incoming.remove("flour", "bread")
		}},
		{"self loop", func(g *Graph) {
			g.insertEdge(newEdge("flour", "flour", EdgeKindPlain))
		}},
		{"missing tally", func(g *Graph) {
			delete(g.sectionCounts, "flour")
		}},
		{"edge to unknown head", func(g *Graph) {
			g.AddEdge("bread", "rye", EdgeKindPlain)
		}},
		{"edge from unknown tail", func(g *Graph) {
			g.AddEdge("oven", "bread", EdgeKindPlain)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newValid()
			tt.corrupt(g)
			assert.ErrorIs(t, g.Validate(), ErrInvariantViolation)
		})
	}
}

func TestEdge_Weights(t *testing.T) {
	assert.Equal(t, 1.0, EdgeKindPlain.BaseWeight())
	assert.Equal(t, 0.5, EdgeKindImplicit.BaseWeight())
	assert.Equal(t, 2.0, EdgeKindForward.BaseWeight())
	assert.Equal(t, 1.5, EdgeKindBackward.BaseWeight())
	assert.Greater(t, EdgeKindForward.BaseWeight(), EdgeKindBackward.BaseWeight())
	assert.Equal(t, 1.0, EdgeKind(99).BaseWeight())
	assert.Equal(t, "unknown", EdgeKind(99).String())

	edge := NewEdge("a", "b", EdgeKindPlain)
	assert.Equal(t, 2.0, edge.RenderWeight(), "1 + log2(1 + 1)")

	edge.Frequency = 3
	assert.Equal(t, 3.0, edge.WeightedFrequency())
	assert.Equal(t, 3.0, edge.RenderWeight(), "1 + log2(1 + 3)")

	edge.Weight = 0
	assert.Equal(t, 1.0, edge.RenderWeight(), "never below 1")
}
