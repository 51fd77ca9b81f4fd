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

// =============================================================================
// Pass 4: edge direction marking
// =============================================================================

// markFrame is one pending visit of the marking traversal.
type markFrame struct {
	curr    string
	prev    string
	hasPrev bool
}

// markEdges classifies every cross-section edge as forward or backward.
//
// Description:
//
//	Runs markFrom from every node in lexicographic order with one visited
//	set shared across all roots, so each node's out-edges are explored
//	once. Every node is a root, so every cross-section edge is reached.
func (g *Graph) markEdges() {
	visited := make(stringSet, len(g.nodes))
	for _, node := range g.nodes.sorted() {
		g.markFrom(node, visited)
	}
}

// markFrom runs the depth-first marking traversal rooted at root.
//
// Description:
//
//	Each frame is a (current, predecessor-or-none) pair. The root frame has
//	no predecessor. For a frame with a predecessor in another section the
//	edge predecessor -> current is a boundary: it is classified and the
//	traversal does not continue past it. Otherwise, if current has not been
//	visited, it is marked visited and its children are pushed with current
//	as their predecessor.
//
//	Children are pushed in reverse order so they are popped in
//	lexicographic order, the order a recursive traversal would use.
//
// Inputs:
//
//	root - The node to start from.
//	visited - Nodes whose out-edges were already explored. Shared across roots.
func (g *Graph) markFrom(root string, visited stringSet) {
	stack := []markFrame{{curr: root}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if frame.hasPrev && g.sectionIndex[frame.curr] != g.sectionIndex[frame.prev] {
			g.markBoundary(frame.prev, frame.curr)
			continue
		}
		if visited.has(frame.curr) {
			continue
		}
		visited.add(frame.curr)

		children := g.outgoing[frame.curr].sorted()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, markFrame{curr: children[i], prev: frame.curr, hasPrev: true})
		}
	}
}

// markBoundary classifies the cross-section edge tail -> head by the
// document order of the two sections.
func (g *Graph) markBoundary(tail, head string) {
	tailPos := g.sectionPosition(g.sectionIndex[tail])
	headPos := g.sectionPosition(g.sectionIndex[head])

	switch {
	case headPos < tailPos:
		g.markEdge(tail, head, EdgeKindBackward)
	case headPos > tailPos:
		g.markEdge(tail, head, EdgeKindForward)
	}
}

// markEdge re-kinds the edge tail -> head.
//
// The replacement keeps the frequency and the implicit and self-contained
// markers of the edge it replaces. Only kind and weight change.
func (g *Graph) markEdge(tail, head string, kind EdgeKind) {
	current, ok := g.GetEdge(tail, head)
	if !ok {
		return
	}

	marked := NewEdge(tail, head, kind)
	marked.Frequency = current.Frequency
	marked.Implicit = current.Implicit
	marked.SelfContained = current.SelfContained
	if marked.SelfContained {
		marked.Weight *= selfContainedFactor
	}

	if err := g.ReplaceEdge(marked); err != nil {
		return
	}

	key := marked.Key()
	switch kind {
	case EdgeKindForward:
		delete(g.backward, key)
		g.forward[key] = struct{}{}
	case EdgeKindBackward:
		delete(g.forward, key)
		g.backward[key] = struct{}{}
	}
}
