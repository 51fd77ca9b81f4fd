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
	"sort"
)

// structuralView is the unweighted, untyped shape of the graph.
//
// It is rebuilt at the end of every Postprocess run and is read-only
// afterwards.
type structuralView struct {
	nodes []string
	succ  map[string][]string
	pred  map[string][]string
}

// buildStructuralView snapshots nodes and edges of g.
func buildStructuralView(g *Graph) *structuralView {
	v := &structuralView{
		nodes: g.nodes.sorted(),
		succ:  make(map[string][]string, len(g.nodes)),
		pred:  make(map[string][]string, len(g.nodes)),
	}
	for _, n := range v.nodes {
		if heads := g.outgoing[n]; len(heads) > 0 {
			v.succ[n] = heads.sorted()
		}
		if tails := g.incoming[n]; len(tails) > 0 {
			v.pred[n] = tails.sorted()
		}
	}
	return v
}

// =============================================================================
// Cycles
// =============================================================================

// simpleCycles enumerates every simple directed cycle.
//
// Description:
//
//	Johnson's algorithm. Nodes are ranked lexicographically. For each rank
//	s, the strongly connected components of the subgraph induced by nodes
//	of rank >= s are computed; the component holding the lowest ranked node
//	that lies on a cycle supplies the start node, and every elementary
//	circuit through it within that component is reported. Each cycle
//	therefore begins at its lexicographically smallest node.
//
//	Time complexity: O((V + E)(C + 1)) for C cycles.
//
// Outputs:
//
//	[][]string - The cycles, sorted. Empty if the graph is acyclic.
func (v *structuralView) simpleCycles() [][]string {
	rank := make(map[string]int, len(v.nodes))
	for i, n := range v.nodes {
		rank[n] = i
	}

	cycles := make([][]string, 0)

	for s := 0; s < len(v.nodes); {
		from := s
		sccs := stronglyConnected(v.nodes[from:], func(n string) []string {
			out := make([]string, 0, len(v.succ[n]))
			for _, w := range v.succ[n] {
				if rank[w] >= from {
					out = append(out, w)
				}
			}
			return out
		})

		// The component holding the lowest ranked node on a cycle.
		var component map[string]bool
		start := ""
		for _, scc := range sccs {
			if len(scc) < 2 {
				continue
			}
			least := scc[0]
			for _, n := range scc[1:] {
				if rank[n] < rank[least] {
					least = n
				}
			}
			if component == nil || rank[least] < rank[start] {
				start = least
				component = make(map[string]bool, len(scc))
				for _, n := range scc {
					component[n] = true
				}
			}
		}
		if component == nil {
			break
		}

		cycles = append(cycles, v.circuitsThrough(start, component)...)
		s = rank[start] + 1
	}

	sortGroups(cycles)
	return cycles
}

// circuitsThrough returns the elementary circuits through start that stay
// inside component.
func (v *structuralView) circuitsThrough(start string, component map[string]bool) [][]string {
	blocked := make(map[string]bool, len(component))
	blockedBy := make(map[string]map[string]bool, len(component))
	path := make([]string, 0, len(component))
	found := make([][]string, 0)

	var unblock func(n string)
	unblock = func(n string) {
		blocked[n] = false
		for w := range blockedBy[n] {
			delete(blockedBy[n], w)
			if blocked[w] {
				unblock(w)
			}
		}
	}

	var circuit func(n string) bool
	circuit = func(n string) bool {
		closed := false
		path = append(path, n)
		blocked[n] = true

		for _, w := range v.succ[n] {
			if !component[w] {
				continue
			}
			if w == start {
				found = append(found, append([]string(nil), path...))
				closed = true
			} else if !blocked[w] && circuit(w) {
				closed = true
			}
		}

		if closed {
			unblock(n)
		} else {
			for _, w := range v.succ[n] {
				if !component[w] {
					continue
				}
				if blockedBy[w] == nil {
					blockedBy[w] = make(map[string]bool)
				}
				blockedBy[w][n] = true
			}
		}

		path = path[:len(path)-1]
		return closed
	}

	circuit(start)
	return found
}

// stronglyConnected returns the strongly connected components of the graph
// over nodes with successor function succ, using Tarjan's algorithm.
//
// Implementation uses an explicit call stack so deep reference chains do
// not overflow the goroutine stack.
func stronglyConnected(nodes []string, succ func(string) []string) [][]string {
	index := 0
	nodeIndex := make(map[string]int, len(nodes))
	nodeLowLink := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	sccStack := make([]string, 0)
	sccs := make([][]string, 0)

	// callFrame replaces one recursive strongconnect invocation.
	type callFrame struct {
		node     string
		children []string
		next     int
		phase    int    // 0=init, 1=process edges, 2=post-child, 3=finalize
		child    string // child we just returned from (for phase 2)
	}

	strongConnect := func(root string) {
		callStack := []callFrame{{node: root}}

		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]

			switch frame.phase {
			case 0:
				nodeIndex[frame.node] = index
				nodeLowLink[frame.node] = index
				index++
				sccStack = append(sccStack, frame.node)
				onStack[frame.node] = true
				frame.children = succ(frame.node)
				frame.phase = 1

			case 1:
				pushed := false
				for frame.next < len(frame.children) {
					w := frame.children[frame.next]
					frame.next++

					if _, seen := nodeIndex[w]; !seen {
						frame.phase = 2
						frame.child = w
						callStack = append(callStack, callFrame{node: w})
						pushed = true
						break
					} else if onStack[w] && nodeIndex[w] < nodeLowLink[frame.node] {
						nodeLowLink[frame.node] = nodeIndex[w]
					}
				}
				if !pushed {
					frame.phase = 3
				}

			case 2:
				if nodeLowLink[frame.child] < nodeLowLink[frame.node] {
					nodeLowLink[frame.node] = nodeLowLink[frame.child]
				}
				frame.phase = 1

			case 3:
				if nodeLowLink[frame.node] == nodeIndex[frame.node] {
					scc := make([]string, 0)
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.node {
							break
						}
					}
					sccs = append(sccs, scc)
				}
				callStack = callStack[:len(callStack)-1]
			}
		}
	}

	for _, n := range nodes {
		if _, seen := nodeIndex[n]; !seen {
			strongConnect(n)
		}
	}
	return sccs
}

// =============================================================================
// Components
// =============================================================================

// weakComponents partitions the nodes into maximal connected components,
// treating every edge as undirected.
//
// Outputs:
//
//	[][]string - Each component sorted, components ordered by first member.
func (v *structuralView) weakComponents() [][]string {
	seen := make(map[string]bool, len(v.nodes))
	components := make([][]string, 0)

	for _, root := range v.nodes {
		if seen[root] {
			continue
		}
		seen[root] = true
		component := []string{root}
		queue := []string{root}

		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for _, neighbours := range [][]string{v.succ[n], v.pred[n]} {
				for _, w := range neighbours {
					if !seen[w] {
						seen[w] = true
						component = append(component, w)
						queue = append(queue, w)
					}
				}
			}
		}

		sort.Strings(component)
		components = append(components, component)
	}

	sortGroups(components)
	return components
}

// sortGroups orders node groups element-wise, shorter first on a shared
// prefix.
func sortGroups(groups [][]string) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// =============================================================================
// Classification and analysis accessors
// =============================================================================

// ForwardReferences returns the edges marked forward, ordered by (tail, head).
func (g *Graph) ForwardReferences() []*Edge {
	return g.edgesIn(g.forward)
}

// BackwardReferences returns the edges marked backward, ordered by (tail, head).
func (g *Graph) BackwardReferences() []*Edge {
	return g.edgesIn(g.backward)
}

// SelfContainedReferences returns the edges into self-contained nodes,
// ordered by (tail, head).
func (g *Graph) SelfContainedReferences() []*Edge {
	return g.edgesIn(g.external)
}

// SharedEntities returns the nodes referenced across sections, sorted.
func (g *Graph) SharedEntities() []string {
	return g.shared.sorted()
}

// SelfContainedEntities returns the heads of self-contained references, sorted.
func (g *Graph) SelfContainedEntities() []string {
	heads := make(stringSet, len(g.external))
	for key := range g.external {
		heads.add(key.Head)
	}
	return heads.sorted()
}

func (g *Graph) edgesIn(keys map[EdgeKey]struct{}) []*Edge {
	out := make([]*Edge, 0, len(keys))
	for key := range keys {
		if edge, ok := g.edges[key]; ok {
			out = append(out, edge)
		}
	}
	sortEdges(out)
	return out
}

// Cycles returns a copy of the simple cycles found by the last Postprocess.
func (g *Graph) Cycles() [][]string {
	return cloneGroups(g.cycles)
}

// Components returns a copy of the connected components found by the last
// Postprocess.
func (g *Graph) Components() [][]string {
	return cloneGroups(g.components)
}

// =============================================================================
// Density metrics
// =============================================================================
//
// Every mean returns 0 when its denominator is zero. Per-section means skip
// sections with an empty listing and are averaged unweighted. Sums run in
// sorted order so repeated runs produce identical floats.

// MeanOutDegree returns the mean number of out-edges per node.
func (g *Graph) MeanOutDegree() float64 {
	total := 0
	for node := range g.nodes {
		total += len(g.outgoing[node])
	}
	return ratio(float64(total), len(g.nodes))
}

// MeanSectionOutDegree returns the mean over sections of the mean
// out-degree of each section's nodes.
func (g *Graph) MeanSectionOutDegree() float64 {
	return g.sectionMean(func(node string) float64 {
		return float64(len(g.outgoing[node]))
	})
}

// MeanWeightedOutDegree returns the sum of every edge's rendering weight
// divided by the number of nodes.
func (g *Graph) MeanWeightedOutDegree() float64 {
	total := 0.0
	for _, edge := range g.Edges() {
		total += edge.RenderWeight()
	}
	return ratio(total, len(g.nodes))
}

// MeanWeightedSectionOutDegree is the section-restricted analogue of
// MeanWeightedOutDegree.
func (g *Graph) MeanWeightedSectionOutDegree() float64 {
	return g.sectionMean(g.weightedOutDegree)
}

// weightedOutDegree sums the rendering weights of the edges leaving node.
func (g *Graph) weightedOutDegree(node string) float64 {
	total := 0.0
	for _, head := range g.outgoing[node].sorted() {
		if edge, ok := g.edges[EdgeKey{Tail: node, Head: head}]; ok {
			total += edge.RenderWeight()
		}
	}
	return total
}

// sectionMean averages perNode within each non-empty section, then
// averages those means across sections.
func (g *Graph) sectionMean(perNode func(string) float64) float64 {
	sum := 0.0
	counted := 0
	for _, section := range g.sections {
		listing := g.sectionListings[section]
		if len(listing) == 0 {
			continue
		}
		sectionTotal := 0.0
		for _, node := range listing.sorted() {
			sectionTotal += perNode(node)
		}
		sum += sectionTotal / float64(len(listing))
		counted++
	}
	return ratio(sum, counted)
}

// MeanCycleLength returns the mean length of the cycles, 0 if there are none.
func (g *Graph) MeanCycleLength() float64 {
	return meanSize(g.cycles)
}

// MeanComponentSize returns the mean size of the components, 0 if there
// are none.
func (g *Graph) MeanComponentSize() float64 {
	return meanSize(g.components)
}

// Score returns the conceptual density score.
//
// Description:
//
//	Score = MeanWeightedOutDegree + number of cycles + MeanCycleLength.
//	Dense cross-referencing raises the score, and so does cyclic structure
//	through the cycle count and mean cycle length. An empty graph scores 0.
func (g *Graph) Score() float64 {
	return g.MeanWeightedOutDegree() + float64(len(g.cycles)) + g.MeanCycleLength()
}

func meanSize(groups [][]string) float64 {
	total := 0
	for _, grp := range groups {
		total += len(grp)
	}
	return ratio(float64(total), len(groups))
}

func ratio(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den)
}
