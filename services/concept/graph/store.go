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
	"errors"
	"fmt"
	"sort"
)

// Graph is the concept graph of one document.
//
// Description:
//
//	Graph is the registry of nodes, edges and section provenance. It keeps
//	the following coupled structures in agreement:
//
//	- sectionIndex and sectionListings: every node is listed under exactly
//	  the section sectionIndex names for it.
//	- sectionCounts: the historical per-section observation tally. It is
//	  never decremented, even when a node's current section changes.
//	- outgoing, incoming and edges: an edge exists in edges iff its head is
//	  in outgoing[tail] and its tail is in incoming[head].
//
//	Derived state (classification sets, cycles, components, the structural
//	view) is rebuilt by Postprocess.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use. Use Clone() for parallel work.
//
// Lifecycle:
//
//  1. Create with NewGraph() or Parse()
//  2. Build with AddNode(), UpdateSectionCount() and AddEdge() calls
//  3. Call Postprocess() to normalize and analyze
//  4. Optionally SetSections() and Postprocess() again
type Graph struct {
	// nodes is the set of all nodes.
	nodes stringSet

	// sectionIndex maps a node to its current section.
	sectionIndex map[string]string

	// sectionListings maps a section to the nodes currently in it.
	sectionListings map[string]stringSet

	// sectionNodes is the set of nodes that are the title of a section.
	sectionNodes stringSet

	// sections records the order sections are introduced in.
	sections []string

	// sectionCounts maps a node to its historical per-section tally.
	sectionCounts map[string]*tally

	// outgoing maps tail to heads.
	outgoing adjacency

	// incoming maps head to tails.
	incoming adjacency

	// edges maps (tail, head) to the edge instance.
	edges map[EdgeKey]*Edge

	// forward is the set of edges marked as forward references.
	forward map[EdgeKey]struct{}

	// backward is the set of edges marked as backward references.
	backward map[EdgeKey]struct{}

	// external is the set of edges into self-contained nodes.
	external map[EdgeKey]struct{}

	// shared is the set of nodes referenced across sections.
	shared stringSet

	// cycles holds the simple cycles of the structural view.
	cycles [][]string

	// components holds the weakly connected components.
	components [][]string

	// view is the structural view rebuilt at the end of Postprocess.
	view *structuralView

	// runs counts completed Postprocess calls.
	runs int

	options GraphOptions
}

// NewGraph creates a new empty graph.
//
// Example:
//
//	g := NewGraph()
//	g.AddNode("bread", "bread")
//	g.AddNode("flour", "bread")
//	g.AddEdge("bread", "flour", EdgeKindPlain)
func NewGraph(opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = discardLogger
	}

	return &Graph{
		nodes:           make(stringSet),
		sectionIndex:    make(map[string]string),
		sectionListings: make(map[string]stringSet),
		sectionNodes:    make(stringSet),
		sections:        make([]string, 0),
		sectionCounts:   make(map[string]*tally),
		outgoing:        make(adjacency),
		incoming:        make(adjacency),
		edges:           make(map[EdgeKey]*Edge),
		forward:         make(map[EdgeKey]struct{}),
		backward:        make(map[EdgeKey]struct{}),
		external:        make(map[EdgeKey]struct{}),
		shared:          make(stringSet),
		options:         options,
	}
}

// Options returns the options the graph was created with.
func (g *Graph) Options() GraphOptions {
	return g.options
}

// =============================================================================
// Nodes and sections
// =============================================================================

// AddNode registers node under section.
//
// Description:
//
//	No-op if the node already exists; the first section of observation is
//	the node's current section until a pipeline pass reassigns it.
//	Otherwise the node is listed under section, the section is appended to
//	the section order if new, the node's tally for section is incremented,
//	and the node is marked as a section node if node == section.
//
// Outputs:
//
//	bool - True if the node was added, false if it already existed.
func (g *Graph) AddNode(node, section string) bool {
	if g.nodes.has(node) {
		return false
	}

	g.nodes.add(node)
	g.listNode(node, section)
	g.UpdateSectionCount(node, section)
	g.AddSection(section)

	if node == section {
		g.sectionNodes.add(node)
	}

	return true
}

// UpdateSectionCount increments the historical tally of node for section.
//
// Must be called whenever an existing node is observed again, including
// in its own current section.
func (g *Graph) UpdateSectionCount(node, section string) {
	t, ok := g.sectionCounts[node]
	if !ok {
		t = newTally()
		g.sectionCounts[node] = t
	}
	t.inc(section)
}

// AddSection appends section to the section order if it is new.
//
// Outputs:
//
//	bool - True if the section was added.
func (g *Graph) AddSection(section string) bool {
	for _, s := range g.sections {
		if s == section {
			return false
		}
	}
	g.sections = append(g.sections, section)
	return true
}

// MarkSectionNode records that title is the title node of its section.
//
// Description:
//
//	Used when a section title is observed after the same concept was
//	already introduced by another section. The section is registered and
//	the node joins the section node set. The node is homed into its own
//	section by Pass 1 of Postprocess, not here.
//
// Outputs:
//
//	bool - False if title is not a node of the graph.
func (g *Graph) MarkSectionNode(title string) bool {
	if !g.nodes.has(title) {
		return false
	}
	g.AddSection(title)
	g.sectionNodes.add(title)
	return true
}

// listNode sets the current section of node and lists it there.
func (g *Graph) listNode(node, section string) {
	g.sectionIndex[node] = section
	listing, ok := g.sectionListings[section]
	if !ok {
		listing = make(stringSet)
		g.sectionListings[section] = listing
	}
	listing.add(node)
}

// moveNode reassigns node to section. Absence from the old listing is
// tolerated.
//
// Outputs:
//
//	bool - True if the node's section changed.
func (g *Graph) moveNode(node, section string) bool {
	prev, ok := g.sectionIndex[node]
	if ok && prev == section {
		return false
	}
	if ok {
		if listing, exists := g.sectionListings[prev]; exists {
			delete(listing, node)
		}
	}
	g.listNode(node, section)
	return true
}

// HasNode returns true if node is in the graph.
func (g *Graph) HasNode(node string) bool {
	return g.nodes.has(node)
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Nodes returns all nodes in lexicographic order.
func (g *Graph) Nodes() []string {
	return g.nodes.sorted()
}

// SectionOf returns the current section of node.
func (g *Graph) SectionOf(node string) (string, bool) {
	section, ok := g.sectionIndex[node]
	return section, ok
}

// SectionListing returns the nodes currently in section, sorted.
func (g *Graph) SectionListing(section string) []string {
	return g.sectionListings[section].sorted()
}

// SectionNodes returns the section title nodes, sorted.
func (g *Graph) SectionNodes() []string {
	return g.sectionNodes.sorted()
}

// IsSectionNode returns true if node is the title node of a section.
func (g *Graph) IsSectionNode(node string) bool {
	return g.sectionNodes.has(node)
}

// SectionCounts returns the historical tally of node in observation order.
func (g *Graph) SectionCounts(node string) []SectionCount {
	t, ok := g.sectionCounts[node]
	if !ok {
		return nil
	}
	return t.entries()
}

// Sections returns a copy of the section order.
func (g *Graph) Sections() []string {
	return append([]string(nil), g.sections...)
}

// SetSections replaces the section order.
//
// Description:
//
//	The new order must be a permutation of the registered sections. The
//	graph is not renormalized; call Postprocess afterwards.
//
// Errors:
//
//	ErrInvalidSectionOrder - order is not a permutation of Sections().
func (g *Graph) SetSections(order []string) error {
	if len(order) != len(g.sections) {
		return fmt.Errorf("%w: got %d sections, want %d", ErrInvalidSectionOrder, len(order), len(g.sections))
	}

	known := make(stringSet, len(g.sections))
	for _, s := range g.sections {
		known.add(s)
	}
	seen := make(stringSet, len(order))
	for _, s := range order {
		if !known.has(s) {
			return fmt.Errorf("%w: unknown section %q", ErrInvalidSectionOrder, s)
		}
		if seen.has(s) {
			return fmt.Errorf("%w: duplicate section %q", ErrInvalidSectionOrder, s)
		}
		seen.add(s)
	}

	g.sections = append(g.sections[:0:0], order...)
	return nil
}

// sectionPosition returns the index of section in the order, or -1.
func (g *Graph) sectionPosition(section string) int {
	for i, s := range g.sections {
		if s == section {
			return i
		}
	}
	return -1
}

// =============================================================================
// Edges
// =============================================================================

// AddEdge adds a directed edge from tail to head.
//
// Description:
//
//	A concept cannot be defined in terms of itself, so tail == head is
//	rejected. If the pair already exists its frequency is incremented and
//	the existing edge is returned; parallel edges are never created.
//	Otherwise a new edge of the given kind with frequency 1 is registered
//	in both adjacency directions and in the edge index.
//
//	Endpoints are not required to be nodes yet; Validate reports edges
//	whose endpoints never became nodes.
//
// Outputs:
//
//	*Edge - The new or existing edge, nil if rejected.
//	bool - False if the edge was rejected as degenerate.
func (g *Graph) AddEdge(tail, head string, kind EdgeKind) (*Edge, bool) {
	if tail == head {
		return nil, false
	}

	key := EdgeKey{Tail: tail, Head: head}
	if existing, ok := g.edges[key]; ok {
		existing.Frequency++
		return existing, true
	}

	edge := newEdge(tail, head, kind)
	g.insertEdge(edge)
	return edge, true
}

// insertEdge registers edge in the edge index and both adjacency maps.
func (g *Graph) insertEdge(edge *Edge) {
	g.edges[edge.Key()] = edge
	g.outgoing.add(edge.Tail, edge.Head)
	g.incoming.add(edge.Head, edge.Tail)
}

// RemoveEdge removes edge from the edge index and both adjacency maps.
//
// Missing entries are tolerated, so removal is idempotent.
func (g *Graph) RemoveEdge(edge *Edge) {
	if edge == nil {
		return
	}
	delete(g.edges, edge.Key())
	g.outgoing.remove(edge.Tail, edge.Head)
	g.incoming.remove(edge.Head, edge.Tail)
}

// GetEdge returns the edge from tail to head.
//
// Outputs:
//
//	*Edge - The edge if found, nil otherwise.
//	bool - True if the edge was found.
func (g *Graph) GetEdge(tail, head string) (*Edge, bool) {
	edge, ok := g.edges[EdgeKey{Tail: tail, Head: head}]
	return edge, ok
}

// ReplaceEdge puts edge in place of the edge with the same (tail, head).
//
// Description:
//
//	Used to change an edge's kind while keeping its pair. The replacement is
//	inserted as given; callers copy over the frequency and markers they
//	want to keep.
//
// Errors:
//
//	ErrEdgeNotFound - edge is nil or no edge occupies the pair.
func (g *Graph) ReplaceEdge(edge *Edge) error {
	if edge == nil {
		return fmt.Errorf("%w: nil replacement", ErrEdgeNotFound)
	}
	current, ok := g.edges[edge.Key()]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, edge.Tail, edge.Head)
	}
	g.RemoveEdge(current)
	g.insertEdge(edge)
	return nil
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Edges returns all edges ordered by (tail, head).
//
// The returned edges are live; mutate them only through Graph methods.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sortEdges(out)
	return out
}

// Successors returns the heads of edges leaving node, sorted.
func (g *Graph) Successors(node string) []string {
	return g.outgoing[node].sorted()
}

// Predecessors returns the tails of edges entering node, sorted.
func (g *Graph) Predecessors(node string) []string {
	return g.incoming[node].sorted()
}

// OutDegree returns the number of edges leaving node.
func (g *Graph) OutDegree(node string) int {
	return len(g.outgoing[node])
}

// =============================================================================
// Cloning and validation
// =============================================================================

// Clone returns a deep copy of the graph.
//
// Description:
//
//	The copy shares no mutable state with the original, so it can be
//	reordered and renormalized on another goroutine.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:           g.nodes.clone(),
		sectionIndex:    make(map[string]string, len(g.sectionIndex)),
		sectionListings: make(map[string]stringSet, len(g.sectionListings)),
		sectionNodes:    g.sectionNodes.clone(),
		sections:        append([]string(nil), g.sections...),
		sectionCounts:   make(map[string]*tally, len(g.sectionCounts)),
		outgoing:        g.outgoing.clone(),
		incoming:        g.incoming.clone(),
		edges:           make(map[EdgeKey]*Edge, len(g.edges)),
		forward:         cloneKeySet(g.forward),
		backward:        cloneKeySet(g.backward),
		external:        cloneKeySet(g.external),
		shared:          g.shared.clone(),
		cycles:          cloneGroups(g.cycles),
		components:      cloneGroups(g.components),
		runs:            g.runs,
		options:         g.options,
	}
	for k, v := range g.sectionIndex {
		c.sectionIndex[k] = v
	}
	for k, v := range g.sectionListings {
		c.sectionListings[k] = v.clone()
	}
	for k, v := range g.sectionCounts {
		c.sectionCounts[k] = v.clone()
	}
	for k, v := range g.edges {
		c.edges[k] = v.clone()
	}
	if g.view != nil {
		c.view = buildStructuralView(c)
	}
	return c
}

func cloneKeySet(s map[EdgeKey]struct{}) map[EdgeKey]struct{} {
	c := make(map[EdgeKey]struct{}, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

func cloneGroups(groups [][]string) [][]string {
	if groups == nil {
		return nil
	}
	c := make([][]string, len(groups))
	for i, grp := range groups {
		c[i] = append([]string(nil), grp...)
	}
	return c
}

// Validate checks the store's aggregate invariants.
//
// Description:
//
//	Verifies that section listings partition the node set in agreement
//	with the section index, that the adjacency maps and edge index agree,
//	that no self-loop exists, and that every node has a historical tally.
//	After Postprocess, section nodes must also sit in their own section.
//
// Outputs:
//
//	error - nil if consistent, otherwise every violation joined and wrapped
//	        with ErrInvariantViolation.
func (g *Graph) Validate() error {
	var errs []error
	violation := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...))
	}

	listed := 0
	for section, listing := range g.sectionListings {
		for node := range listing {
			listed++
			if !g.nodes.has(node) {
				violation("listing %q holds unknown node %q", section, node)
			}
			if g.sectionIndex[node] != section {
				violation("node %q listed under %q but indexed under %q", node, section, g.sectionIndex[node])
			}
		}
	}
	if listed != len(g.nodes) {
		violation("listings hold %d entries for %d nodes", listed, len(g.nodes))
	}

	for node := range g.nodes {
		section, ok := g.sectionIndex[node]
		if !ok {
			violation("node %q has no section", node)
			continue
		}
		if g.sectionPosition(section) < 0 {
			violation("node %q is in unregistered section %q", node, section)
		}
		if _, ok := g.sectionCounts[node]; !ok {
			violation("node %q has no observation tally", node)
		}
	}

	for key, edge := range g.edges {
		if key.Tail == key.Head {
			violation("self-loop on %q", key.Tail)
		}
		if edge.Key() != key {
			violation("edge %s -> %s indexed under %s -> %s", edge.Tail, edge.Head, key.Tail, key.Head)
		}
		if !g.nodes.has(key.Tail) {
			violation("edge %s -> %s has unknown tail", key.Tail, key.Head)
		}
		if !g.nodes.has(key.Head) {
			violation("edge %s -> %s has unknown head", key.Tail, key.Head)
		}
		if !g.outgoing[key.Tail].has(key.Head) {
			violation("edge %s -> %s missing from outgoing map", key.Tail, key.Head)
		}
		if !g.incoming[key.Head].has(key.Tail) {
			violation("edge %s -> %s missing from incoming map", key.Tail, key.Head)
		}
	}
	for tail, heads := range g.outgoing {
		for head := range heads {
			if _, ok := g.edges[EdgeKey{Tail: tail, Head: head}]; !ok {
				violation("outgoing entry %s -> %s has no edge", tail, head)
			}
		}
	}
	for head, tails := range g.incoming {
		for tail := range tails {
			if _, ok := g.edges[EdgeKey{Tail: tail, Head: head}]; !ok {
				violation("incoming entry %s -> %s has no edge", tail, head)
			}
		}
	}

	if g.runs > 0 {
		for node := range g.sectionNodes {
			if g.sectionIndex[node] != node {
				violation("section node %q is in section %q", node, g.sectionIndex[node])
			}
		}
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}
