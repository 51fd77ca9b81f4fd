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
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// Postprocess normalizes the graph and rebuilds its analysis.
//
// Description:
//
//	Runs four ordered passes against the current state of the graph:
//
//	  1. Implicit-entity section correction
//	  2. Majority-section reassignment
//	  3. Node and edge categorization
//	  4. Edge direction marking (if MarkReferences is enabled)
//
//	Every run first resets derived state (edge kinds, weights, markers and
//	classification sets), so a run depends only on the section order and
//	the node histories. Running twice without changing either yields the
//	same graph. After the passes the structural view is rebuilt and cycles
//	and components are recomputed.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Checked between passes.
//
// Outputs:
//
//	error - Non-nil only if ctx was cancelled. Wraps ErrCancelled.
//
// Thread Safety:
//
//	Mutates the graph. Not safe for concurrent use.
func (g *Graph) Postprocess(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := startPostprocessSpan(ctx, len(g.nodes), len(g.edges), len(g.sections))
	defer span.End()
	start := time.Now()

	err := g.postprocess(ctx)

	recordPostprocessMetrics(ctx, time.Since(start), len(g.nodes), len(g.edges), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	setPostprocessSpanResult(span, len(g.forward), len(g.backward), len(g.cycles), len(g.components))
	return nil
}

func (g *Graph) postprocess(ctx context.Context) error {
	log := g.options.Logger

	if err := checkCancelled(ctx, "reset"); err != nil {
		return err
	}
	g.resetDerived()
	homed := g.reassignImplicitEntities()

	if err := checkCancelled(ctx, "majority reassignment"); err != nil {
		return err
	}
	moved := g.reassignSections()

	if err := checkCancelled(ctx, "categorization"); err != nil {
		return err
	}
	g.categorizeNodes()

	if g.options.MarkReferences {
		if err := checkCancelled(ctx, "edge marking"); err != nil {
			return err
		}
		g.markEdges()
	}

	if err := checkCancelled(ctx, "analysis"); err != nil {
		return err
	}
	g.view = buildStructuralView(g)
	g.cycles = g.view.simpleCycles()
	g.components = g.view.weakComponents()
	g.runs++

	log.Debug("graph postprocessed",
		"nodes", len(g.nodes),
		"edges", len(g.edges),
		"homed", homed,
		"reassigned", moved,
		"forward", len(g.forward),
		"backward", len(g.backward),
		"self_contained", len(g.external),
		"shared", len(g.shared),
		"cycles", len(g.cycles),
		"components", len(g.components),
	)
	return nil
}

// checkCancelled returns a wrapped ErrCancelled if ctx is done.
func checkCancelled(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: before %s: %w", ErrCancelled, stage, err)
	}
	return nil
}

// resetDerived reverts every edge to its construction kind and base weight
// and clears all classification results.
func (g *Graph) resetDerived() {
	for _, edge := range g.edges {
		edge.Kind = edge.constructionKind()
		edge.Weight = edge.Kind.BaseWeight()
		edge.SelfContained = false
	}
	clear(g.forward)
	clear(g.backward)
	clear(g.external)
	clear(g.shared)
	g.cycles = nil
	g.components = nil
	g.view = nil
}

// =============================================================================
// Pass 1: implicit-entity section correction
// =============================================================================

// reassignImplicitEntities homes section nodes and their implicit children.
//
// Description:
//
//	A section node is first moved into its own section; it can sit in an
//	earlier section when the concept was mentioned before its own section
//	was introduced. Then every node reachable from a section node by one
//	implicit edge is moved into that section node's section. Children that
//	are themselves section nodes stay in their own section.
//
//	Section nodes are visited in document order, so a child derived from
//	several section nodes ends up in the last one. Pass 2 may still move a
//	child to the section holding its observation majority.
//
// Outputs:
//
//	int - The number of nodes moved.
func (g *Graph) reassignImplicitEntities() int {
	moved := 0
	order := g.orderedSectionNodes()

	for _, s := range order {
		if g.moveNode(s, s) {
			moved++
		}
	}

	for _, s := range order {
		home := g.sectionIndex[s]
		for _, child := range g.outgoing[s].sorted() {
			if g.sectionNodes.has(child) {
				continue
			}
			edge, ok := g.GetEdge(s, child)
			if !ok || !edge.Implicit {
				continue
			}
			if g.moveNode(child, home) {
				moved++
			}
		}
	}

	return moved
}

// orderedSectionNodes returns the section nodes in section order, followed
// by any section node whose section is not registered.
func (g *Graph) orderedSectionNodes() []string {
	out := make([]string, 0, len(g.sectionNodes))
	seen := make(stringSet, len(g.sectionNodes))
	for _, s := range g.sections {
		if g.sectionNodes.has(s) {
			out = append(out, s)
			seen.add(s)
		}
	}
	for _, s := range g.sectionNodes.sorted() {
		if !seen.has(s) {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// Pass 2: majority-section reassignment
// =============================================================================

// reassignSections moves every node to the section it was observed in most.
//
// Description:
//
//	Ties go to the section the node was first observed in. Section nodes
//	stay in their own section.
//
// Outputs:
//
//	int - The number of nodes moved.
func (g *Graph) reassignSections() int {
	moved := 0
	for _, node := range g.nodes.sorted() {
		if g.sectionNodes.has(node) {
			continue
		}
		t, ok := g.sectionCounts[node]
		if !ok {
			continue
		}
		section, ok := t.majority()
		if !ok {
			continue
		}
		if g.moveNode(node, section) {
			moved++
		}
	}
	return moved
}

// =============================================================================
// Pass 3: node/edge categorization
// =============================================================================

// categorizeNodes splits referenced nodes into self-contained and shared.
//
// Description:
//
//	A node whose inbound edges all originate in its own section is
//	self-contained: each inbound edge has its weight halved and is recorded
//	as a self-contained reference. A referenced non-section node that is
//	not self-contained is shared. Nodes with no inbound edges are neither.
func (g *Graph) categorizeNodes() {
	for _, section := range g.sections {
		for _, node := range g.sectionListings[section].sorted() {
			tails := g.incoming[node]
			if len(tails) == 0 {
				continue
			}

			referencing := make(stringSet, 1)
			for tail := range tails {
				referencing.add(g.sectionIndex[tail])
			}

			if len(referencing) == 1 && referencing.has(section) {
				for tail := range tails {
					edge, ok := g.GetEdge(tail, node)
					if !ok {
						continue
					}
					edge.Weight *= selfContainedFactor
					edge.SelfContained = true
					g.external[edge.Key()] = struct{}{}
				}
				continue
			}

			if !g.sectionNodes.has(node) {
				g.shared.add(node)
			}
		}
	}
}
