// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the concept graph store, its normalization pipeline
// and the structural analyzer that scores conceptual density.
//
// The graph package represents a document as a directed graph where nodes are
// normalized concept strings and edges are references between concepts. Every
// node is attributed to exactly one section of the document.
//
// # Lifecycle
//
// A typical graph lifecycle:
//  1. Build with Parse(ctx, source) or NewGraph() plus AddNode/AddEdge calls
//  2. Normalize with Postprocess(ctx)
//  3. Read classification sets, cycles, components and metrics
//  4. Optionally SetSections(order) and Postprocess(ctx) again
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. A graph has a single logical owner.
// Use Clone() to hand an independent copy to another goroutine.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrInvalidSectionOrder is returned by SetSections when the new order is
	// not a permutation of the registered sections.
	ErrInvalidSectionOrder = errors.New("invalid section order")

	// ErrEdgeNotFound is returned by ReplaceEdge when no edge occupies the
	// (tail, head) pair of the replacement.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrInvariantViolation is returned by Validate when the store's coupled
	// structures disagree.
	ErrInvariantViolation = errors.New("graph invariant violated")

	// ErrCancelled is returned when a pipeline run or a build is cancelled
	// via context.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNilSource is returned by Parse when no entity source is given.
	ErrNilSource = errors.New("entity source is nil")
)
