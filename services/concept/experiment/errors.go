// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package experiment studies how the density score of a document depends on
// the order of its sections.
//
// Run evaluates every permutation of a graph's section order. Each
// permutation is scored on its own clone of the graph, so permutations are
// evaluated in parallel and the caller's graph is never mutated. Reports
// can be persisted in a BadgerDB-backed Cache keyed by document content
// and options.
package experiment

import "errors"

// Sentinel errors for experiments.
var (
	// ErrNilGraph is returned by Run when no graph is given.
	ErrNilGraph = errors.New("graph is nil")

	// ErrTooManyPermutations is returned by Run when the number of
	// permutations exceeds MaxPermutations and Truncate is not set.
	ErrTooManyPermutations = errors.New("too many permutations")

	// ErrInvalidOptions is returned by Run for out-of-range options.
	ErrInvalidOptions = errors.New("invalid experiment options")

	// ErrCacheMiss is returned by Cache.Get when no report is stored.
	ErrCacheMiss = errors.New("report not cached")
)
