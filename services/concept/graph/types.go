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
	"io"
	"log/slog"
	"sort"
)

// GraphOptions configures construction and postprocessing behavior.
type GraphOptions struct {
	// ImplicitReferences adds context -> sub-phrase edges during Parse.
	// Default: true
	ImplicitReferences bool

	// MarkReferences enables Pass 4 (forward/backward edge marking).
	// Default: true
	MarkReferences bool

	// Logger receives debug output from the pipeline. Nil discards.
	Logger *slog.Logger
}

// DefaultGraphOptions returns the defaults used by NewGraph.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		ImplicitReferences: true,
		MarkReferences:     true,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithImplicitReferences toggles implicit sub-phrase edges during Parse.
func WithImplicitReferences(enabled bool) GraphOption {
	return func(o *GraphOptions) {
		o.ImplicitReferences = enabled
	}
}

// WithMarkReferences toggles forward/backward marking in Postprocess.
func WithMarkReferences(enabled bool) GraphOption {
	return func(o *GraphOptions) {
		o.MarkReferences = enabled
	}
}

// WithLogger sets the logger used by the pipeline.
func WithLogger(logger *slog.Logger) GraphOption {
	return func(o *GraphOptions) {
		o.Logger = logger
	}
}

// discardLogger is used when no logger is configured.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// SectionCount is one entry of a node's historical observation tally.
type SectionCount struct {
	Section string `json:"section"`
	Count   int    `json:"count"`
}

// tally is an insertion-ordered per-section observation counter.
//
// The order of first observation is the tie-break policy for majority
// section selection, so it must be preserved.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

// inc increments the count for section, recording first observation order.
func (t *tally) inc(section string) {
	if _, ok := t.counts[section]; !ok {
		t.order = append(t.order, section)
	}
	t.counts[section]++
}

// majority returns the section with the highest count. Ties go to the
// section observed first.
func (t *tally) majority() (string, bool) {
	best := ""
	bestCount := 0
	found := false
	for _, section := range t.order {
		if c := t.counts[section]; !found || c > bestCount {
			best, bestCount, found = section, c, true
		}
	}
	return best, found
}

func (t *tally) entries() []SectionCount {
	out := make([]SectionCount, 0, len(t.order))
	for _, section := range t.order {
		out = append(out, SectionCount{Section: section, Count: t.counts[section]})
	}
	return out
}

func (t *tally) clone() *tally {
	c := &tally{
		order:  append([]string(nil), t.order...),
		counts: make(map[string]int, len(t.counts)),
	}
	for k, v := range t.counts {
		c.counts[k] = v
	}
	return c
}

// stringSet is a set of strings.
type stringSet map[string]struct{}

func (s stringSet) add(v string) {
	s[v] = struct{}{}
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

// sorted returns the members in lexicographic order.
func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s stringSet) clone() stringSet {
	c := make(stringSet, len(s))
	for v := range s {
		c[v] = struct{}{}
	}
	return c
}

// adjacency maps a node to a set of neighbours.
type adjacency map[string]stringSet

func (a adjacency) add(from, to string) {
	set, ok := a[from]
	if !ok {
		set = make(stringSet)
		a[from] = set
	}
	set.add(to)
}

func (a adjacency) remove(from, to string) {
	if set, ok := a[from]; ok {
		delete(set, to)
	}
}

func (a adjacency) clone() adjacency {
	c := make(adjacency, len(a))
	for k, v := range a {
		c[k] = v.clone()
	}
	return c
}
