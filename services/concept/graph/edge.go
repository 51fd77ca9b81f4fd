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
	"math"
	"sort"
)

// EdgeKind classifies an edge by provenance or direction.
type EdgeKind int

const (
	// EdgeKindPlain is a direct reference from a section to a mention.
	EdgeKindPlain EdgeKind = iota

	// EdgeKindImplicit is a reference from a phrase to a sub-phrase derived
	// from it.
	EdgeKindImplicit

	// EdgeKindForward is a reference into a later section.
	EdgeKindForward

	// EdgeKindBackward is a reference into an earlier section.
	EdgeKindBackward

	// NumEdgeKinds is the total number of edge kinds.
	NumEdgeKinds
)

// edgeKindNames maps EdgeKind values to their string representations.
var edgeKindNames = map[EdgeKind]string{
	EdgeKindPlain:    "plain",
	EdgeKindImplicit: "implicit",
	EdgeKindForward:  "forward",
	EdgeKindBackward: "backward",
}

// edgeKindWeights holds the base weight multiplier of each kind.
// Forward references are rewarded over backward ones.
var edgeKindWeights = [NumEdgeKinds]float64{
	EdgeKindPlain:    1.0,
	EdgeKindImplicit: 0.5,
	EdgeKindForward:  2.0,
	EdgeKindBackward: 1.5,
}

// String returns the string representation of the EdgeKind.
func (k EdgeKind) String() string {
	if name, ok := edgeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// BaseWeight returns the weight multiplier an edge of this kind starts with.
func (k EdgeKind) BaseWeight() float64 {
	if k < 0 || k >= NumEdgeKinds {
		return 1.0
	}
	return edgeKindWeights[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// selfContainedFactor scales the weight of edges into self-contained nodes.
const selfContainedFactor = 0.5

// EdgeKey identifies an edge. Two edges are the same edge iff their keys
// are equal; weight, frequency and kind are not part of identity.
type EdgeKey struct {
	Tail string
	Head string
}

// Edge is a directed reference from Tail to Head.
//
// Frequency counts how often the (Tail, Head) pair was observed. Weight is
// the multiplier derived from the kind and from Pass 3 classification.
type Edge struct {
	// Tail is the node the edge originates from.
	Tail string `json:"tail"`

	// Head is the node the edge points to.
	Head string `json:"head"`

	// Kind is the current classification of the edge.
	Kind EdgeKind `json:"kind"`

	// Weight is the real-valued multiplier applied to Frequency.
	Weight float64 `json:"weight"`

	// Frequency is the number of times the pair was observed.
	Frequency int `json:"frequency"`

	// Implicit marks edges created from a sub-phrase relationship. It is a
	// provenance marker and survives re-kinding to forward or backward.
	Implicit bool `json:"implicit,omitempty"`

	// SelfContained marks edges into a node referenced only from its own
	// section.
	SelfContained bool `json:"self_contained,omitempty"`
}

// newEdge creates an edge of the given kind with frequency 1.
func newEdge(tail, head string, kind EdgeKind) *Edge {
	return &Edge{
		Tail:      tail,
		Head:      head,
		Kind:      kind,
		Weight:    kind.BaseWeight(),
		Frequency: 1,
		Implicit:  kind == EdgeKindImplicit,
	}
}

// NewEdge creates a detached edge, typically passed to ReplaceEdge.
func NewEdge(tail, head string, kind EdgeKind) *Edge {
	return newEdge(tail, head, kind)
}

// Key returns the identity of the edge.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Tail: e.Tail, Head: e.Head}
}

// WeightedFrequency returns Weight * Frequency.
func (e *Edge) WeightedFrequency() float64 {
	return e.Weight * float64(e.Frequency)
}

// RenderWeight returns a log-scaled version of the weighted frequency.
//
// Description:
//
//	Returns 1 + log2(1 + WeightedFrequency). The result is always >= 1 for
//	non-negative weights, and grows sub-linearly so heavily observed edges
//	do not dominate density metrics.
func (e *Edge) RenderWeight() float64 {
	return 1 + math.Log2(1+e.WeightedFrequency())
}

// clone returns a copy of the edge.
func (e *Edge) clone() *Edge {
	c := *e
	return &c
}

// constructionKind is the kind the edge had before any pipeline run.
func (e *Edge) constructionKind() EdgeKind {
	if e.Implicit {
		return EdgeKindImplicit
	}
	return EdgeKindPlain
}

// sortEdges orders edges by (tail, head).
func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Tail != edges[j].Tail {
			return edges[i].Tail < edges[j].Tail
		}
		return edges[i].Head < edges[j].Head
	})
}
