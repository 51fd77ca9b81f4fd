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

// Summary holds the headline values of a postprocessed graph.
type Summary struct {
	Sections []string `json:"sections"`

	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	MeanOutDegree                float64 `json:"mean_outdegree"`
	MeanSectionOutDegree         float64 `json:"mean_section_outdegree"`
	MeanWeightedOutDegree        float64 `json:"mean_weighted_outdegree"`
	MeanWeightedSectionOutDegree float64 `json:"mean_weighted_section_outdegree"`

	Components        int     `json:"components"`
	MeanComponentSize float64 `json:"mean_component_size"`

	ForwardReferences       int `json:"forward_references"`
	BackwardReferences      int `json:"backward_references"`
	SelfContainedReferences int `json:"self_contained_references"`
	SharedEntities          int `json:"shared_entities"`

	Cycles          int     `json:"cycles"`
	MeanCycleLength float64 `json:"mean_cycle_length"`

	Score float64 `json:"score"`
}

// Summary returns the counts, metrics and score of the graph.
func (g *Graph) Summary() Summary {
	return Summary{
		Sections:                     g.Sections(),
		Nodes:                        len(g.nodes),
		Edges:                        len(g.edges),
		MeanOutDegree:                g.MeanOutDegree(),
		MeanSectionOutDegree:         g.MeanSectionOutDegree(),
		MeanWeightedOutDegree:        g.MeanWeightedOutDegree(),
		MeanWeightedSectionOutDegree: g.MeanWeightedSectionOutDegree(),
		Components:                   len(g.components),
		MeanComponentSize:            g.MeanComponentSize(),
		ForwardReferences:            len(g.forward),
		BackwardReferences:           len(g.backward),
		SelfContainedReferences:      len(g.external),
		SharedEntities:               len(g.shared),
		Cycles:                       len(g.cycles),
		MeanCycleLength:              g.MeanCycleLength(),
		Score:                        g.Score(),
	}
}
