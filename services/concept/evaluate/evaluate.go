// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluate compares a concept graph against hand-annotated ground
// truth and reports precision, recall and F1 per category.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AleutianAI/qcd/services/concept/graph"
	"github.com/AleutianAI/qcd/services/concept/source"
)

// ErrNoGroundTruth is returned when a document carries no annotations.
var ErrNoGroundTruth = errors.New("document has no annotations")

// Category names, in report order.
const (
	CategoryAPrioriConcepts    = "A Priori Concepts"
	CategoryEmergingConcepts   = "Emerging Concepts"
	CategoryConcepts           = "Concepts"
	CategoryForwardReferences  = "Forward References"
	CategoryBackwardReferences = "Backward References"
	CategoryReferencesOverall  = "References Overall"
	CategoryOverallAverage     = "Overall Average"
)

// Metrics holds precision, recall and F1 for one category.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Row is one category of an evaluation.
type Row struct {
	Category string `json:"category"`
	Metrics
}

// GroundTruth is the annotated concept sets of a document.
type GroundTruth struct {
	APriori            []string
	Emerging           []string
	ForwardReferences  []string
	BackwardReferences []string
}

// GroundTruthOf collects the annotations of doc by tag.
func GroundTruthOf(doc *source.Document) GroundTruth {
	return GroundTruth{
		APriori:            doc.Annotated(source.TagAPriori),
		Emerging:           doc.Annotated(source.TagEmerging),
		ForwardReferences:  doc.Annotated(source.TagForward),
		BackwardReferences: doc.Annotated(source.TagBackward),
	}
}

// Empty returns true if no annotation was found.
func (gt GroundTruth) Empty() bool {
	return len(gt.APriori)+len(gt.Emerging)+len(gt.ForwardReferences)+len(gt.BackwardReferences) == 0
}

// Evaluate scores g against the annotations of doc.
//
// Description:
//
//	A Priori Concepts and Emerging Concepts compare each annotated set
//	with the graph's nodes; Concepts compares their union. Forward and backward references compare the annotated concepts
//	with the tails of the graph's forward and backward edges; the tail is
//	the concept making the reference. References Overall uses the unions
//	of both sides. Overall Average is the mean of Concepts and References
//	Overall.
//
// Outputs:
//
//	[]Row - One row per category, in report order.
//	error - ErrNoGroundTruth if doc has no annotations.
func Evaluate(doc *source.Document, g *graph.Graph) ([]Row, error) {
	gt := GroundTruthOf(doc)
	if gt.Empty() {
		return nil, ErrNoGroundTruth
	}

	forward := tails(g.ForwardReferences())
	backward := tails(g.BackwardReferences())

	nodes := g.Nodes()
	concepts := Score(union(gt.APriori, gt.Emerging), nodes)
	references := Score(
		union(gt.ForwardReferences, gt.BackwardReferences),
		union(forward, backward),
	)

	return []Row{
		{Category: CategoryAPrioriConcepts, Metrics: Score(gt.APriori, nodes)},
		{Category: CategoryEmergingConcepts, Metrics: Score(gt.Emerging, nodes)},
		{Category: CategoryConcepts, Metrics: concepts},
		{Category: CategoryForwardReferences, Metrics: Score(gt.ForwardReferences, forward)},
		{Category: CategoryBackwardReferences, Metrics: Score(gt.BackwardReferences, backward)},
		{Category: CategoryReferencesOverall, Metrics: references},
		{Category: CategoryOverallAverage, Metrics: Metrics{
			Precision: (concepts.Precision + references.Precision) / 2,
			Recall:    (concepts.Recall + references.Recall) / 2,
			F1:        (concepts.F1 + references.F1) / 2,
		}},
	}, nil
}

// WriteCSV writes rows as CSV with a category,precision,recall,f1 header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "precision", "recall", "f1"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Category,
			strconv.FormatFloat(r.Precision, 'f', -1, 64),
			strconv.FormatFloat(r.Recall, 'f', -1, 64),
			strconv.FormatFloat(r.F1, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write evaluation csv: %w", err)
	}
	return nil
}

// Score computes precision, recall and F1 of prediction against target.
//
// Both inputs are treated as sets. precision = |T∩P|/|P|,
// recall = |T∩P|/|T|, F1 = 2PR/(P+R). A zero denominator yields 0.
func Score(target, prediction []string) Metrics {
	t := toSet(target)
	p := toSet(prediction)

	hits := 0
	for v := range p {
		if t[v] {
			hits++
		}
	}

	m := Metrics{
		Precision: ratio(hits, len(p)),
		Recall:    ratio(hits, len(t)),
	}
	if sum := m.Precision + m.Recall; sum > 0 {
		m.F1 = 2 * m.Precision * m.Recall / sum
	}
	return m
}

func tails(edges []*graph.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Tail)
	}
	return out
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, v := range items {
		s[v] = true
	}
	return s
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
