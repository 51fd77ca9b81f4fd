// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evaluate

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/qcd/services/concept/graph"
	"github.com/AleutianAI/qcd/services/concept/source"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		target     []string
		prediction []string
		want       Metrics
	}{
		{"perfect", []string{"a", "b"}, []string{"b", "a"}, Metrics{1, 1, 1}},
		{"half precision", []string{"a"}, []string{"a", "b"}, Metrics{0.5, 1, 2.0 / 3.0}},
		{"half recall", []string{"a", "b"}, []string{"a"}, Metrics{1, 0.5, 2.0 / 3.0}},
		{"disjoint", []string{"a"}, []string{"b"}, Metrics{0, 0, 0}},
		{"empty prediction", []string{"a"}, nil, Metrics{0, 0, 0}},
		{"empty target", nil, []string{"a"}, Metrics{0, 0, 0}},
		{"both empty", nil, nil, Metrics{0, 0, 0}},
		{"duplicates are sets", []string{"a", "a"}, []string{"a", "a", "b"}, Metrics{0.5, 1, 2.0 / 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.target, tt.prediction)
			assert.InDelta(t, tt.want.Precision, got.Precision, 1e-12)
			assert.InDelta(t, tt.want.Recall, got.Recall, 1e-12)
			assert.InDelta(t, tt.want.F1, got.F1, 1e-12)
		})
	}
}

const annotatedXML = `<document>
  <section>
    <title>Bread</title>
    <entity>wheat</entity>
    <entity>oven</entity>
    <annotations>
      <annotation tag="a priori">oven</annotation>
      <annotation tag="forward">bread</annotation>
    </annotations>
  </section>
  <section>
    <title>Wheat</title>
    <entity>grain</entity>
    <entity>bread</entity>
    <annotations>
      <annotation tag="emerging">grain</annotation>
      <annotation tag="emerging">yeast</annotation>
      <annotation tag="backward">wheat</annotation>
    </annotations>
  </section>
</document>`

func TestEvaluate(t *testing.T) {
	doc, err := source.ReadXML(strings.NewReader(annotatedXML), "bread", source.WithDeriver(source.NoVariations))
	require.NoError(t, err)
	g, err := graph.Build(context.Background(), doc)
	require.NoError(t, err)

	require.Equal(t, []string{"bread"}, tails(g.ForwardReferences()))
	require.Equal(t, []string{"wheat"}, tails(g.BackwardReferences()))

	rows, err := Evaluate(doc, g)
	require.NoError(t, err)
	require.Len(t, rows, 7)

	byCategory := make(map[string]Metrics)
	for _, r := range rows {
		byCategory[r.Category] = r.Metrics
	}

	// Nodes are {bread, grain, oven, wheat}.
	aPriori := byCategory[CategoryAPrioriConcepts]
	assert.InDelta(t, 0.25, aPriori.Precision, 1e-12)
	assert.InDelta(t, 1.0, aPriori.Recall, 1e-12)
	assert.InDelta(t, 0.4, aPriori.F1, 1e-12)

	emerging := byCategory[CategoryEmergingConcepts]
	assert.InDelta(t, 0.25, emerging.Precision, 1e-12)
	assert.InDelta(t, 0.5, emerging.Recall, 1e-12)
	assert.InDelta(t, 1.0/3.0, emerging.F1, 1e-12)

	// Ground truth {oven, grain, yeast}.
	concepts := byCategory[CategoryConcepts]
	assert.InDelta(t, 0.5, concepts.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, concepts.Recall, 1e-12)

	assert.Equal(t, Metrics{1, 1, 1}, byCategory[CategoryForwardReferences])
	assert.Equal(t, Metrics{1, 1, 1}, byCategory[CategoryBackwardReferences])
	assert.Equal(t, Metrics{1, 1, 1}, byCategory[CategoryReferencesOverall])

	avg := byCategory[CategoryOverallAverage]
	assert.InDelta(t, (concepts.F1+1)/2, avg.F1, 1e-12)
	assert.Equal(t, CategoryAPrioriConcepts, rows[0].Category)
	assert.Equal(t, CategoryEmergingConcepts, rows[1].Category)
	assert.Equal(t, CategoryConcepts, rows[2].Category)
	assert.Equal(t, CategoryOverallAverage, rows[6].Category)
}

func TestEvaluate_NoAnnotations(t *testing.T) {
	doc := &source.Document{Sections: []source.Section{{Title: "bread"}}}
	g, err := graph.Build(context.Background(), doc)
	require.NoError(t, err)

	_, err = Evaluate(doc, g)
	assert.ErrorIs(t, err, ErrNoGroundTruth)
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		{Category: CategoryAPrioriConcepts, Metrics: Metrics{Precision: 0.25, Recall: 1, F1: 0.4}},
		{Category: CategoryOverallAverage, Metrics: Metrics{Precision: 1, Recall: 0.5, F1: 0}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Equal(t, "category,precision,recall,f1\n"+
		"A Priori Concepts,0.25,1,0.4\n"+
		"Overall Average,1,0.5,0\n", buf.String())
}
