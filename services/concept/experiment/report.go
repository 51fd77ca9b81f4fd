// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package experiment

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of scoring one section ordering.
type Result struct {
	Ordering []string `json:"ordering"`
	Score    float64  `json:"score"`

	ForwardReferences  int `json:"forward_references"`
	BackwardReferences int `json:"backward_references"`
	Cycles             int `json:"cycles"`
}

// Report summarizes a section-order experiment.
type Report struct {
	// RunID identifies the run that produced the report.
	RunID uuid.UUID `json:"run_id"`

	// Document is the title of the analyzed document.
	Document string `json:"document"`

	// CreatedAt is when the run finished.
	CreatedAt time.Time `json:"created_at"`

	// Original is the result for the document's own section order.
	Original Result `json:"original"`

	// Total is the number of permutations of the section order.
	Total int `json:"total"`

	// Truncated is true if fewer than Total permutations were scored.
	Truncated bool `json:"truncated"`

	// Results holds one entry per scored permutation, in lexicographic
	// order of section indices.
	Results []Result `json:"results"`

	Min    Result  `json:"min"`
	Max    Result  `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`

	// MaxAbsDiff is Max.Score - Min.Score.
	MaxAbsDiff float64 `json:"max_abs_diff"`

	// MaxDiffRatio is MaxAbsDiff / Max.Score, or 0 if Max.Score is 0.
	MaxDiffRatio float64 `json:"max_diff_ratio"`
}

// Scores returns the score of every result in order.
func (r *Report) Scores() []float64 {
	scores := make([]float64, len(r.Results))
	for i, res := range r.Results {
		scores[i] = res.Score
	}
	return scores
}

// summarize fills in the statistics over r.Results.
//
// The first result reaching the extreme is kept as Min or Max. StdDev is
// the sample standard deviation and is 0 with fewer than two results.
func (r *Report) summarize() {
	n := len(r.Results)
	if n == 0 {
		return
	}

	minIdx, maxIdx := 0, 0
	sum := 0.0
	for i, res := range r.Results {
		sum += res.Score
		if res.Score < r.Results[minIdx].Score {
			minIdx = i
		}
		if res.Score > r.Results[maxIdx].Score {
			maxIdx = i
		}
	}
	r.Min = r.Results[minIdx]
	r.Max = r.Results[maxIdx]
	r.Mean = sum / float64(n)

	if n > 1 {
		sq := 0.0
		for _, res := range r.Results {
			d := res.Score - r.Mean
			sq += d * d
		}
		r.StdDev = math.Sqrt(sq / float64(n-1))
	}

	r.MaxAbsDiff = r.Max.Score - r.Min.Score
	if r.Max.Score != 0 {
		r.MaxDiffRatio = r.MaxAbsDiff / r.Max.Score
	}
}
