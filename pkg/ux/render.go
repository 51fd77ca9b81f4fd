// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/qcd/services/concept/evaluate"
	"github.com/AleutianAI/qcd/services/concept/experiment"
	"github.com/AleutianAI/qcd/services/concept/graph"
)

// field is one labelled value of a rendered block.
type field struct {
	label string
	value string
}

// fields prints a titled block of label/value pairs.
//
// Plain mode writes one "label<TAB>value" line per field under a "# title"
// heading. Styled mode aligns the labels inside a box.
func (p *Printer) fields(title string, fs []field) {
	if p.mode == ModePlain {
		p.Title(title)
		for _, f := range fs {
			fmt.Fprintf(p.w, "%s\t%s\n", f.label, f.value)
		}
		return
	}

	width := 0
	for _, f := range fs {
		width = max(width, lipgloss.Width(f.label))
	}
	lines := make([]string, len(fs))
	for i, f := range fs {
		label := Styles.Muted.Render(f.label + strings.Repeat(" ", width-lipgloss.Width(f.label)))
		lines[i] = label + "  " + Styles.Bold.Render(f.value)
	}
	p.box(title, lines)
}

// Summary prints the headline values of an analyzed graph.
func (p *Printer) Summary(document string, s graph.Summary) {
	title := "Concept graph"
	if document != "" {
		title += ": " + document
	}

	p.fields(title, []field{
		{"sections", strconv.Itoa(len(s.Sections))},
		{"nodes", strconv.Itoa(s.Nodes)},
		{"edges", strconv.Itoa(s.Edges)},
		{"mean outdegree", formatFloat(s.MeanOutDegree)},
		{"mean section outdegree", formatFloat(s.MeanSectionOutDegree)},
		{"mean weighted outdegree", formatFloat(s.MeanWeightedOutDegree)},
		{"mean weighted section outdegree", formatFloat(s.MeanWeightedSectionOutDegree)},
		{"forward references", strconv.Itoa(s.ForwardReferences)},
		{"backward references", strconv.Itoa(s.BackwardReferences)},
		{"self-contained references", strconv.Itoa(s.SelfContainedReferences)},
		{"shared entities", strconv.Itoa(s.SharedEntities)},
		{"components", strconv.Itoa(s.Components)},
		{"mean component size", formatFloat(s.MeanComponentSize)},
		{"cycles", strconv.Itoa(s.Cycles)},
		{"mean cycle length", formatFloat(s.MeanCycleLength)},
		{"score", formatFloat(s.Score)},
	})
}

// Report prints the statistics of a section-order experiment and its top
// orderings by score, highest first. top <= 0 omits the ranking.
func (p *Printer) Report(r *experiment.Report, top int) {
	if r == nil {
		return
	}

	evaluated := strconv.Itoa(len(r.Results))
	if r.Truncated {
		evaluated += " of " + strconv.Itoa(r.Total) + " (truncated)"
	}

	p.fields("Section-order experiment: "+r.Document, []field{
		{"run", r.RunID.String()},
		{"orderings", evaluated},
		{"original score", formatFloat(r.Original.Score)},
		{"min score", formatFloat(r.Min.Score) + "  " + joinOrdering(r.Min.Ordering)},
		{"max score", formatFloat(r.Max.Score) + "  " + joinOrdering(r.Max.Ordering)},
		{"mean", formatFloat(r.Mean)},
		{"std dev", formatFloat(r.StdDev)},
		{"max abs diff", formatFloat(r.MaxAbsDiff)},
		{"max diff ratio", formatFloat(r.MaxDiffRatio)},
	})

	ranked := topResults(r.Results, top)
	if len(ranked) == 0 {
		return
	}

	rows := make([][]string, len(ranked))
	for i, res := range ranked {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			formatFloat(res.Score),
			strconv.Itoa(res.ForwardReferences),
			strconv.Itoa(res.BackwardReferences),
			strconv.Itoa(res.Cycles),
			joinOrdering(res.Ordering),
		}
	}
	p.table("Top orderings", []string{"rank", "score", "fwd", "bwd", "cycles", "ordering"}, rows)
}

// Evaluation prints precision, recall and F1 per category.
func (p *Printer) Evaluation(document string, rows []evaluate.Row) {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			r.Category,
			formatFloat(r.Precision),
			formatFloat(r.Recall),
			formatFloat(r.F1),
		}
	}

	title := "Evaluation"
	if document != "" {
		title += ": " + document
	}
	p.table(title, []string{"category", "precision", "recall", "f1"}, cells)
}

// table prints a header and rows. Plain mode is tab-separated; styled mode
// pads columns inside a box.
func (p *Printer) table(title string, header []string, rows [][]string) {
	if p.mode == ModePlain {
		p.Title(title)
		fmt.Fprintln(p.w, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(p.w, strings.Join(row, "\t"))
		}
		return
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, Styles.Subtitle.Render(padRow(header, widths)))
	for _, row := range rows {
		lines = append(lines, padRow(row, widths))
	}
	p.box(title, lines)
}

func padRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		padded[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}

// topResults returns up to n results ordered by descending score. Equal
// scores keep their enumeration order.
func topResults(results []experiment.Result, n int) []experiment.Result {
	if n <= 0 || len(results) == 0 {
		return nil
	}
	ranked := make([]experiment.Result, len(results))
	copy(ranked, results)
	slices.SortStableFunc(ranked, func(a, b experiment.Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func joinOrdering(ordering []string) string {
	return strings.Join(ordering, " "+string(IconArrow)+" ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
