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
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/qcd/services/concept/graph"
)

var tracer = otel.Tracer("qcd.concept.experiment")

// DefaultMaxPermutations is 8!, every ordering of an eight-section document.
const DefaultMaxPermutations = 40320

// Options configures an experiment run.
type Options struct {
	// Document names the document in the report.
	Document string `json:"document"`

	// Workers bounds the number of permutations scored concurrently.
	// Default: runtime.NumCPU()
	Workers int `json:"workers"`

	// MaxPermutations caps the number of permutations scored.
	// Default: DefaultMaxPermutations
	MaxPermutations int `json:"max_permutations"`

	// Truncate scores the first MaxPermutations permutations instead of
	// failing when there are more.
	Truncate bool `json:"truncate"`

	// Logger receives progress output. Nil discards.
	Logger *slog.Logger `json:"-"`
}

// DefaultOptions returns the defaults used when Options fields are zero.
func DefaultOptions() Options {
	return Options{
		Workers:         runtime.NumCPU(),
		MaxPermutations: DefaultMaxPermutations,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.Workers < 0 || o.MaxPermutations < 0 {
		return o, fmt.Errorf("%w: workers=%d max_permutations=%d", ErrInvalidOptions, o.Workers, o.MaxPermutations)
	}
	d := DefaultOptions()
	if o.Workers == 0 {
		o.Workers = d.Workers
	}
	if o.MaxPermutations == 0 {
		o.MaxPermutations = d.MaxPermutations
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o, nil
}

// Run scores every permutation of the section order of g.
//
// Description:
//
//	Permutations are enumerated in lexicographic order of section indices,
//	starting with the original order. Each permutation is applied to its
//	own Clone of g, postprocessed and scored. At most Workers permutations
//	are evaluated concurrently. g itself is never mutated.
//
//	The original order is scored on a clone as well, so g need not have
//	been postprocessed.
//
// Inputs:
//
//	ctx - Context for cancellation. The first failure cancels the rest.
//	g - The graph to study. Must not be nil.
//	opts - Experiment options. Zero fields take defaults.
//
// Outputs:
//
//	*Report - Scores and statistics for every evaluated permutation.
//	error - ErrNilGraph, ErrInvalidOptions, ErrTooManyPermutations, or a
//	        wrapped graph.ErrCancelled.
//
// Thread Safety:
//
//	Safe to call concurrently on the same g as long as nothing mutates g.
func Run(ctx context.Context, g *graph.Graph, opts Options) (*Report, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	sections := g.Sections()
	total := permutationCount(len(sections))
	if total > opts.MaxPermutations && !opts.Truncate {
		return nil, fmt.Errorf("%w: %d sections give %d permutations, limit is %d",
			ErrTooManyPermutations, len(sections), total, opts.MaxPermutations)
	}

	ctx, span := tracer.Start(ctx, "concept.experiment",
		trace.WithAttributes(
			attribute.Int("experiment.sections", len(sections)),
			attribute.Int("experiment.workers", opts.Workers),
		),
	)
	defer span.End()
	start := time.Now()

	report, err := run(ctx, g, sections, total, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("experiment.evaluated", len(report.Results)),
		attribute.Float64("experiment.max_diff_ratio", report.MaxDiffRatio),
	)
	opts.Logger.Info("section order experiment finished",
		"run_id", report.RunID.String(),
		"permutations", len(report.Results),
		"truncated", report.Truncated,
		"min", report.Min.Score,
		"max", report.Max.Score,
		"duration", time.Since(start),
	)
	return report, nil
}

func run(ctx context.Context, g *graph.Graph, sections []string, total int, opts Options) (*Report, error) {
	orderings := permutations(sections, opts.MaxPermutations)

	original, err := evaluate(ctx, g, sections)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(orderings))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)

	for i, ordering := range orderings {
		eg.Go(func() error {
			res, err := evaluate(egCtx, g, ordering)
			if err != nil {
				return err
			}
			results[i] = res
			opts.Logger.Debug("permutation scored", "index", i, "score", res.Score)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.New(),
		Document:  opts.Document,
		CreatedAt: time.Now().UTC(),
		Original:  original,
		Total:     total,
		Truncated: len(orderings) < total,
		Results:   results,
	}
	report.summarize()
	return report, nil
}

// evaluate scores g under ordering on a private clone.
func evaluate(ctx context.Context, g *graph.Graph, ordering []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", graph.ErrCancelled, err)
	}

	c := g.Clone()
	if err := c.SetSections(ordering); err != nil {
		return Result{}, err
	}
	if err := c.Postprocess(ctx); err != nil {
		return Result{}, err
	}

	s := c.Summary()
	return Result{
		Ordering:           append([]string(nil), ordering...),
		Score:              s.Score,
		ForwardReferences:  s.ForwardReferences,
		BackwardReferences: s.BackwardReferences,
		Cycles:             s.Cycles,
	}, nil
}
