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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for concept graph operations.
var (
	tracer = otel.Tracer("qcd.concept.graph")
	meter  = otel.Meter("qcd.concept.graph")
)

// Metrics for pipeline and construction operations.
var (
	postprocessLatency metric.Float64Histogram
	postprocessTotal   metric.Int64Counter
	graphNodes         metric.Int64Histogram
	graphEdges         metric.Int64Histogram
	parseLatency       metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		postprocessLatency, err = meter.Float64Histogram(
			"concept_postprocess_duration_seconds",
			metric.WithDescription("Duration of concept graph postprocessing runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		postprocessTotal, err = meter.Int64Counter(
			"concept_postprocess_total",
			metric.WithDescription("Total number of postprocessing runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphNodes, err = meter.Int64Histogram(
			"concept_graph_nodes",
			metric.WithDescription("Number of nodes per postprocessed graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphEdges, err = meter.Int64Histogram(
			"concept_graph_edges",
			metric.WithDescription("Number of edges per postprocessed graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseLatency, err = meter.Float64Histogram(
			"concept_parse_duration_seconds",
			metric.WithDescription("Duration of graph construction from a document"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordPostprocessMetrics records metrics for one postprocessing run.
func recordPostprocessMetrics(ctx context.Context, duration time.Duration, nodeCount, edgeCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))

	postprocessLatency.Record(ctx, duration.Seconds(), attrs)
	postprocessTotal.Add(ctx, 1, attrs)

	if success {
		graphNodes.Record(ctx, int64(nodeCount))
		graphEdges.Record(ctx, int64(edgeCount))
	}
}

// recordParseMetrics records metrics for one construction.
func recordParseMetrics(ctx context.Context, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	parseLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", success)),
	)
}

// startPostprocessSpan creates a span for a postprocessing run.
func startPostprocessSpan(ctx context.Context, nodeCount, edgeCount, sectionCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "concept.postprocess",
		trace.WithAttributes(
			attribute.Int("concept.node_count", nodeCount),
			attribute.Int("concept.edge_count", edgeCount),
			attribute.Int("concept.section_count", sectionCount),
		),
	)
}

// setPostprocessSpanResult sets the result attributes on a postprocessing span.
func setPostprocessSpanResult(span trace.Span, forward, backward, cycles, components int) {
	span.SetAttributes(
		attribute.Int("concept.forward_refs", forward),
		attribute.Int("concept.backward_refs", backward),
		attribute.Int("concept.cycles", cycles),
		attribute.Int("concept.components", components),
	)
}

// startParseSpan creates a span for graph construction.
func startParseSpan(ctx context.Context, document string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "concept.parse",
		trace.WithAttributes(
			attribute.String("concept.document", document),
		),
	)
}
