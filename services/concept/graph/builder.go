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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/qcd/services/concept/source"
)

// Parse reads a document from src, builds its concept graph and
// postprocesses it.
//
// Description:
//
//	Equivalent to fetching src.Document(ctx) and calling Build. Errors from
//	the source, including malformed input, are returned wrapped.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	src - The entity source. Must not be nil.
//	opts - Graph options.
//
// Outputs:
//
//	*Graph - The normalized graph.
//	error - Non-nil on source failure or cancellation.
func Parse(ctx context.Context, src source.EntitySource, opts ...GraphOption) (*Graph, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if ctx == nil {
		ctx = context.Background()
	}

	doc, err := src.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return Build(ctx, doc, opts...)
}

// Build constructs and postprocesses the concept graph of doc.
//
// Description:
//
//	For each section in order the title is observed as a section node, then
//	each mention is normalized and observed in the section with a plain
//	edge from the title. When implicit references are enabled, each
//	(variation, context) pair of a mention observes the variation in the
//	section and adds an implicit edge from context to variation. Empty
//	strings after normalization are skipped. The graph is then
//	postprocessed.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Checked between sections.
//	doc - The document. Nil yields an empty, postprocessed graph.
//	opts - Graph options.
//
// Outputs:
//
//	*Graph - The normalized graph.
//	error - Non-nil only on cancellation. Wraps ErrCancelled.
func Build(ctx context.Context, doc *source.Document, opts ...GraphOption) (*Graph, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	name := ""
	if doc != nil {
		name = doc.Title
	}
	ctx, span := startParseSpan(ctx, name)
	defer span.End()
	start := time.Now()

	g := NewGraph(opts...)
	err := g.build(ctx, doc)
	if err == nil {
		err = g.Postprocess(ctx)
	}

	recordParseMetrics(ctx, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return g, nil
}

func (g *Graph) build(ctx context.Context, doc *source.Document) error {
	if doc == nil {
		return nil
	}

	for _, sec := range doc.Sections {
		if err := checkCancelled(ctx, "section "+sec.Title); err != nil {
			return err
		}

		title := source.Normalize(sec.Title)
		if title == "" {
			continue
		}
		g.observeTitle(title)

		for _, mention := range sec.Mentions {
			entity := source.Normalize(mention.Text)
			if entity == "" {
				continue
			}
			g.observe(entity, title)
			g.AddEdge(title, entity, EdgeKindPlain)

			if !g.options.ImplicitReferences {
				continue
			}
			for _, variation := range mention.Variations {
				phrase := source.Normalize(variation.Phrase)
				parent := source.Normalize(variation.Context)
				if phrase == "" || parent == "" {
					continue
				}
				g.observe(phrase, title)
				if !g.nodes.has(parent) {
					g.AddNode(parent, title)
				}
				g.AddEdge(parent, phrase, EdgeKindImplicit)
			}
		}
	}

	g.options.Logger.Debug("graph constructed",
		"document", doc.Title,
		"sections", len(g.sections),
		"nodes", len(g.nodes),
		"edges", len(g.edges),
	)
	return nil
}

// observeTitle registers title as a section node, or records another
// observation of an existing node that turns out to be a section title.
func (g *Graph) observeTitle(title string) {
	if g.AddNode(title, title) {
		return
	}
	g.UpdateSectionCount(title, title)
	g.MarkSectionNode(title)
}

// observe adds node to section or records another observation of it.
func (g *Graph) observe(node, section string) {
	if !g.AddNode(node, section) {
		g.UpdateSectionCount(node, section)
	}
}
