// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/qcd/services/concept/graph"
	"github.com/AleutianAI/qcd/services/concept/source"
	"github.com/AleutianAI/qcd/services/concept/telemetry"
)

// analyzeFlags are the flags of the analyze command.
type analyzeFlags struct {
	noImplicit  bool
	noMark      bool
	check       bool
	watch       bool
	metricsAddr string
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Build and score the concept graph of a document",
		Long: `Build the concept graph of an XML or YAML document, postprocess it and
print its metrics and score.

With --watch the document is re-analyzed whenever it changes. Combine with
--metrics-addr to expose Prometheus metrics while watching.

Examples:
  qcd analyze book.xml
  qcd analyze book.xml --no-implicit --format json
  qcd analyze book.xml --check
  qcd analyze notes.yaml --watch --metrics-addr 127.0.0.1:9464`,
		Args: cobra.ExactArgs(1),
		RunE: c.runAnalyze,
	}

	cmd.Flags().BoolVar(&c.analyze.noImplicit, "no-implicit", false,
		"Disable implicit references between a mention and its sub-phrases")
	cmd.Flags().BoolVar(&c.analyze.noMark, "no-mark", false,
		"Skip forward/backward edge marking")
	cmd.Flags().BoolVar(&c.analyze.check, "check", false,
		"Verify graph invariants and exit non-zero on violation")
	cmd.Flags().BoolVar(&c.analyze.watch, "watch", false,
		"Re-analyze whenever the document changes")
	cmd.Flags().StringVar(&c.analyze.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (host:port)")
	return cmd
}

// analyzeOutput is the JSON form of an analysis.
type analyzeOutput struct {
	Document string        `json:"document"`
	Summary  graph.Summary `json:"summary"`
	Valid    *bool         `json:"valid,omitempty"`
}

func (c *cli) runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	if c.analyze.noImplicit {
		c.cfg.Graph.ImplicitReferences = false
	}
	if c.analyze.noMark {
		c.cfg.Graph.MarkReferences = false
	}

	if c.cfg.Telemetry.MetricsAddr != "" {
		if _, err := telemetry.ServeMetrics(ctx, c.cfg.Telemetry.MetricsAddr, c.slog()); err != nil {
			return err
		}
	}

	if !c.analyze.watch {
		return c.analyzeOnce(ctx, cmd.OutOrStdout(), cmd, path)
	}
	return c.watchAnalyze(ctx, cmd, path)
}

// analyzeOnce parses path and prints its summary.
func (c *cli) analyzeOnce(ctx context.Context, w io.Writer, cmd *cobra.Command, path string) error {
	src, err := source.Open(path, c.cfg.SourceOptions()...)
	if err != nil {
		return err
	}

	opts := append(c.cfg.GraphOptions(), graph.WithLogger(c.slog()))
	g, err := graph.Parse(ctx, src, opts...)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	name := documentName(path)
	var checkErr error
	var valid *bool
	if c.analyze.check {
		checkErr = g.Validate()
		ok := checkErr == nil
		valid = &ok
	}

	if c.jsonOutput() {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analyzeOutput{Document: name, Summary: g.Summary(), Valid: valid}); err != nil {
			return err
		}
		return checkErr
	}

	p := c.printer(cmd)
	p.Summary(name, g.Summary())
	if c.analyze.check {
		if checkErr != nil {
			p.Error("graph invariants violated")
			return checkErr
		}
		p.Success("graph invariants hold")
	}
	return nil
}

// watchAnalyze analyzes path now and after every change until ctx is done.
func (c *cli) watchAnalyze(ctx context.Context, cmd *cobra.Command, path string) error {
	log := c.slog()

	if err := c.analyzeOnce(ctx, cmd.OutOrStdout(), cmd, path); err != nil {
		log.Warn("analysis failed", "path", path, "error", err)
	}

	handler := func(ctx context.Context, changed string) {
		log.Info("document changed", "path", changed)
		if err := c.analyzeOnce(ctx, cmd.OutOrStdout(), cmd, changed); err != nil {
			log.Warn("analysis failed", "path", changed, "error", err)
		}
	}

	wopts := source.DefaultWatcherOptions()
	wopts.Logger = log
	watcher, err := source.NewWatcher(path, handler, &wopts)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	log.Info("watching", "path", watcher.Path())
	<-ctx.Done()
	return nil
}
