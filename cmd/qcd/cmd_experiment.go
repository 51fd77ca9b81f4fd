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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/qcd/services/concept/experiment"
	"github.com/AleutianAI/qcd/services/concept/graph"
	"github.com/AleutianAI/qcd/services/concept/source"
)

// experimentFlags are the flags of the experiment command.
type experimentFlags struct {
	workers         int
	maxPermutations int
	truncate        bool
	cacheDir        string
	noCache         bool
	top             int
	noImplicit      bool
	noMark          bool
}

func newExperimentCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment FILE",
		Short: "Score every section ordering of a document",
		Long: `Score the concept graph of a document under every permutation of its
sections and report how much the score depends on the order.

The number of orderings grows factorially. Documents with more orderings
than --max-permutations are rejected unless --truncate is given, in which
case the first --max-permutations orderings are scored.

Reports are cached by document content and parameters when a cache
directory is configured (--cache or experiment.cache_dir).

Examples:
  qcd experiment book.xml
  qcd experiment book.xml --workers 8 --truncate --max-permutations 5000
  qcd experiment book.xml --cache ~/.qcd/cache --top 5
  qcd experiment book.xml --no-implicit --no-mark`,
		Args: cobra.ExactArgs(1),
		RunE: c.runExperiment,
	}

	cmd.Flags().IntVar(&c.experiment.workers, "workers", 0,
		"Orderings scored concurrently (0 = config or number of CPUs)")
	cmd.Flags().IntVar(&c.experiment.maxPermutations, "max-permutations", 0,
		"Maximum orderings to score (0 = config)")
	cmd.Flags().BoolVar(&c.experiment.truncate, "truncate", false,
		"Score the first --max-permutations orderings instead of failing")
	cmd.Flags().StringVar(&c.experiment.cacheDir, "cache", "",
		"Report cache directory (overrides config)")
	cmd.Flags().BoolVar(&c.experiment.noCache, "no-cache", false,
		"Do not read or write the report cache")
	cmd.Flags().IntVar(&c.experiment.top, "top", 10,
		"Number of best orderings to list")
	cmd.Flags().BoolVar(&c.experiment.noImplicit, "no-implicit", false,
		"Disable implicit references between a mention and its sub-phrases")
	cmd.Flags().BoolVar(&c.experiment.noMark, "no-mark", false,
		"Skip forward/backward edge marking")
	return cmd
}

// cacheParams are the inputs besides the document that determine a report.
type cacheParams struct {
	Document           string `json:"document"`
	ImplicitReferences bool   `json:"implicit_references"`
	MarkReferences     bool   `json:"mark_references"`
	MaxVariationWords  int    `json:"max_variation_words"`
	MaxPermutations    int    `json:"max_permutations"`
	Truncate           bool   `json:"truncate"`
}

func (c *cli) runExperiment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	log := c.slog()

	if c.experiment.noImplicit {
		c.cfg.Graph.ImplicitReferences = false
	}
	if c.experiment.noMark {
		c.cfg.Graph.MarkReferences = false
	}

	opts := c.cfg.ExperimentOptions()
	if c.experiment.workers > 0 {
		opts.Workers = c.experiment.workers
	}
	if c.experiment.maxPermutations > 0 {
		opts.MaxPermutations = c.experiment.maxPermutations
	}
	if c.experiment.truncate {
		opts.Truncate = true
	}
	if opts.MaxPermutations == 0 {
		opts.MaxPermutations = experiment.DefaultMaxPermutations
	}
	opts.Document = documentName(path)
	opts.Logger = log

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cache, key, err := c.openReportCache(content, opts)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()

		report, err := cache.Get(key)
		switch {
		case err == nil:
			log.Info("using cached report", "run_id", report.RunID, "key", key)
			return c.printReport(cmd, report)
		case !errors.Is(err, experiment.ErrCacheMiss):
			log.Warn("report cache read failed", "error", err)
		}
	}

	src, err := source.Open(path, c.cfg.SourceOptions()...)
	if err != nil {
		return err
	}
	g, err := graph.Parse(ctx, src, append(c.cfg.GraphOptions(), graph.WithLogger(log))...)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", path, err)
	}

	report, err := experiment.Run(ctx, g, opts)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", path, err)
	}

	if cache != nil {
		if err := cache.Put(key, report); err != nil {
			log.Warn("report cache write failed", "error", err)
		}
	}
	return c.printReport(cmd, report)
}

// openReportCache opens the configured cache and derives the report key.
// Returns a nil cache when caching is disabled.
func (c *cli) openReportCache(content []byte, opts experiment.Options) (*experiment.Cache, string, error) {
	dir := c.cfg.Experiment.CacheDir
	if c.experiment.cacheDir != "" {
		dir = c.experiment.cacheDir
	}
	if dir == "" || c.experiment.noCache {
		return nil, "", nil
	}

	key, err := experiment.Key(content, cacheParams{
		Document:           opts.Document,
		ImplicitReferences: c.cfg.Graph.ImplicitReferences,
		MarkReferences:     c.cfg.Graph.MarkReferences,
		MaxVariationWords:  c.cfg.Graph.MaxVariationWords,
		MaxPermutations:    opts.MaxPermutations,
		Truncate:           opts.Truncate,
	})
	if err != nil {
		return nil, "", err
	}

	cfg := experiment.DefaultCacheConfig(dir)
	cfg.Logger = c.slog()
	cache, err := experiment.OpenCache(cfg)
	if err != nil {
		return nil, "", err
	}
	return cache, key, nil
}

func (c *cli) printReport(cmd *cobra.Command, report *experiment.Report) error {
	if c.jsonOutput() {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	c.printer(cmd).Report(report, c.experiment.top)
	return nil
}
