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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/qcd/services/concept/evaluate"
	"github.com/AleutianAI/qcd/services/concept/graph"
	"github.com/AleutianAI/qcd/services/concept/source"
)

// evaluateFlags are the flags of the evaluate command.
type evaluateFlags struct {
	outputDir string
}

func newEvaluateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate FILE",
		Short: "Compare the concept graph against the document's annotations",
		Long: `Build the concept graph of an annotated document and report precision,
recall and F1 against its ground truth.

Annotations are read from each section's annotations block with the tags
"a priori", "emerging", "forward" and "backward".

With --output-dir the metrics are also saved as DIR/<document>.csv.

Examples:
  qcd evaluate annotated.xml
  qcd evaluate annotated.yaml --format json
  qcd evaluate annotated.xml --output-dir results`,
		Args: cobra.ExactArgs(1),
		RunE: c.runEvaluate,
	}

	cmd.Flags().StringVar(&c.evaluate.outputDir, "output-dir", "",
		"Directory to save the metrics as CSV")
	return cmd
}

// evaluateOutput is the JSON form of an evaluation.
type evaluateOutput struct {
	Document string         `json:"document"`
	Rows     []evaluate.Row `json:"rows"`
}

func (c *cli) runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	src, err := source.Open(path, c.cfg.SourceOptions()...)
	if err != nil {
		return err
	}
	doc, err := src.Document(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	g, err := graph.Build(ctx, doc, append(c.cfg.GraphOptions(), graph.WithLogger(c.slog()))...)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", path, err)
	}

	rows, err := evaluate.Evaluate(doc, g)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", path, err)
	}

	name := documentName(path)
	csvPath, err := c.saveEvaluation(name, rows)
	if err != nil {
		return err
	}

	if c.jsonOutput() {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(evaluateOutput{Document: name, Rows: rows})
	}
	p := c.printer(cmd)
	p.Evaluation(name, rows)
	if csvPath != "" {
		p.Success("wrote " + csvPath)
	}
	return nil
}

// saveEvaluation writes rows to the output directory, if one is set.
// Returns the path written, or "" when saving is disabled.
func (c *cli) saveEvaluation(name string, rows []evaluate.Row) (string, error) {
	if c.evaluate.outputDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(c.evaluate.outputDir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(c.evaluate.outputDir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := evaluate.WriteCSV(f, rows); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	c.slog().Info("evaluation saved", "path", path)
	return path, nil
}
