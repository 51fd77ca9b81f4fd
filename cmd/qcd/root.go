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
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/qcd/cmd/qcd/config"
	"github.com/AleutianAI/qcd/pkg/logging"
	"github.com/AleutianAI/qcd/pkg/ux"
	"github.com/AleutianAI/qcd/services/concept/telemetry"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// cli holds flag values and the state set up before a command runs.
type cli struct {
	// Persistent flags
	configPath string
	logLevel   string
	logJSON    bool
	format     string

	analyze    analyzeFlags
	experiment experimentFlags
	evaluate   evaluateFlags

	cfg      config.QCDConfig
	logger   *logging.Logger
	shutdown func(context.Context) error
}

// newRootCmd builds the command tree bound to c.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "qcd",
		Short: "Measure the quality of concept dependencies in a document",
		Long: `qcd builds a concept graph from a sectioned document, classifies how
concepts reference each other across sections, and scores the result.

Examples:
  qcd analyze book.xml
  qcd analyze notes.yaml --watch --metrics-addr :9464
  qcd experiment book.xml --truncate --max-permutations 5000
  qcd evaluate book.xml`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "",
		"Config file (default $HOME/.qcd/qcd.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().BoolVar(&c.logJSON, "json", false,
		"Write logs as JSON")
	root.PersistentFlags().StringVar(&c.format, "format", formatText,
		"Output format: text or json")

	root.AddCommand(
		newAnalyzeCmd(c),
		newExperimentCmd(c),
		newEvaluateCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and starts logging
// and telemetry.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.format != formatText && c.format != formatJSON {
		return fmt.Errorf("unknown output format %q", c.format)
	}

	path := c.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logJSON {
		cfg.Logging.JSON = true
	}
	if c.analyze.metricsAddr != "" {
		cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
		cfg.Telemetry.MetricsAddr = c.analyze.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	lc := cfg.LoggerOptions()
	lc.Writer = cmd.ErrOrStderr()
	c.logger = logging.New(lc)
	c.logger.Debug("configuration loaded", "path", path, "command", cmd.Name())

	tc := cfg.TelemetryOptions()
	tc.ServiceVersion = version
	tc.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(cmd.Context(), tc)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	c.shutdown = shutdown
	return nil
}

// close flushes telemetry and closes the log file.
func (c *cli) close() {
	if c.shutdown != nil {
		if err := c.shutdown(context.Background()); err != nil && c.logger != nil {
			c.logger.Warn("telemetry shutdown failed", "error", err)
		}
		c.shutdown = nil
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}
}

// slog returns the logger handed to library packages.
func (c *cli) slog() *slog.Logger {
	if c.logger == nil {
		return logging.Nop().Slog()
	}
	return c.logger.Slog()
}

func (c *cli) printer(cmd *cobra.Command) *ux.Printer {
	return ux.NewPrinter(cmd.OutOrStdout())
}

func (c *cli) jsonOutput() bool {
	return c.format == formatJSON
}

// documentName derives a display name from a document path.
func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
