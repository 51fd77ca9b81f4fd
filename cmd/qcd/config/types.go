// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/qcd/pkg/logging"
	"github.com/AleutianAI/qcd/services/concept/experiment"
	"github.com/AleutianAI/qcd/services/concept/graph"
	"github.com/AleutianAI/qcd/services/concept/source"
	"github.com/AleutianAI/qcd/services/concept/telemetry"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// configValidate is the validator instance for configuration structs.
var configValidate = validator.New()

// QCDConfig is the on-disk configuration of the qcd command.
type QCDConfig struct {
	// Graph: construction and postprocessing switches
	Graph GraphConfig `yaml:"graph"`

	// Experiment: section-order study limits and report cache
	Experiment ExperimentConfig `yaml:"experiment"`

	// Logging: console level and format, optional file sink
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: otel exporters
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type GraphConfig struct {
	ImplicitReferences bool `yaml:"implicit_references"`
	MarkReferences     bool `yaml:"mark_references"`

	// MaxVariationWords bounds the mentions that get sub-phrase
	// variations. 0 means no bound.
	MaxVariationWords int `yaml:"max_variation_words" validate:"gte=0,lte=16"`
}

type ExperimentConfig struct {
	Workers         int  `yaml:"workers" validate:"gte=0,lte=1024"`
	MaxPermutations int  `yaml:"max_permutations" validate:"gte=0"`
	Truncate        bool `yaml:"truncate"`

	// CacheDir enables the report cache. Empty disables it.
	CacheDir string `yaml:"cache_dir,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"omitempty,oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"omitempty,oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty" validate:"required_if=TraceExporter otlp"`
	MetricsAddr    string `yaml:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() QCDConfig {
	return QCDConfig{
		Graph: GraphConfig{
			ImplicitReferences: true,
			MarkReferences:     true,
		},
		Experiment: ExperimentConfig{
			MaxPermutations: experiment.DefaultMaxPermutations,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
			OTLPEndpoint:   "localhost:4317",
		},
	}
}

// Validate checks the struct tags of every section.
func (c QCDConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// GraphOptions returns the graph options for this configuration.
func (c QCDConfig) GraphOptions() []graph.GraphOption {
	return []graph.GraphOption{
		graph.WithImplicitReferences(c.Graph.ImplicitReferences),
		graph.WithMarkReferences(c.Graph.MarkReferences),
	}
}

// SourceOptions returns the document reader options for this configuration.
// Variations are only derived when implicit references are enabled.
func (c QCDConfig) SourceOptions() []source.Option {
	if !c.Graph.ImplicitReferences {
		return []source.Option{source.WithDeriver(source.NoVariations)}
	}
	return []source.Option{
		source.WithDeriver(source.NGramDeriver{MaxWords: c.Graph.MaxVariationWords}),
	}
}

// ExperimentOptions returns the experiment driver options.
func (c QCDConfig) ExperimentOptions() experiment.Options {
	return experiment.Options{
		Workers:         c.Experiment.Workers,
		MaxPermutations: c.Experiment.MaxPermutations,
		Truncate:        c.Experiment.Truncate,
	}
}

// LoggerOptions returns the logger configuration. An unknown level falls
// back to info; Validate rejects it before this is reached.
func (c QCDConfig) LoggerOptions() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.Config{
		Level:   level,
		JSON:    c.Logging.JSON,
		LogDir:  c.Logging.Dir,
		Service: "qcd",
	}
}

// TelemetryOptions returns the telemetry configuration. Environment
// variables read by telemetry.DefaultConfig are overridden by the file.
func (c QCDConfig) TelemetryOptions() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if c.Telemetry.TraceExporter != "" {
		cfg.TraceExporter = c.Telemetry.TraceExporter
	}
	if c.Telemetry.MetricExporter != "" {
		cfg.MetricExporter = c.Telemetry.MetricExporter
	}
	if c.Telemetry.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	}
	return cfg
}
