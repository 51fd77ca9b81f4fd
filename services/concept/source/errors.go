// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source defines the entity source contract consumed by the concept
// graph and provides document readers for it.
//
// A document is an ordered list of sections. Each section has a title and
// an ordered list of entity mentions; a mention may carry sub-phrase
// variations, each with the longer phrase it was derived from. Sections may
// also carry ground-truth annotations used by the evaluation harness.
//
// Two readers are provided: XML (the annotated corpus format) and YAML.
// Open picks one by file extension. Readers fill in variations with a
// VariationDeriver for mentions that do not list their own.
package source

import "errors"

// Sentinel errors for document reading.
var (
	// ErrMalformedDocument is returned when a section has no title or an
	// entity mention has no text.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnsupportedFormat is returned by Open for an unknown file extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrWatcherClosed is returned by Watcher.Start after Stop.
	ErrWatcherClosed = errors.New("watcher closed")
)
