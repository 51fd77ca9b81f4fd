// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLSource reads a document from a YAML file.
//
// The layout mirrors Document:
//
//	title: bread
//	sections:
//	  - title: Bread
//	    entities:
//	      - text: wheat flour
//	        variations:
//	          - phrase: wheat
//	            context: wheat flour
//	    annotations:
//	      - tag: a priori
//	        text: wheat flour
type YAMLSource struct {
	path string
	opts Options
}

// NewYAMLSource creates a source reading the YAML document at path.
func NewYAMLSource(path string, opts ...Option) *YAMLSource {
	return &YAMLSource{path: path, opts: buildOptions(opts)}
}

// Document implements EntitySource.
func (s *YAMLSource) Document(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	doc, err := decodeYAML(f, s.opts)
	if err != nil {
		return nil, err
	}
	if doc.Title == "" {
		doc.Title = documentTitle(s.path)
	}
	return doc, nil
}

// ReadYAML decodes a YAML document from r.
func ReadYAML(r io.Reader, opts ...Option) (*Document, error) {
	return decodeYAML(r, buildOptions(opts))
}

func decodeYAML(r io.Reader, opts Options) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	for i := range doc.Sections {
		for j := range doc.Sections[i].Mentions {
			m := &doc.Sections[i].Mentions[j]
			for k := range m.Variations {
				if m.Variations[k].Context == "" {
					m.Variations[k].Context = m.Text
				}
			}
		}
	}

	deriveVariations(&doc, opts.Deriver)
	return &doc, nil
}
