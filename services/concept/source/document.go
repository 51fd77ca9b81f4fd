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
	"fmt"
)

// EntitySource yields the sections and entity mentions of one document.
type EntitySource interface {
	// Document reads and returns the document.
	//
	// Returns an error wrapping ErrMalformedDocument if the input is
	// structurally invalid.
	Document(ctx context.Context) (*Document, error)
}

// Document is a section-ordered list of entity mentions.
type Document struct {
	// Title names the document, typically its file name.
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// Sections in document order.
	Sections []Section `yaml:"sections" json:"sections"`
}

// Section is one titled partition of a document.
type Section struct {
	Title       string       `yaml:"title" json:"title"`
	Mentions    []Mention    `yaml:"entities" json:"entities"`
	Annotations []Annotation `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Mention is one raw entity mention.
type Mention struct {
	Text string `yaml:"text" json:"text"`

	// Variations are sub-phrases of Text, each with the phrase it was
	// extracted from.
	Variations []Variation `yaml:"variations,omitempty" json:"variations,omitempty"`
}

// Variation is a sub-phrase and the larger phrase it was derived from.
type Variation struct {
	Phrase  string `yaml:"phrase" json:"phrase"`
	Context string `yaml:"context" json:"context"`
}

// Annotation is a hand-labelled concept used as ground truth.
type Annotation struct {
	Tag  string `yaml:"tag" json:"tag"`
	Text string `yaml:"text" json:"text"`
}

// Annotation tags recognized by the evaluation harness.
const (
	TagAPriori  = "a priori"
	TagEmerging = "emerging"
	TagForward  = "forward"
	TagBackward = "backward"
)

// SectionTitles returns the section titles in document order.
func (d *Document) SectionTitles() []string {
	titles := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}

// Annotated returns the normalized text of every annotation carrying tag,
// in document order and without duplicates. Tags compare after Normalize.
func (d *Document) Annotated(tag string) []string {
	want := Normalize(tag)
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, s := range d.Sections {
		for _, a := range s.Annotations {
			if Normalize(a.Tag) != want {
				continue
			}
			text := Normalize(a.Text)
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}

// Validate checks that every section has a title and every mention has text.
func (d *Document) Validate() error {
	for i, s := range d.Sections {
		if Normalize(s.Title) == "" {
			return fmt.Errorf("%w: section %d has no title", ErrMalformedDocument, i+1)
		}
		for j, m := range s.Mentions {
			if Normalize(m.Text) == "" {
				return fmt.Errorf("%w: section %q entity %d has no text", ErrMalformedDocument, s.Title, j+1)
			}
		}
	}
	return nil
}

// Static is an EntitySource over an in-memory document.
type Static struct {
	Doc *Document
}

// Document implements EntitySource.
func (s Static) Document(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Doc == nil {
		return &Document{}, nil
	}
	if err := s.Doc.Validate(); err != nil {
		return nil, err
	}
	return s.Doc, nil
}
