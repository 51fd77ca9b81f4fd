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
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options configures document readers.
type Options struct {
	// Deriver fills in variations of mentions that list none.
	// Default: NGramDeriver{}
	Deriver VariationDeriver
}

// Option is a functional option for document readers.
type Option func(*Options)

// WithDeriver sets the variation deriver. Nil disables derivation.
func WithDeriver(d VariationDeriver) Option {
	return func(o *Options) {
		o.Deriver = d
	}
}

func buildOptions(opts []Option) Options {
	o := Options{Deriver: NGramDeriver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// xmlDocument mirrors the annotated corpus format:
//
//	<document>
//	  <section>
//	    <title>Bread</title>
//	    <entity>wheat flour</entity>
//	    <annotations>
//	      <annotation tag="a priori">wheat flour</annotation>
//	    </annotations>
//	  </section>
//	</document>
type xmlDocument struct {
	Sections []xmlSection `xml:"section"`
}

type xmlSection struct {
	Title       *string         `xml:"title"`
	Entities    []xmlEntity     `xml:"entity"`
	Annotations []xmlAnnotation `xml:"annotations>annotation"`
}

type xmlEntity struct {
	Text       string         `xml:",chardata"`
	Variations []xmlVariation `xml:"variation"`
}

type xmlVariation struct {
	Context string `xml:"context,attr"`
	Phrase  string `xml:",chardata"`
}

type xmlAnnotation struct {
	Tag  string `xml:"tag,attr"`
	Text string `xml:",chardata"`
}

// XMLSource reads a document from an XML file.
type XMLSource struct {
	path string
	opts Options
}

// NewXMLSource creates a source reading the XML document at path.
func NewXMLSource(path string, opts ...Option) *XMLSource {
	return &XMLSource{path: path, opts: buildOptions(opts)}
}

// Document implements EntitySource.
func (s *XMLSource) Document(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	return decodeXML(f, documentTitle(s.path), s.opts)
}

// ReadXML decodes an XML document from r.
func ReadXML(r io.Reader, title string, opts ...Option) (*Document, error) {
	return decodeXML(r, title, buildOptions(opts))
}

func decodeXML(r io.Reader, title string, opts Options) (*Document, error) {
	var raw xmlDocument
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	doc := &Document{Title: title, Sections: make([]Section, 0, len(raw.Sections))}
	for i, rs := range raw.Sections {
		if rs.Title == nil || strings.TrimSpace(*rs.Title) == "" {
			return nil, fmt.Errorf("%w: section %d has no title", ErrMalformedDocument, i+1)
		}
		sec := Section{Title: strings.TrimSpace(*rs.Title)}

		for j, e := range rs.Entities {
			text := strings.TrimSpace(e.Text)
			if text == "" {
				return nil, fmt.Errorf("%w: section %q entity %d has no text", ErrMalformedDocument, sec.Title, j+1)
			}
			m := Mention{Text: text}
			for _, v := range e.Variations {
				parent := v.Context
				if parent == "" {
					parent = text
				}
				m.Variations = append(m.Variations, Variation{Phrase: strings.TrimSpace(v.Phrase), Context: parent})
			}
			sec.Mentions = append(sec.Mentions, m)
		}

		for _, a := range rs.Annotations {
			sec.Annotations = append(sec.Annotations, Annotation{Tag: a.Tag, Text: strings.TrimSpace(a.Text)})
		}
		doc.Sections = append(doc.Sections, sec)
	}

	deriveVariations(doc, opts.Deriver)
	return doc, nil
}

// documentTitle derives a document title from a file path.
func documentTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
