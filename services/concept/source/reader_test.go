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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const breadXML = `<?xml version="1.0"?>
<document>
  <section>
    <title>Bread</title>
    <entity>wheat flour</entity>
    <entity>the oven</entity>
    <annotations>
      <annotation tag="a priori">Bread</annotation>
      <annotation tag="forward">wheat flour</annotation>
    </annotations>
  </section>
  <section>
    <title>Wheat</title>
    <entity>grain<variation context="whole grain">whole</variation></entity>
  </section>
</document>`

const breadYAML = `title: loaf
sections:
  - title: Bread
    entities:
      - text: wheat flour
      - text: the oven
    annotations:
      - tag: a priori
        text: Bread
  - title: Wheat
    entities:
      - text: grain
        variations:
          - phrase: whole
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadXML(t *testing.T) {
	doc, err := ReadXML(strings.NewReader(breadXML), "bread")
	require.NoError(t, err)

	assert.Equal(t, "bread", doc.Title)
	assert.Equal(t, []string{"Bread", "Wheat"}, doc.SectionTitles())

	bread := doc.Sections[0]
	require.Len(t, bread.Mentions, 2)
	assert.Equal(t, "wheat flour", bread.Mentions[0].Text)
	assert.Equal(t, []string{"wheat", "flour"}, phrases(bread.Mentions[0].Variations))
	assert.Empty(t, bread.Mentions[1].Variations, "the oven normalizes to one word")
	assert.Len(t, bread.Annotations, 2)

	grain := doc.Sections[1].Mentions[0]
	assert.Equal(t, "grain", grain.Text)
	assert.Equal(t, []Variation{{Phrase: "whole", Context: "whole grain"}}, grain.Variations)
}

func TestReadXML_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing title", `<document><section><entity>x</entity></section></document>`},
		{"blank title", `<document><section><title>  </title></section></document>`},
		{"empty entity", `<document><section><title>a</title><entity> </entity></section></document>`},
		{"not xml", `{"sections": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadXML(strings.NewReader(tt.in), "doc")
			assert.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}

func TestReadXML_NoDeriver(t *testing.T) {
	doc, err := ReadXML(strings.NewReader(breadXML), "bread", WithDeriver(nil))
	require.NoError(t, err)
	assert.Empty(t, doc.Sections[0].Mentions[0].Variations)
}

func TestReadYAML(t *testing.T) {
	doc, err := ReadYAML(strings.NewReader(breadYAML))
	require.NoError(t, err)

	assert.Equal(t, "loaf", doc.Title)
	assert.Equal(t, []string{"Bread", "Wheat"}, doc.SectionTitles())
	assert.Equal(t, []string{"wheat", "flour"}, phrases(doc.Sections[0].Mentions[0].Variations))
	assert.Equal(t, []Variation{{Phrase: "whole", Context: "grain"}}, doc.Sections[1].Mentions[0].Variations)
}

func TestReadYAML_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing title", "sections:\n  - entities:\n      - text: x\n"},
		{"empty entity", "sections:\n  - title: a\n    entities:\n      - text: ''\n"},
		{"unknown field", "sections:\n  - title: a\n    colour: red\n"},
		{"wrong type", "sections: 12\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadYAML(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}

func TestReadYAML_Empty(t *testing.T) {
	doc, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("xml", func(t *testing.T) {
		src, err := Open(writeFile(t, "bread.xml", breadXML))
		require.NoError(t, err)
		doc, err := src.Document(ctx)
		require.NoError(t, err)
		assert.Equal(t, "bread", doc.Title)
		assert.Len(t, doc.Sections, 2)
	})

	t.Run("yaml keeps own title", func(t *testing.T) {
		src, err := Open(writeFile(t, "bread.YML", breadYAML))
		require.NoError(t, err)
		doc, err := src.Document(ctx)
		require.NoError(t, err)
		assert.Equal(t, "loaf", doc.Title)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Open("bread.txt")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		src, err := Open(filepath.Join(t.TempDir(), "missing.xml"))
		require.NoError(t, err)
		_, err = src.Document(ctx)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("cancelled", func(t *testing.T) {
		src, err := Open(writeFile(t, "bread.xml", breadXML))
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = src.Document(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDocument_Annotated(t *testing.T) {
	doc, err := ReadXML(strings.NewReader(breadXML), "bread")
	require.NoError(t, err)

	assert.Equal(t, []string{"bread"}, doc.Annotated(TagAPriori))
	assert.Equal(t, []string{"wheat flour"}, doc.Annotated("Forward"))
	assert.Empty(t, doc.Annotated(TagBackward))
}

func TestStatic(t *testing.T) {
	ctx := context.Background()

	doc, err := Static{}.Document(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)

	_, err = Static{Doc: &Document{Sections: []Section{{Title: ""}}}}.Document(ctx)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}
