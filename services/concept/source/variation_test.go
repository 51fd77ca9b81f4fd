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
	"testing"

	"github.com/stretchr/testify/assert"
)

func phrases(vs []Variation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Phrase)
	}
	return out
}

func TestNGramDeriver_Derive(t *testing.T) {
	t.Run("three words", func(t *testing.T) {
		got := NGramDeriver{}.Derive("whole wheat flour")
		assert.Equal(t, []string{"whole wheat", "wheat flour", "whole", "wheat", "flour"}, phrases(got))
		for _, v := range got {
			assert.Equal(t, "whole wheat flour", v.Context)
		}
	})

	t.Run("single word has no variations", func(t *testing.T) {
		assert.Empty(t, NGramDeriver{}.Derive("bread"))
	})

	t.Run("stop words dropped", func(t *testing.T) {
		got := NGramDeriver{}.Derive("bread of life")
		assert.Equal(t, []string{"bread", "life"}, phrases(got))
	})

	t.Run("normalizes input", func(t *testing.T) {
		got := NGramDeriver{}.Derive("The Wheat Flour")
		assert.Equal(t, []string{"wheat", "flour"}, phrases(got))
		assert.Equal(t, "wheat flour", got[0].Context)
	})

	t.Run("max words", func(t *testing.T) {
		assert.Empty(t, NGramDeriver{MaxWords: 2}.Derive("whole wheat flour"))
		assert.Len(t, NGramDeriver{MaxWords: 3}.Derive("whole wheat flour"), 5)
	})

	t.Run("repeated words deduplicated", func(t *testing.T) {
		got := NGramDeriver{}.Derive("flour flour")
		assert.Equal(t, []string{"flour"}, phrases(got))
	})
}

func TestDeriveVariations_ExplicitWins(t *testing.T) {
	doc := &Document{Sections: []Section{{
		Title: "bread",
		Mentions: []Mention{
			{Text: "wheat flour", Variations: []Variation{{Phrase: "flour", Context: "wheat flour"}}},
			{Text: "rye flour"},
		},
	}}}

	deriveVariations(doc, NGramDeriver{})

	assert.Equal(t, []string{"flour"}, phrases(doc.Sections[0].Mentions[0].Variations))
	assert.Equal(t, []string{"rye", "flour"}, phrases(doc.Sections[0].Mentions[1].Variations))
}

func TestDeriveVariations_NilDeriver(t *testing.T) {
	doc := &Document{Sections: []Section{{Title: "bread", Mentions: []Mention{{Text: "rye flour"}}}}}
	deriveVariations(doc, nil)
	assert.Empty(t, doc.Sections[0].Mentions[0].Variations)
}
