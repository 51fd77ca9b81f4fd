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

import "strings"

// VariationDeriver derives sub-phrase variations of a mention.
type VariationDeriver interface {
	// Derive returns the variations of the normalized phrase.
	Derive(phrase string) []Variation
}

// VariationDeriverFunc adapts a function to VariationDeriver.
type VariationDeriverFunc func(phrase string) []Variation

// Derive implements VariationDeriver.
func (f VariationDeriverFunc) Derive(phrase string) []Variation {
	return f(phrase)
}

// stopWords are single words never emitted as variations.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"and": true, "or": true, "to": true, "for": true, "with": true, "by": true,
	"at": true, "from": true, "as": true, "is": true, "are": true, "be": true,
}

// NGramDeriver derives every proper contiguous sub-phrase of a multi-word
// phrase, each with the whole phrase as its context.
//
// For "whole wheat flour" it yields "whole wheat", "wheat flour", "whole",
// "wheat" and "flour", longest first. Sub-phrases that are, begin with or
// end with a stop word are dropped.
// MaxWords bounds the phrase length considered; 0 means no bound.
type NGramDeriver struct {
	MaxWords int
}

// Derive implements VariationDeriver.
func (d NGramDeriver) Derive(phrase string) []Variation {
	words := strings.Fields(Normalize(phrase))
	n := len(words)
	if n < 2 || (d.MaxWords > 0 && n > d.MaxWords) {
		return nil
	}

	whole := strings.Join(words, " ")
	seen := make(map[string]bool)
	out := make([]Variation, 0, n*(n+1)/2)

	for size := n - 1; size >= 1; size-- {
		for i := 0; i+size <= n; i++ {
			sub := strings.Join(words[i:i+size], " ")
			if seen[sub] || (size == 1 && stopWords[sub]) {
				continue
			}
			if size > 1 && (stopWords[words[i]] || stopWords[words[i+size-1]]) {
				continue
			}
			seen[sub] = true
			out = append(out, Variation{Phrase: sub, Context: whole})
		}
	}
	return out
}

// NoVariations is a deriver that never derives anything.
var NoVariations = VariationDeriverFunc(func(string) []Variation { return nil })

// deriveVariations fills in variations for every mention that has none.
// Explicit variations are left untouched.
func deriveVariations(doc *Document, deriver VariationDeriver) {
	if deriver == nil {
		return
	}
	for i := range doc.Sections {
		mentions := doc.Sections[i].Mentions
		for j := range mentions {
			if len(mentions[j].Variations) > 0 {
				continue
			}
			mentions[j].Variations = deriver.Derive(mentions[j].Text)
		}
	}
}
