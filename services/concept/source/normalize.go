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
	"strings"
	"unicode"
)

// determiners dropped from the front of a phrase.
var determiners = map[string]bool{
	"a":   true,
	"an":  true,
	"the": true,
}

// Normalize returns the canonical node form of a phrase.
//
// The phrase is lowercased, runs of whitespace collapse to one space,
// punctuation surrounding each word is stripped and a leading determiner
// (a, an, the) is dropped. Inner punctuation such as the hyphen in
// "well-formed" is kept. Returns "" if nothing remains.
func Normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, isEdgePunct)
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) > 1 && determiners[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
