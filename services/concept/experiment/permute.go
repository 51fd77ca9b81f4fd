// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package experiment

import "math"

// permutationCount returns n!, saturating at math.MaxInt.
func permutationCount(n int) int {
	count := 1
	for i := 2; i <= n; i++ {
		if count > math.MaxInt/i {
			return math.MaxInt
		}
		count *= i
	}
	return count
}

// permutations returns up to limit permutations of items in lexicographic
// order of their indices, starting with the identity. limit <= 0 means all.
func permutations(items []string, limit int) [][]string {
	n := len(items)
	total := permutationCount(n)
	if limit > 0 && limit < total {
		total = limit
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	out := make([][]string, 0, total)
	for len(out) < total {
		perm := make([]string, n)
		for i, j := range idx {
			perm[i] = items[j]
		}
		out = append(out, perm)

		if !nextPermutation(idx) {
			break
		}
	}
	return out
}

// nextPermutation advances idx to the next permutation in lexicographic
// order. Returns false when idx is the last permutation.
func nextPermutation(idx []int) bool {
	i := len(idx) - 2
	for i >= 0 && idx[i] >= idx[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(idx) - 1
	for idx[j] <= idx[i] {
		j--
	}
	idx[i], idx[j] = idx[j], idx[i]
	for l, r := i+1, len(idx)-1; l < r; l, r = l+1, r-1 {
		idx[l], idx[r] = idx[r], idx[l]
	}
	return true
}
