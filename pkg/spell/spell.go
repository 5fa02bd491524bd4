// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package spell

import (
	"sort"
	"strings"
)

// Suggest returns candidate closest to word or empty string when
// none is close enough. Ties are broken alphabetically.
func Suggest(word string, candidates []string) string {
	if len(word) == 0 {
		return ""
	}

	maxDist := len([]rune(word)) / 3
	if maxDist < 1 {
		maxDist = 1
	}

	sorted := append([]string{}, candidates...)
	sort.Strings(sorted)

	best := ""
	bestDist := maxDist + 1

	for _, candidate := range sorted {
		if candidate == word {
			continue
		}
		dist := Distance(strings.ToLower(word), strings.ToLower(candidate))
		if dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best
}

// Distance is Damerau-Levenshtein (optimal string alignment) distance:
// insertions, deletions, substitutions and adjacent transpositions.
func Distance(a, b string) int {
	ar, br := []rune(a), []rune(b)

	prev2 := make([]int, len(br)+1)
	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ar[i-1] == br[j-2] && ar[i-2] == br[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[len(br)]
}
