package match

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DistanceFunc scores how far apart two readings are. 0 means identical and
// 1 means nothing in common.
type DistanceFunc func(a, b string) float64

// EditDistance returns the Levenshtein distance between a and b, counted in
// runes.
func EditDistance(a, b string) int {
	return editDistance([]rune(a), []rune(b))
}

func editDistance(ra, rb []rune) int {
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// NormalizedDistance is the default [DistanceFunc]:
//
//	2 * EditDistance(lower(a), lower(b)) / (len(a) + len(b))
//
// Lengths count runes of the lowercased strings. Two empty strings are at
// distance 0. Results above 1, possible for short unrelated strings, are
// clamped to 1.
func NormalizedDistance(a, b string) float64 {
	lower := cases.Lower(language.Und)
	return foldedDistance(fold(lower, a), fold(lower, b))
}

// fold lowercases s with lower and splits it into runes.
func fold(lower cases.Caser, s string) []rune {
	return []rune(lower.String(s))
}

// foldedDistance is NormalizedDistance over readings already passed through
// fold.
func foldedDistance(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return min(1, 2*float64(editDistance(a, b))/float64(total))
}
