package catalog

import (
	"strings"

	"github.com/xrash/smetrics"
)

// suggestThreshold is the minimum combined score (spec §4.1) a candidate
// must clear before it is offered as a suggestion.
const suggestThreshold = 0.65

// Suggest returns the best-scoring catalog identifier for a rejected input,
// or "" if nothing clears suggestThreshold. The score is a weighted blend
// of Jaro-Winkler and length-normalized Levenshtein similarity, plus a
// handful of additive bonuses/penalties that reward shared prefixes,
// substring containment of a path component, and comparable lengths.
//
// Deterministic for a given input: the catalog is fixed and ties are
// broken by catalog order, so repeated calls always return the same result.
func Suggest(input string) string {
	best := ""
	bestScore := 0.0

	for _, candidate := range catalog() {
		score := score(input, candidate)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}

	if bestScore < suggestThreshold {
		return ""
	}
	return best
}

func score(input, candidate string) float64 {
	jw := smetrics.JaroWinkler(input, candidate, 0.7, 4)
	lev := levenshteinSimilarity(input, candidate)

	s := 0.70*jw + 0.30*lev

	if sharedPrefixLen(input, candidate) >= 3 {
		s += 0.20
	}

	if substringOfAnyComponent(input, candidate) {
		s += 0.12
	}

	if lengthRatio(input, candidate) >= 0.75 {
		s += 0.10
	}

	if isMuchShorterThan(candidate, input) {
		s -= 0.10
	}

	return s
}

// levenshteinSimilarity converts an edit distance into a [0,1] similarity,
// normalized by the longer of the two strings' lengths.
func levenshteinSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1.0 - float64(dist)/float64(maxLen)
}

func sharedPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// substringOfAnyComponent reports whether input appears as a substring of
// one of candidate's "/"-delimited components (e.g. "belgium" inside
// "europe/belgium"). This is where geographic awareness of composite
// identifiers emerges, without any region-specific logic.
func substringOfAnyComponent(input, candidate string) bool {
	if input == "" {
		return false
	}
	for _, part := range strings.Split(candidate, "/") {
		if strings.Contains(part, input) {
			return true
		}
	}
	return false
}

func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		return float64(lb) / float64(la)
	}
	return float64(la) / float64(lb)
}

// isMuchShorterThan reports whether candidate is much shorter than a long
// input, the anti-short-match case that otherwise lets tiny candidates
// score artificially high against a long, unrelated input.
func isMuchShorterThan(candidate, input string) bool {
	return len(input) >= 8 && len(candidate) <= len(input)/2
}
