// Package fuzzy provides edit-similarity matchers for name scoring.
package fuzzy

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Matcher scores the similarity of two normalized strings in [0,1].
type Matcher interface {
	Ratio(a, b string) float64
}

// Levenshtein scores 1 - distance/maxLen over runes.
type Levenshtein struct{}

// Ratio implements Matcher.
func (Levenshtein) Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return max(0, 1-float64(dist)/float64(longest))
}

// Exact is the fallback matcher: equal strings score 1, everything else 0.
type Exact struct{}

// Ratio implements Matcher.
func (Exact) Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return 0
}

// Default returns the matcher used when none is configured.
func Default() Matcher { return Levenshtein{} }
