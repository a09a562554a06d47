package grading

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes free text for comparison: trims, lowercases,
// collapses whitespace runs to a single space and strips combining marks,
// so "Paris", " paris " and "Parìs" compare equal.
func Normalize(s string) string {
	return normalize(s, true)
}

func normalize(s string, foldCase bool) string {
	if foldCase {
		s = strings.ToLower(s)
	}
	// transform.Chain keeps state, build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}
