package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes to NFKD and drops combining marks, so "perché"
// compares equal to "perche".
var stripAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func removeDiacritics(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeAnswer canonicalizes a free-text answer for comparison: trim,
// lowercase, strip accents, collapse internal whitespace.
func NormalizeAnswer(s string) string {
	s = removeDiacritics(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTag canonicalizes a topic tag for matching. On top of the answer
// normalization it maps every non-alphanumeric rune to a space, so
// "Acidi-basi", "acidi basi" and "ACIDI/BASI" all collapse to "acidi basi".
func NormalizeTag(s string) string {
	s = removeDiacritics(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeTagSet normalizes a tag list into a set, dropping entries that
// normalize to nothing.
func NormalizeTagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if n := NormalizeTag(t); n != "" {
			set[n] = true
		}
	}
	return set
}
