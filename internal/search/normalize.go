// Package search implements the text normalisation, n-gram indexing and
// relevance scoring behind server-side item search.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultN is the n-gram size used for indexing.
const DefaultN = 3

// Normalize strips accents, lowercases, removes punctuation and collapses
// whitespace. "Mochila  Preta!" becomes "mochila preta".
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NGrams returns the distinct n-grams of the normalised text with spaces
// removed, in first-seen order. Text shorter than n yields itself.
func NGrams(s string, n int) []string {
	normalized := Normalize(s)
	if normalized == "" {
		return nil
	}
	if len([]rune(normalized)) < n {
		return []string{normalized}
	}

	compact := []rune(strings.ReplaceAll(normalized, " ", ""))
	seen := make(map[string]struct{}, len(compact))
	var out []string
	for i := 0; i+n <= len(compact); i++ {
		g := string(compact[i : i+n])
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// IndexNGrams returns the combined n-grams of all given fields.
func IndexNGrams(fields ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range fields {
		for _, g := range NGrams(f, DefaultN) {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}
