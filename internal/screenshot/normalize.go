package screenshot

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopWords are dropped before comparing tokens.
var DefaultStopWords = []string{
	"a", "an", "and", "the", "of", "on", "in", "for", "to", "with", "at", "by",
	"is", "be", "test", "tests", "verify", "should", "can", "when", "then",
}

// Normalize canonicalizes free text for comparison: accents folded, lowercase,
// punctuation dropped, whitespace and underscore runs collapsed to a single "_".
func Normalize(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(folder, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	sep := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_':
			sep = true
		}
	}
	return b.String()
}

// tokenSet splits a normalized string on "_" and drops stop words.
func tokenSet(normalized string, stop map[string]struct{}) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Split(normalized, "_") {
		if tok == "" {
			continue
		}
		if _, ok := stop[tok]; ok {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

func stopSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
