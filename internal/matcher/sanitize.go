package matcher

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// punctuation is removed from query words before matching. The hyphen is
// included so "Jesu-Christ" and "JesuChrist" are treated alike.
const punctuation = ".,;:*!?\"'“”‘’`´()[]{}<>/\\-"

// Sanitize removes all punctuation characters from s.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}

// Words splits a query on whitespace and sanitizes each token. Tokens that are
// empty after sanitizing are dropped; order and duplicates are kept.
func Words(query string) []string {
	fields := strings.Fields(norm.NFC.String(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := Sanitize(f); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Phrase sanitizes the trimmed query as a single unit. Internal spacing is kept.
func Phrase(query string) string {
	p := Sanitize(strings.TrimSpace(norm.NFC.String(query)))
	return strings.TrimSpace(p)
}
