package matcher

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// pattern finds whole-word occurrences of one literal. The regexp package has
// no lookaround, so candidates are located first and their neighbouring runes
// checked afterwards.
type pattern struct {
	literal string
	re      *regexp.Regexp
}

// newPattern expects literal in NFC. When its decomposed form differs, text
// stored decomposed is matched too, so spans always index the text as given.
func newPattern(literal string, caseSensitive bool) *pattern {
	p := &pattern{literal: literal}
	expr := regexp.QuoteMeta(literal)
	if decomposed := norm.NFD.String(literal); decomposed != literal {
		expr = "(?:" + expr + "|" + regexp.QuoteMeta(decomposed) + ")"
	} else if caseSensitive {
		return p
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	p.re = regexp.MustCompile(expr)
	return p
}

// candidate returns the next raw occurrence at or after from, ignoring boundaries.
func (p *pattern) candidate(text string, from int) (int, int, bool) {
	if p.re == nil {
		i := strings.Index(text[from:], p.literal)
		if i < 0 {
			return 0, 0, false
		}
		return from + i, from + i + len(p.literal), true
	}
	loc := p.re.FindStringIndex(text[from:])
	if loc == nil {
		return 0, 0, false
	}
	return from + loc[0], from + loc[1], true
}

// bounded reports whether text[start:end] is delimited by word boundaries.
func bounded(text string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		first, _ := utf8.DecodeRuneInString(text[start:end])
		if !breaks(prev, first) {
			return false
		}
	}
	if end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		last, _ := utf8.DecodeLastRuneInString(text[start:end])
		if !breaks(next, last) {
			return false
		}
	}
	return true
}

// find returns the first whole-word occurrence starting at or after from.
// A rejected candidate only advances the search by one rune, so an overlapping
// candidate that does satisfy the boundaries is still found.
func (p *pattern) find(text string, from int) (int, int, bool) {
	for from < len(text) {
		start, end, ok := p.candidate(text, from)
		if !ok {
			return 0, 0, false
		}
		if end > start && bounded(text, start, end) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return 0, 0, false
}

// count returns the number of non-overlapping whole-word occurrences in text.
func (p *pattern) count(text string) int {
	n := 0
	for from := 0; ; {
		_, end, ok := p.find(text, from)
		if !ok {
			return n
		}
		n++
		from = end
	}
}

func (p *pattern) test(text string) bool {
	_, _, ok := p.find(text, 0)
	return ok
}
