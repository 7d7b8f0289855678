// Package matcher compiles free-text queries into whole-word verse matchers.
package matcher

import (
	"github.com/dawei7/biblereader/internal/models"
)

// Options control how a query is compiled.
type Options struct {
	CaseSensitive bool
}

// TextMatcher is a compiled query as the scanner and highlighter use it.
// A typed nil *Matcher is a valid TextMatcher that matches nothing.
type TextMatcher interface {
	Test(text string) bool
	Occurrences(text string) int
	Count(text string) Count
	Spans(text string) []Span
	Words() []string
}

var _ TextMatcher = (*Matcher)(nil)

// Matcher is a compiled query. It is immutable and safe for concurrent use.
type Matcher struct {
	mode          models.Mode
	caseSensitive bool
	// words holds the sanitized query words, or the single phrase in phrase mode.
	words    []string
	patterns []*pattern
}

// Compile builds a matcher for query in the given mode. It returns nil when
// the query is empty after sanitizing; a nil matcher matches nothing.
// An unknown mode is treated as ModeAll.
func Compile(query string, mode models.Mode, opts Options) *Matcher {
	var words []string
	switch mode {
	case models.ModePhrase:
		if p := Phrase(query); p != "" {
			words = []string{p}
		}
	case models.ModeAny:
		words = Words(query)
	default:
		mode = models.ModeAll
		words = Words(query)
	}
	if len(words) == 0 {
		return nil
	}

	m := &Matcher{
		mode:          mode,
		caseSensitive: opts.CaseSensitive,
		words:         words,
		patterns:      make([]*pattern, len(words)),
	}
	for i, w := range words {
		m.patterns[i] = newPattern(w, opts.CaseSensitive)
	}
	return m
}

// Mode returns the combine rule of the matcher.
func (m *Matcher) Mode() models.Mode {
	return m.mode
}

// CaseSensitive reports whether the matcher distinguishes letter case.
func (m *Matcher) CaseSensitive() bool {
	return m.caseSensitive
}

// Words returns a copy of the sanitized query words.
func (m *Matcher) Words() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.words))
	copy(out, m.words)
	return out
}

// Test reports whether text satisfies the matcher.
func (m *Matcher) Test(text string) bool {
	if m == nil {
		return false
	}
	switch m.mode {
	case models.ModeAny:
		for _, p := range m.patterns {
			if p.test(text) {
				return true
			}
		}
		return false
	default:
		// ModeAll, and ModePhrase with its single pattern.
		for _, p := range m.patterns {
			if !p.test(text) {
				return false
			}
		}
		return true
	}
}

// Occurrences returns the number of non-overlapping whole-word occurrences of
// every pattern in text, regardless of the combine rule.
func (m *Matcher) Occurrences(text string) int {
	if m == nil {
		return 0
	}
	n := 0
	for _, p := range m.patterns {
		n += p.count(text)
	}
	return n
}

// Span is a byte range [Start, End) of a match in a text.
type Span struct {
	Start   int
	End     int
	Pattern int
}

// Spans returns the highlightable matches of text: the union of every word
// pattern, scanned left to right without overlaps. At each position the
// earliest match wins; a tie goes to the word that came first in the query.
func (m *Matcher) Spans(text string) []Span {
	if m == nil {
		return nil
	}
	type next struct {
		start, end int
		ok         bool
	}
	cursors := make([]next, len(m.patterns))
	for i, p := range m.patterns {
		s, e, ok := p.find(text, 0)
		cursors[i] = next{s, e, ok}
	}

	var spans []Span
	pos := 0
	for pos < len(text) {
		best := -1
		for i := range cursors {
			c := &cursors[i]
			if c.ok && c.start < pos {
				c.start, c.end, c.ok = m.patterns[i].find(text, pos)
			}
			if !c.ok {
				continue
			}
			if best < 0 || c.start < cursors[best].start {
				best = i
			}
		}
		if best < 0 {
			break
		}
		c := cursors[best]
		spans = append(spans, Span{Start: c.start, End: c.end, Pattern: best})
		pos = c.end
	}
	return spans
}
