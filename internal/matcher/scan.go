package matcher

import "github.com/dawei7/biblereader/internal/models"

// Count is the outcome of scanning one verse.
type Count struct {
	N       int
	Matched bool
}

// CountMatches scans text with m. In phrase mode N is the number of phrase
// occurrences. In all/any mode every word is counted on its own and N is
// their sum, but only when the verse satisfies the combine rule; a verse
// that misses a required word counts zero.
func CountMatches(text string, m *Matcher) Count {
	if m == nil {
		return Count{}
	}
	if m.mode == models.ModePhrase {
		n := m.patterns[0].count(text)
		return Count{N: n, Matched: n > 0}
	}

	total, present := 0, 0
	for _, p := range m.patterns {
		n := p.count(text)
		total += n
		if n > 0 {
			present++
		}
	}
	matched := present > 0
	if m.mode == models.ModeAll {
		matched = present == len(m.patterns)
	}
	if !matched {
		return Count{}
	}
	return Count{N: total, Matched: true}
}

// Count is shorthand for CountMatches(text, m).
func (m *Matcher) Count(text string) Count {
	return CountMatches(text, m)
}
