package search

import (
	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
)

// Highlight splits text into literal and matched segments. Every word of the
// query is highlighted wherever it occurs as a whole word, whatever the mode.
// Joining the segment texts gives back text exactly. A nil matcher yields a
// single literal segment.
func Highlight(text string, m matcher.TextMatcher) []models.Segment {
	if m == nil {
		return []models.Segment{{Text: text}}
	}
	var segs []models.Segment
	pos := 0
	for _, sp := range m.Spans(text) {
		if sp.End <= sp.Start {
			continue
		}
		if sp.Start > pos {
			segs = append(segs, models.Segment{Text: text[pos:sp.Start]})
		}
		segs = append(segs, models.Segment{Text: text[sp.Start:sp.End], Matched: true})
		pos = sp.End
	}
	if pos < len(text) || len(segs) == 0 {
		segs = append(segs, models.Segment{Text: text[pos:]})
	}
	return segs
}
