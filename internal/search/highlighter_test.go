package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dawei7/biblereader/internal/models"
)

func TestHighlight(t *testing.T) {
	text := "Und Gott sprach: Es werde Licht! Und es ward Licht."
	got := Highlight(text, compile("Gott Licht", models.ModeAll))
	want := []models.Segment{
		{Text: "Und "},
		{Text: "Gott", Matched: true},
		{Text: " sprach: Es werde "},
		{Text: "Licht", Matched: true},
		{Text: "! Und es ward "},
		{Text: "Licht", Matched: true},
		{Text: "."},
	}
	assert.Equal(t, want, got)
}

func TestHighlight_NotModeSensitive(t *testing.T) {
	// "Himmel" is missing, so the verse does not match in all mode, but the
	// words that do occur are still highlighted.
	got := Highlight("Und Gott sprach", compile("Gott Himmel", models.ModeAll))
	assert.Equal(t, []models.Segment{
		{Text: "Und "},
		{Text: "Gott", Matched: true},
		{Text: " sprach"},
	}, got)
}

func TestHighlight_NilMatcher(t *testing.T) {
	assert.Equal(t, []models.Segment{{Text: "plain"}}, Highlight("plain", nil))
	assert.Equal(t, []models.Segment{{Text: ""}}, Highlight("", nil))
}

func TestHighlight_WholeTextMatch(t *testing.T) {
	assert.Equal(t, []models.Segment{{Text: "Licht", Matched: true}}, Highlight("Licht", compile("licht", models.ModeAny)))
}

func TestHighlight_RoundTrip(t *testing.T) {
	texts := []string{
		"Im Anfang schuf Gott den Himmel und die Erde.",
		"der Geist Gottes schwebte über den Wassern.",
		"我的猫很可爱，猫",
		"Ἐν ἀρχῇ ἦν ὁ λόγος, καὶ ὁ λόγος ἦν πρὸς τὸν θεόν",
		"",
		"Gott",
		"GottGott Gott",
	}
	queries := []struct {
		q    string
		mode models.Mode
	}{
		{"Gott", models.ModeAny},
		{"Gott Erde Himmel", models.ModeAll},
		{"猫", models.ModeAny},
		{"λόγος θεόν", models.ModeAny},
		{"den Himmel", models.ModePhrase},
	}
	for _, text := range texts {
		for _, q := range queries {
			segs := Highlight(text, compile(q.q, q.mode))
			assert.Equal(t, text, joinSegments(segs), "query %q text %q", q.q, text)
			for i := 1; i < len(segs); i++ {
				if segs[i].Matched == segs[i-1].Matched && !segs[i].Matched {
					t.Errorf("adjacent literal segments for query %q text %q", q.q, text)
				}
			}
		}
	}
}

func joinSegments(segs []models.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}
