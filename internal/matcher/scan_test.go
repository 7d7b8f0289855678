package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dawei7/biblereader/internal/models"
)

func TestCountMatches(t *testing.T) {
	verse3 := "Und Gott sprach: Es werde Licht! Und es ward Licht."
	tests := []struct {
		name  string
		query string
		mode  models.Mode
		text  string
		want  Count
	}{
		{"any counts all words", "Gott Licht", models.ModeAny, verse3, Count{N: 3, Matched: true}},
		{"all with every word", "Gott Licht", models.ModeAll, verse3, Count{N: 3, Matched: true}},
		{"all partial is zero", "Gott Himmel", models.ModeAll, verse3, Count{}},
		{"any partial keeps present words", "Gott Himmel", models.ModeAny, verse3, Count{N: 1, Matched: true}},
		{"phrase", "es werde", models.ModePhrase, verse3, Count{N: 1, Matched: true}},
		{"phrase absent", "es ward nicht", models.ModePhrase, verse3, Count{}},
		{"duplicate words count twice", "Licht Licht", models.ModeAny, verse3, Count{N: 4, Matched: true}},
		{"prefix is not a match", "Gott", models.ModeAny, "der Geist Gottes schwebte", Count{}},
		{"empty text", "Gott", models.ModeAny, "", Count{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compile(tt.query, tt.mode, Options{})
			assert.Equal(t, tt.want, CountMatches(tt.text, m))
			assert.Equal(t, tt.want.Matched, m.Test(tt.text), "Test must agree with Matched")
		})
	}
}

func TestCountMatches_NilMatcher(t *testing.T) {
	assert.Equal(t, Count{}, CountMatches("anything", nil))
}

func TestCountMatches_PhraseIsNonOverlapping(t *testing.T) {
	m := Compile("a a", models.ModePhrase, Options{})
	assert.Equal(t, Count{N: 1, Matched: true}, CountMatches("a a a", m))
	assert.Equal(t, Count{N: 2, Matched: true}, CountMatches("a a a a", m))
}
