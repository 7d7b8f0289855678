package keyword

import (
	"errors"
	"testing"
)

// mockTermDictionary is a mock implementation of TermDictionary for testing.
type mockTermDictionary struct {
	terms        map[string]int // term -> verse frequency
	getAllError  error
	getFreqError error
}

func newMockTermDictionary(terms map[string]int) *mockTermDictionary {
	return &mockTermDictionary{terms: terms}
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	result := make([]string, 0, len(m.terms))
	for term := range m.terms {
		result = append(result, term)
	}
	return result, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) {
	if m.getFreqError != nil {
		return 0, m.getFreqError
	}
	return m.terms[term], nil
}

func (m *mockTermDictionary) ContainsTerm(term string) (bool, error) {
	_, ok := m.terms[term]
	return ok, nil
}

func bibleDictionary() *mockTermDictionary {
	return newMockTermDictionary(map[string]int{
		"gott":       120,
		"licht":      40,
		"finsternis": 12,
		"himmel":     60,
		"erde":       80,
		"wasser":     30,
		"wassern":    4,
		"jerusalem":  50,
	})
}

func TestSpellChecker_NewSpellChecker(t *testing.T) {
	sc := NewSpellChecker(bibleDictionary())
	if sc.maxDistance != 2 {
		t.Errorf("default maxDistance = %d, want 2", sc.maxDistance)
	}
	if sc.minFreq != 1 {
		t.Errorf("default minFreq = %d, want 1", sc.minFreq)
	}
	if sc.maxSuggestions != 5 {
		t.Errorf("default maxSuggestions = %d, want 5", sc.maxSuggestions)
	}
}

func TestSpellChecker_NewSpellChecker_WithOptions(t *testing.T) {
	sc := NewSpellChecker(bibleDictionary(),
		WithMaxDistance(3),
		WithMinFrequency(5),
		WithMaxSuggestions(10),
	)
	if sc.maxDistance != 3 || sc.minFreq != 5 || sc.maxSuggestions != 10 {
		t.Errorf("options not applied: %d %d %d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}

	sc = NewSpellChecker(bibleDictionary(), WithMaxDistance(0), WithMinFrequency(-1), WithMaxSuggestions(0))
	if sc.maxDistance != 2 || sc.minFreq != 1 || sc.maxSuggestions != 5 {
		t.Error("invalid option values should be ignored")
	}
}

func TestSpellChecker_Suggest(t *testing.T) {
	sc := NewSpellChecker(bibleDictionary())
	tests := []struct {
		term      string
		wantFirst string
	}{
		{"Gtot", "gott"},
		{"Lciht", "licht"},
		{"Finsterniss", "finsternis"},
		{"Jerusalen", "jerusalem"},
		{"Waser", "wasser"},
		{"xyz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := sc.Suggest(tt.term)
			if tt.wantFirst == "" {
				if len(got) != 0 {
					t.Errorf("Suggest(%q) = %v, want none", tt.term, got)
				}
				return
			}
			if len(got) == 0 || got[0].Term != tt.wantFirst {
				t.Errorf("Suggest(%q) = %v, want first %q", tt.term, got, tt.wantFirst)
			}
		})
	}
}

func TestSpellChecker_Suggest_ShortWordsAllowOneEdit(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{"tag": 10, "gott": 5}))
	if got := sc.Suggest("tiq"); len(got) != 0 {
		t.Errorf("short word with two substitutions should not match: %v", got)
	}
	if got := sc.Suggest("tog"); len(got) != 1 || got[0].Term != "tag" {
		t.Errorf("Suggest(tog) = %v", got)
	}
}

func TestSpellChecker_Suggest_RanksByFrequency(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{"wasser": 30, "wassern": 4}))
	got := sc.Suggest("wassen")
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got[0].Term != "wasser" {
		t.Errorf("more frequent term should rank first, got %v", got)
	}
}

func TestSpellChecker_Suggest_RespectsMinFrequency(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{"wasser": 30, "wassern": 4}), WithMinFrequency(10))
	got := sc.Suggest("wassen")
	if len(got) != 1 || got[0].Term != "wasser" {
		t.Errorf("got %v", got)
	}
}

func TestSpellChecker_Suggest_LimitsResults(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{"bald": 1, "band": 1, "bank": 1, "bart": 1}), WithMaxSuggestions(2))
	if got := sc.Suggest("banx"); len(got) != 2 {
		t.Errorf("got %d suggestions, want 2", len(got))
	}
}

func TestSpellChecker_Check(t *testing.T) {
	sc := NewSpellChecker(bibleDictionary())
	tests := []struct {
		name           string
		query          string
		wantCorrected  string
		wantHasCorrect bool
		wantMisspelled int
	}{
		{"valid query", "Gott Licht", "Gott Licht", false, 0},
		{"single typo", "Gtot", "gott", true, 1},
		{"multiple typos", "Gtot Lciht", "gott licht", true, 2},
		{"mixed with punctuation", "Himmel, Erdee!", "Himmel erde", true, 1},
		{"unknown word kept", "qqqqqq", "qqqqqq", false, 0},
		{"empty", "   ", "", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sc.Check(tt.query)
			if err != nil {
				t.Fatalf("Check(%q): %v", tt.query, err)
			}
			if result.CorrectedQuery != tt.wantCorrected {
				t.Errorf("CorrectedQuery = %q, want %q", result.CorrectedQuery, tt.wantCorrected)
			}
			if result.HasCorrections != tt.wantHasCorrect {
				t.Errorf("HasCorrections = %v, want %v", result.HasCorrections, tt.wantHasCorrect)
			}
			if len(result.MisspelledTerms) != tt.wantMisspelled {
				t.Errorf("MisspelledTerms = %v, want %d", result.MisspelledTerms, tt.wantMisspelled)
			}
		})
	}
}

func TestSpellChecker_IsMisspelled(t *testing.T) {
	sc := NewSpellChecker(bibleDictionary())
	if sc.IsMisspelled("GOTT") {
		t.Error("dictionary lookups should ignore case")
	}
	if !sc.IsMisspelled("Gtot") {
		t.Error("Gtot should be misspelled")
	}
}

func TestSpellChecker_CorrectedQuery(t *testing.T) {
	sc := NewSpellChecker(bibleDictionary())
	if got := sc.GetTopSuggestions("Gott Lciht", 1); len(got) != 1 || got[0] != "Gott licht" {
		t.Errorf("got %v", got)
	}
	if got := sc.GetTopSuggestions("Gott Licht", 1); got != nil {
		t.Errorf("correct query should have no suggestions, got %v", got)
	}
}

func TestSpellChecker_GetTopSuggestions(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{"wasser": 30, "wassern": 4, "gott": 10}))
	got := sc.GetTopSuggestions("Gott wassen", 3)
	want := []string{"Gott wasser", "Gott wassern"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got := sc.GetTopSuggestions("Gott wassen", 1); len(got) != 1 {
		t.Errorf("limit not applied: %v", got)
	}
	if got := sc.GetTopSuggestions("Gott", 3); got != nil {
		t.Errorf("no corrections should give nil, got %v", got)
	}
}

func TestSpellChecker_DictionaryErrors(t *testing.T) {
	dict := bibleDictionary()
	dict.getAllError = errors.New("dictionary unavailable")
	sc := NewSpellChecker(dict)

	if err := sc.RefreshCache(); err == nil {
		t.Error("RefreshCache should return the dictionary error")
	}
	if _, err := sc.Check("Gtot"); err == nil {
		t.Error("Check should return the dictionary error")
	}
	if got := sc.Suggest("Gtot"); got != nil {
		t.Errorf("Suggest should return nil on error, got %v", got)
	}
	if sc.IsMisspelled("Gtot") {
		t.Error("IsMisspelled should be false when the dictionary is unavailable")
	}
	if got := sc.GetTopSuggestions("Gtot", 3); got != nil {
		t.Errorf("GetTopSuggestions should return nil on error, got %v", got)
	}
}

func TestSpellChecker_Suggest_TermFrequencyError(t *testing.T) {
	dict := bibleDictionary()
	sc := NewSpellChecker(dict)
	if err := sc.RefreshCache(); err != nil {
		t.Fatal(err)
	}
	dict.getFreqError = errors.New("frequency unavailable")
	if got := sc.Suggest("Gtot"); len(got) != 0 {
		t.Errorf("terms without a frequency should be skipped, got %v", got)
	}
}
