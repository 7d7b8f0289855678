package models

// SearchRow is one matching verse.
type SearchRow struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"text"`
	Count   int    `json:"count"`

	bookIndex int
}

// BookIndex returns the corpus index of the row's book.
func (r *SearchRow) BookIndex() int {
	return r.bookIndex
}

// NewSearchRow creates a row for the book at corpus index bookIndex.
func NewSearchRow(bookIndex int, book string, chapter, verse int, text string, count int) SearchRow {
	return SearchRow{Book: book, Chapter: chapter, Verse: verse, Text: text, Count: count, bookIndex: bookIndex}
}

// SearchResult is the outcome of one corpus scan.
// When Exceeded is set the rows and aggregates are empty and TotalMatches is zero.
type SearchResult struct {
	// Version names the corpus that was scanned.
	Version      string         `json:"version,omitempty"`
	Rows         []SearchRow    `json:"rows"`
	TotalMatches int            `json:"total_matches"`
	PerBook      map[string]int `json:"per_book"`
	PerChap      map[string]int `json:"per_chapter"`
	Exceeded     bool           `json:"exceeded"`
	QueryTime    int64          `json:"query_time_ms"`
	// Suggestions holds "did you mean" alternatives when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
}

// NewSearchResult returns an empty result with initialized aggregates.
func NewSearchResult() *SearchResult {
	return &SearchResult{
		Rows:    []SearchRow{},
		PerBook: map[string]int{},
		PerChap: map[string]int{},
	}
}

// Segment is a piece of highlighted verse text.
type Segment struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

// PassageVerse is one verse of a resolved reference.
type PassageVerse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Reference is a parsed scripture reference. Zero values mean "absent".
type Reference struct {
	BookIndex    int `json:"book_index"`
	ChapterStart int `json:"chapter_start"`
	ChapterEnd   int `json:"chapter_end,omitempty"`
	VerseStart   int `json:"verse_start,omitempty"`
	VerseEnd     int `json:"verse_end,omitempty"`
}

// SpansChapters reports whether the reference covers more than one chapter.
func (r Reference) SpansChapters() bool {
	return r.ChapterEnd > 0 && r.ChapterEnd != r.ChapterStart
}
