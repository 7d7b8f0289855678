// Package models defines core data structures for bibles, queries, and search results.
package models

// Chapter holds the verse texts of one chapter; index 0 is verse 1.
// A missing verse is kept as an empty slot so later verses keep their numbers.
type Chapter []string

// Book is one book of a bible version.
type Book struct {
	Name     string    `json:"name"`
	Abbrev   string    `json:"abbrev"`
	Chapters []Chapter `json:"chapters"`
}

// ChapterCount returns the number of chapters in the book.
func (b *Book) ChapterCount() int {
	return len(b.Chapters)
}

// Verse returns the text of verse v in chapter c (both 1-based) and whether it exists.
func (b *Book) Verse(c, v int) (string, bool) {
	if c < 1 || c > len(b.Chapters) {
		return "", false
	}
	ch := b.Chapters[c-1]
	if v < 1 || v > len(ch) {
		return "", false
	}
	return ch[v-1], true
}

// Corpus is a fully loaded bible version. It is never mutated after it has
// been published; loading another version replaces the whole value.
type Corpus struct {
	Version     string `json:"version"`
	Books       []Book `json:"books"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Empty reports whether the corpus has no books.
func (c *Corpus) Empty() bool {
	return c == nil || len(c.Books) == 0
}

// BookByName returns the index of the book with the given name, or -1.
func (c *Corpus) BookByName(name string) int {
	if c == nil {
		return -1
	}
	for i := range c.Books {
		if c.Books[i].Name == name {
			return i
		}
	}
	return -1
}

// VerseCount returns the total number of verse slots in the corpus.
func (c *Corpus) VerseCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for i := range c.Books {
		for _, ch := range c.Books[i].Chapters {
			n += len(ch)
		}
	}
	return n
}

// VersionInfo describes a version listed in the library index.
type VersionInfo struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Language     string `json:"language"`
}
