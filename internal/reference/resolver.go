// Package reference parses human-written scripture references and extracts
// the verses they name from a loaded corpus.
package reference

import (
	"strconv"
	"strings"

	"github.com/dawei7/biblereader/internal/models"
)

// Split returns the trimmed, non-empty ";"-separated parts of refs.
func Split(refs string) []string {
	var out []string
	for _, part := range strings.Split(refs, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parse parses a single reference. BookIndex is a position in CanonicalBooks.
// It reports false when the text is not a reference to a known book.
func Parse(ref string) (models.Reference, bool) {
	ast, err := parseReference(ref)
	if err != nil {
		return models.Reference{}, false
	}
	idx := CanonicalIndex(ast.Book)
	if idx < 0 || ast.Chapter < 1 {
		return models.Reference{}, false
	}
	r := models.Reference{BookIndex: idx, ChapterStart: ast.Chapter}
	switch {
	case ast.VerseStart != nil:
		r.VerseStart = *ast.VerseStart
		r.VerseEnd = r.VerseStart
		if ast.VerseEnd != nil && *ast.VerseEnd >= r.VerseStart {
			r.VerseEnd = *ast.VerseEnd
		}
	case ast.ChapterEnd != nil:
		r.ChapterEnd = *ast.ChapterEnd
		if r.ChapterEnd < r.ChapterStart {
			r.ChapterEnd = r.ChapterStart
		}
	}
	return r, true
}

// corpusBook maps a canonical book index onto the corpus. Books are matched by
// name first; corpora with translated names fall back to array position.
func corpusBook(canonical int, corpus *models.Corpus) (*models.Book, bool) {
	if corpus.Empty() || canonical < 0 || canonical >= len(CanonicalBooks) {
		return nil, false
	}
	if i := corpus.BookByName(CanonicalBooks[canonical]); i >= 0 {
		return &corpus.Books[i], true
	}
	if canonical < len(corpus.Books) {
		return &corpus.Books[canonical], true
	}
	return nil, false
}

// BookIndex returns the corpus position of the book named by token, or -1.
// An exact corpus book name wins; otherwise token is resolved like the book
// part of a reference.
func BookIndex(token string, corpus *models.Corpus) int {
	if i := corpus.BookByName(strings.TrimSpace(token)); i >= 0 {
		return i
	}
	book, ok := corpusBook(CanonicalIndex(token), corpus)
	if !ok {
		return -1
	}
	for i := range corpus.Books {
		if &corpus.Books[i] == book {
			return i
		}
	}
	return -1
}

// Extract returns the verses named by a parsed reference. Verse numbers past
// the end of a chapter are omitted; empty verse slots are skipped.
func Extract(r models.Reference, corpus *models.Corpus) []models.PassageVerse {
	book, ok := corpusBook(r.BookIndex, corpus)
	if !ok || r.ChapterStart < 1 || r.ChapterStart > book.ChapterCount() {
		return nil
	}

	if r.VerseStart > 0 {
		ch := book.Chapters[r.ChapterStart-1]
		var out []models.PassageVerse
		for v := r.VerseStart; v <= r.VerseEnd && v <= len(ch); v++ {
			if ch[v-1] == "" {
				continue
			}
			out = append(out, models.PassageVerse{Label: strconv.Itoa(v), Text: ch[v-1]})
		}
		return out
	}

	end := r.ChapterStart
	if r.ChapterEnd > end {
		end = min(r.ChapterEnd, book.ChapterCount())
	}
	multi := end > r.ChapterStart
	var out []models.PassageVerse
	for c := r.ChapterStart; c <= end; c++ {
		for i, text := range book.Chapters[c-1] {
			if text == "" {
				continue
			}
			label := strconv.Itoa(i + 1)
			if multi {
				label = strconv.Itoa(c) + ":" + label
			}
			out = append(out, models.PassageVerse{Label: label, Text: text})
		}
	}
	return out
}

// ResolveFirst resolves only the first ";"-separated reference in refs.
// Anything that cannot be resolved yields an empty list.
func ResolveFirst(refs string, corpus *models.Corpus) []models.PassageVerse {
	parts := Split(refs)
	if len(parts) == 0 {
		return nil
	}
	return resolveOne(parts[0], corpus)
}

// Resolve resolves every ";"-separated reference in refs on its own and
// concatenates the verses in order. Unresolvable parts contribute nothing.
func Resolve(refs string, corpus *models.Corpus) []models.PassageVerse {
	var out []models.PassageVerse
	for _, part := range Split(refs) {
		out = append(out, resolveOne(part, corpus)...)
	}
	return out
}

// Passage is the verses of one reference in a multi-reference lookup.
type Passage struct {
	Reference string                `json:"reference"`
	Book      string                `json:"book,omitempty"`
	Verses    []models.PassageVerse `json:"verses"`
}

// ResolvePassages is like Resolve but keeps the verses grouped per reference.
func ResolvePassages(refs string, corpus *models.Corpus) []Passage {
	parts := Split(refs)
	out := make([]Passage, 0, len(parts))
	for _, part := range parts {
		p := Passage{Reference: part, Verses: []models.PassageVerse{}}
		if r, ok := Parse(part); ok {
			if book, ok := corpusBook(r.BookIndex, corpus); ok {
				p.Book = book.Name
			}
			if verses := Extract(r, corpus); verses != nil {
				p.Verses = verses
			}
		}
		out = append(out, p)
	}
	return out
}

func resolveOne(ref string, corpus *models.Corpus) []models.PassageVerse {
	r, ok := Parse(ref)
	if !ok {
		return nil
	}
	return Extract(r, corpus)
}

// ReadRange returns verses vStart..vEnd of one chapter for reading. vEnd == 0
// means the end of the chapter; both bounds are clamped to the chapter.
// Empty verse slots are skipped.
func ReadRange(corpus *models.Corpus, book, chapter, vStart, vEnd int) []models.PassageVerse {
	if corpus.Empty() || book < 0 || book >= len(corpus.Books) {
		return nil
	}
	b := &corpus.Books[book]
	if chapter < 1 || chapter > b.ChapterCount() {
		return nil
	}
	ch := b.Chapters[chapter-1]
	if len(ch) == 0 {
		return nil
	}
	end := len(ch)
	if vEnd != 0 {
		end = clamp(vEnd, 1, len(ch))
	}
	start := clamp(vStart, 1, end)
	out := make([]models.PassageVerse, 0, end-start+1)
	for v := start; v <= end; v++ {
		if ch[v-1] == "" {
			continue
		}
		out = append(out, models.PassageVerse{Label: strconv.Itoa(v), Text: ch[v-1]})
	}
	return out
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
