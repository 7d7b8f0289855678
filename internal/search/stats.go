package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dawei7/biblereader/internal/models"
)

// BookCount is a per-book aggregate.
type BookCount struct {
	Book  string `json:"book"`
	Count int    `json:"count"`
}

// ChapterCount is a per-chapter aggregate.
type ChapterCount struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Count   int    `json:"count"`
}

// TopBooks returns the per-book counts of result in canonical order.
// An exceeded result has no usable aggregates and yields nil.
func (e *Engine) TopBooks(result *models.SearchResult) []BookCount {
	if result == nil || result.Exceeded {
		return nil
	}
	out := make([]BookCount, 0, len(result.PerBook))
	for b, c := range result.PerBook {
		out = append(out, BookCount{Book: b, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := e.bookPosition(out[i].Book, result), e.bookPosition(out[j].Book, result)
		if pi != pj {
			return pi < pj
		}
		return out[i].Book < out[j].Book
	})
	return out
}

// TopChapters returns up to n chapters with the most matches. Ties keep
// canonical order. n <= 0 returns every chapter.
func (e *Engine) TopChapters(result *models.SearchResult, n int) []ChapterCount {
	if result == nil || result.Exceeded {
		return nil
	}
	out := make([]ChapterCount, 0, len(result.PerChap))
	for key, c := range result.PerChap {
		i := strings.LastIndexByte(key, ' ')
		if i < 0 {
			continue
		}
		ch, err := strconv.Atoi(key[i+1:])
		if err != nil {
			continue
		}
		out = append(out, ChapterCount{Book: key[:i], Chapter: ch, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if pa, pb := e.bookPosition(a.Book, result), e.bookPosition(b.Book, result); pa != pb {
			return pa < pb
		}
		return a.Chapter < b.Chapter
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ChapterBreakdown returns the chapter counts of one book in chapter order.
func ChapterBreakdown(result *models.SearchResult, book string) []ChapterCount {
	if result == nil || result.Exceeded {
		return nil
	}
	prefix := book + " "
	var out []ChapterCount
	for key, c := range result.PerChap {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		ch, err := strconv.Atoi(key[len(prefix):])
		if err != nil {
			continue
		}
		out = append(out, ChapterCount{Book: book, Chapter: ch, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chapter < out[j].Chapter })
	return out
}

// FilterRows narrows rows to the given books, or to the given "book chapter"
// keys when any are set.
func FilterRows(rows []models.SearchRow, books, chapters []string) []models.SearchRow {
	if len(chapters) > 0 {
		set := make(map[string]bool, len(chapters))
		for _, c := range chapters {
			set[c] = true
		}
		var out []models.SearchRow
		for _, r := range rows {
			if set[ChapterKey(r.Book, r.Chapter)] {
				out = append(out, r)
			}
		}
		return out
	}
	if len(books) > 0 {
		set := make(map[string]bool, len(books))
		for _, b := range books {
			set[b] = true
		}
		var out []models.SearchRow
		for _, r := range rows {
			if set[r.Book] {
				out = append(out, r)
			}
		}
		return out
	}
	return rows
}

func (e *Engine) bookPosition(book string, result *models.SearchResult) int {
	if p, ok := e.order[book]; ok {
		return p
	}
	for _, r := range result.Rows {
		if r.Book == book {
			return len(e.order) + r.BookIndex()
		}
	}
	return len(e.order) + len(result.Rows)
}

// Response is a result plus its aggregates in display order. It is the
// shape the HTTP API returns and the command line prints.
// Chapters is set when a request is filtered to a single book.
type Response struct {
	Version     string               `json:"version"`
	Query       models.Query         `json:"query"`
	Result      *models.SearchResult `json:"result"`
	Books       []BookCount          `json:"books"`
	TopChapters []ChapterCount       `json:"top_chapters"`
	Chapters    []ChapterCount       `json:"chapters,omitempty"`
}

// Respond wraps result with its per-book counts and the top n chapters.
func (e *Engine) Respond(version string, q models.Query, result *models.SearchResult, n int) *Response {
	return &Response{
		Version:     version,
		Query:       q,
		Result:      result,
		Books:       e.TopBooks(result),
		TopChapters: e.TopChapters(result, n),
	}
}
