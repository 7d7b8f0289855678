// Package search scans a corpus with a compiled matcher and highlights verses.
package search

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
)

// Engine runs full scans over a corpus. It holds no per-search state and is
// safe for concurrent use.
type Engine struct {
	maxResults int
	order      map[string]int
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCanonicalOrder sets the book order used to sort result rows. Books not
// in the list sort after all listed books, by corpus position.
func WithCanonicalOrder(names []string) EngineOption {
	return func(e *Engine) {
		e.order = make(map[string]int, len(names))
		for i, n := range names {
			if _, dup := e.order[n]; !dup {
				e.order[n] = i
			}
		}
	}
}

// WithLogger sets the logger for search diagnostics.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a search engine. The result ceiling comes from cfg and
// defaults to config.DefaultMaxResults; rows sort in canonical 66-book order
// unless WithCanonicalOrder says otherwise.
func NewEngine(cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		maxResults: config.DefaultMaxResults,
		logger:     zap.NewNop(),
	}
	if cfg != nil && cfg.MaxResults > 0 {
		e.maxResults = cfg.MaxResults
	}
	WithCanonicalOrder(reference.CanonicalBooks)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxResults returns the row ceiling above which a search is abandoned.
func (e *Engine) MaxResults() int {
	return e.maxResults
}

// ChapterKey returns the per-chapter aggregate key for a book and chapter.
func ChapterKey(book string, chapter int) string {
	return book + " " + strconv.Itoa(chapter)
}

// Search scans the verses in scope and returns one row per matching verse.
// A matcher without words or an empty corpus gives an empty result without
// scanning.
// When more than MaxResults verses match, the scan stops at once and the
// result only carries Exceeded. The returned error is non-nil only when ctx
// is cancelled, which callers use to abandon superseded searches.
func (e *Engine) Search(ctx context.Context, corpus *models.Corpus, m matcher.TextMatcher, scope models.Scope) (*models.SearchResult, error) {
	startTime := time.Now()
	result := models.NewSearchResult()
	if corpus != nil {
		result.Version = corpus.Version
	}
	if m == nil || corpus.Empty() || len(m.Words()) == 0 {
		return result, nil
	}

	books, ok := e.booksInScope(corpus, scope)
	if !ok {
		return result, nil
	}

	for _, bi := range books {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		book := &corpus.Books[bi]
		from, to := chapterRange(book, scope)
		for c := from; c <= to; c++ {
			for v, text := range book.Chapters[c-1] {
				count := m.Count(text)
				if !count.Matched || count.N == 0 {
					continue
				}
				result.Rows = append(result.Rows, models.NewSearchRow(bi, book.Name, c, v+1, text, count.N))
				result.TotalMatches += count.N
				result.PerBook[book.Name] += count.N
				result.PerChap[ChapterKey(book.Name, c)] += count.N
				if len(result.Rows) > e.maxResults {
					e.logger.Debug("search exceeded result ceiling",
						zap.Int("max_results", e.maxResults),
						zap.Strings("words", m.Words()),
					)
					exceeded := models.NewSearchResult()
					exceeded.Version = result.Version
					exceeded.Exceeded = true
					exceeded.QueryTime = time.Since(startTime).Milliseconds()
					return exceeded, nil
				}
			}
		}
	}

	e.sortRows(result.Rows)
	result.QueryTime = time.Since(startTime).Milliseconds()
	e.logger.Debug("search finished",
		zap.Strings("words", m.Words()),
		zap.Int("rows", len(result.Rows)),
		zap.Int("total_matches", result.TotalMatches),
		zap.Int64("query_time_ms", result.QueryTime),
	)
	return result, nil
}

func (e *Engine) booksInScope(corpus *models.Corpus, scope models.Scope) ([]int, bool) {
	if scope.Kind == models.ScopeBook {
		if scope.Book < 0 || scope.Book >= len(corpus.Books) {
			return nil, false
		}
		return []int{scope.Book}, true
	}
	books := make([]int, len(corpus.Books))
	for i := range books {
		books[i] = i
	}
	return books, true
}

// chapterRange returns the inclusive 1-based chapters to scan. For a book
// scope, from is clamped to the book, to == 0 means the last chapter, and
// the range never runs backwards.
func chapterRange(book *models.Book, scope models.Scope) (int, int) {
	n := book.ChapterCount()
	if scope.Kind != models.ScopeBook {
		return 1, n
	}
	if n == 0 {
		return 1, 0
	}
	from := max(1, min(scope.From, n))
	to := n
	if scope.To != 0 {
		to = max(1, min(scope.To, n))
	}
	return from, max(from, to)
}

// position returns the sort key of a book: its canonical index, or the
// corpus index after every canonical book.
func (e *Engine) position(row *models.SearchRow) int {
	if p, ok := e.order[row.Book]; ok {
		return p
	}
	return len(e.order) + row.BookIndex()
}

func (e *Engine) sortRows(rows []models.SearchRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if pa, pb := e.position(a), e.position(b); pa != pb {
			return pa < pb
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Verse < b.Verse
	})
}
