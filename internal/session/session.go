// Package session holds the interactive search state of one reader: the
// active corpus, the current query and the last published result.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/keyword"
	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/search"
)

// State is one published search outcome. Generation identifies the request
// that produced it; a newer request always carries a larger generation.
type State struct {
	Generation uint64               `json:"generation"`
	Version    string               `json:"version"`
	Query      models.Query         `json:"query"`
	Result     *models.SearchResult `json:"result"`
}

// Session debounces query edits and runs searches in the background. Only
// the newest request is ever published; results of superseded requests are
// dropped, and their scans are cancelled.
type Session struct {
	engine   *search.Engine
	matchers *matcher.Cache
	debounce time.Duration
	suggest  config.SuggestConfig
	logger   *zap.Logger

	// deliver serializes publishing so listeners see generations in order.
	deliver sync.Mutex

	mu        sync.Mutex
	corpus    *models.Corpus
	query     models.Query
	gen       uint64
	timer     *time.Timer
	cancel    context.CancelFunc
	last      State
	listeners []func(State)
	closed    bool

	spell *spelling
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for session diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSuggestions enables "did you mean" suggestions for searches that
// match nothing.
func WithSuggestions(cfg config.SuggestConfig) Option {
	return func(s *Session) {
		s.suggest = cfg
	}
}

// New creates a session. The initial mode and case sensitivity come from cfg.
func New(engine *search.Engine, cfg *config.SearchConfig, opts ...Option) (*Session, error) {
	cacheSize := cfg.MatcherCacheSize
	if cacheSize <= 0 {
		cacheSize = 64
	}
	matchers, err := matcher.NewCache(cacheSize)
	if err != nil {
		return nil, err
	}
	mode, err := models.ParseMode(cfg.DefaultMode)
	if err != nil {
		mode = models.ModeAll
	}
	disabled := false
	s := &Session{
		engine:   engine,
		matchers: matchers,
		debounce: cfg.Debounce,
		suggest:  config.SuggestConfig{Enabled: &disabled},
		logger:   zap.NewNop(),
		query: models.Query{
			Mode:          mode,
			CaseSensitive: cfg.CaseSensitive,
			Scope:         models.WholeCorpus(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe registers fn to receive every published state, one call at a
// time in generation order. fn runs on the search goroutine and must not call
// back into the session while holding its own locks.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the last published state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Query returns the current query parameters.
func (s *Session) Query() models.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Corpus returns the active corpus.
func (s *Session) Corpus() *models.Corpus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corpus
}

// SetQueryInput records the query text and searches once the input has been
// quiet for the debounce interval.
func (s *Session) SetQueryInput(text string) {
	s.update(s.debounce, func(q *models.Query) { q.Text = text })
}

// SetMode changes the search mode and searches immediately.
func (s *Session) SetMode(mode models.Mode) {
	s.update(0, func(q *models.Query) { q.Mode = mode })
}

// SetCaseSensitive changes case sensitivity and searches immediately.
func (s *Session) SetCaseSensitive(on bool) {
	s.update(0, func(q *models.Query) { q.CaseSensitive = on })
}

// SetScope changes the search scope and searches immediately.
func (s *Session) SetScope(scope models.Scope) {
	s.update(0, func(q *models.Query) { q.Scope = scope })
}

// SetCorpus switches the active corpus. In-flight searches against the old
// corpus are cancelled and the current query is rerun.
func (s *Session) SetCorpus(corpus *models.Corpus) {
	s.mu.Lock()
	if s.corpus == corpus {
		s.mu.Unlock()
		return
	}
	s.corpus = corpus
	if s.suggest.EnabledOrDefault() {
		s.rebuildSpelling(corpus)
	}
	s.mu.Unlock()
	s.update(0, func(q *models.Query) {
		if q.Scope.Kind == models.ScopeBook && (corpus.Empty() || q.Scope.Book >= len(corpus.Books)) {
			q.Scope = models.WholeCorpus()
		}
	})
}

// Close stops pending and running searches. Later updates are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.spell != nil {
		s.spell.close()
		s.spell = nil
	}
}

func (s *Session) update(delay time.Duration, apply func(*models.Query)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	apply(&s.query)
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, func() { s.run(gen) })
}

func (s *Session) run(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	corpus := s.corpus
	query := s.query
	spell := s.spell
	s.mu.Unlock()
	defer cancel()

	result, err := s.search(ctx, corpus, query, spell)
	if err != nil {
		s.logger.Debug("search cancelled", zap.Uint64("generation", gen))
		return
	}

	s.deliver.Lock()
	defer s.deliver.Unlock()
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropped stale result", zap.Uint64("generation", gen))
		return
	}
	state := State{Generation: gen, Query: query, Result: result}
	if corpus != nil {
		state.Version = corpus.Version
	}
	s.last = state
	listeners := make([]func(State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// Search runs q against the active corpus without touching the session's
// own query or published state. The result names the version it scanned.
func (s *Session) Search(ctx context.Context, q models.Query) (*models.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	corpus := s.corpus
	spell := s.spell
	s.mu.Unlock()
	return s.search(ctx, corpus, q, spell)
}

// Matcher returns the compiled matcher for q, or nil when q has no words.
func (s *Session) Matcher(q models.Query) *matcher.Matcher {
	return s.matchers.Compile(q.Text, q.Mode, matcher.Options{CaseSensitive: q.CaseSensitive})
}

func (s *Session) search(ctx context.Context, corpus *models.Corpus, q models.Query, spell *spelling) (*models.SearchResult, error) {
	m := s.Matcher(q)
	result, err := s.engine.Search(ctx, corpus, m, q.Scope)
	if err != nil {
		return nil, err
	}
	if m != nil && len(result.Rows) == 0 && !result.Exceeded && spell != nil {
		result.Suggestions = spell.suggestions(q.Text, s.suggest.MaxSuggestions)
	}
	return result, nil
}

// SuggestionsReady returns a channel closed once suggestions for the active
// corpus are available, or nil when suggestions are disabled.
func (s *Session) SuggestionsReady() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spell == nil {
		return nil
	}
	return s.spell.ready
}

// spelling holds the spell checker for one corpus. It is built in the
// background; until ready is closed no suggestions are offered.
type spelling struct {
	ready  chan struct{}
	cancel context.CancelFunc

	mu      sync.Mutex
	index   *keyword.VerseIndex
	checker *keyword.SpellChecker
}

// rebuildSpelling must be called with s.mu held.
func (s *Session) rebuildSpelling(corpus *models.Corpus) {
	if s.spell != nil {
		s.spell.close()
	}
	ctx, cancel := context.WithCancel(context.Background())
	sp := &spelling{ready: make(chan struct{}), cancel: cancel}
	s.spell = sp
	cfg := s.suggest

	go func() {
		defer close(sp.ready)
		start := time.Now()
		index, err := keyword.NewVerseIndex(ctx, corpus)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("failed to build suggestion index", zap.Error(err))
			}
			return
		}
		checker := keyword.NewSpellChecker(index,
			keyword.WithMaxDistance(cfg.MaxDistance),
			keyword.WithMinFrequency(cfg.MinFrequency),
			keyword.WithMaxSuggestions(cfg.MaxSuggestions),
		)
		if err := checker.RefreshCache(); err != nil {
			index.Close()
			s.logger.Warn("failed to load suggestion dictionary", zap.Error(err))
			return
		}
		sp.mu.Lock()
		defer sp.mu.Unlock()
		if ctx.Err() != nil {
			index.Close()
			return
		}
		sp.index = index
		sp.checker = checker
		s.logger.Debug("suggestion index ready",
			zap.String("version", index.Version()),
			zap.Duration("took", time.Since(start)),
		)
	}()
}

func (sp *spelling) suggestions(query string, n int) []string {
	sp.mu.Lock()
	checker := sp.checker
	sp.mu.Unlock()
	if checker == nil {
		return nil
	}
	if n <= 0 {
		n = 3
	}
	return checker.GetTopSuggestions(query, n)
}

func (sp *spelling) close() {
	sp.cancel()
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.index != nil {
		sp.index.Close()
		sp.index = nil
	}
	sp.checker = nil
}
