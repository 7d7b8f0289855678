// Package library loads bible versions from disk and keeps track of the
// version currently in use.
package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/models"
)

const attemptLogSize = 60

// Library loads versions and publishes the selected one. Loads are tagged
// with a generation; a load that finishes after a newer one was started is
// dropped instead of replacing the newer result. Subscribers see published
// corpora in generation order.
type Library struct {
	dir           *Dir
	read          func(ctx context.Context, abbr string) (*models.Corpus, error)
	preferred     []string
	timeout       time.Duration
	minCacheBooks int
	logger        *zap.Logger

	cache *lru.Cache[string, *models.Corpus]
	group singleflight.Group

	generation atomic.Uint64

	// deliver serializes publishing so listener calls never reorder.
	deliver sync.Mutex

	mu        sync.RWMutex
	current   *models.Corpus
	loading   int
	listeners []func(*models.Corpus)
	attempts  []string
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger for load diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) {
		if l != nil {
			lib.logger = l
		}
	}
}

// New creates a Library over cfg.BiblesDir.
func New(cfg *config.LibraryConfig, opts ...Option) (*Library, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *models.Corpus](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create version cache: %w", err)
	}
	dir := NewDir(cfg.BiblesDir)
	lib := &Library{
		dir:           dir,
		read:          dir.Read,
		preferred:     cfg.Preferred,
		timeout:       cfg.FetchTimeout,
		minCacheBooks: cfg.MinCacheBooks,
		logger:        zap.NewNop(),
		cache:         cache,
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib, nil
}

// Dir returns the directory the library reads from.
func (l *Library) Dir() string {
	return l.dir.Root()
}

// Versions lists the available versions: preferred ones first in their
// configured order, then the rest sorted by name.
func (l *Library) Versions() ([]models.VersionInfo, error) {
	versions, err := l.dir.Index()
	if err != nil {
		return nil, err
	}
	OrderVersions(versions, l.preferred)
	return versions, nil
}

// OrderVersions sorts versions in place: abbreviations listed in preferred
// come first in that order, the rest follow by name.
func OrderVersions(versions []models.VersionInfo, preferred []string) {
	rank := make(map[string]int, len(preferred))
	for i, p := range preferred {
		if _, ok := rank[p]; !ok {
			rank[p] = i
		}
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(versions, func(i, j int) bool {
		ri, iok := rank[versions[i].Abbreviation]
		rj, jok := rank[versions[j].Abbreviation]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return col.CompareString(versions[i].Name, versions[j].Name) < 0
	})
}

// Current returns the published corpus, or nil before the first load.
func (l *Library) Current() *models.Corpus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Generation returns the number of loads started so far.
func (l *Library) Generation() uint64 {
	return l.generation.Load()
}

// Subscribe registers fn to be called with every newly published corpus.
// Calls are made one at a time in publish order; fn must not load versions.
func (l *Library) Subscribe(fn func(*models.Corpus)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Attempts returns the most recent load events, oldest first.
func (l *Library) Attempts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.attempts))
	copy(out, l.attempts)
	return out
}

func (l *Library) record(event, abbr string) {
	l.mu.Lock()
	l.attempts = append(l.attempts, event+":"+abbr)
	if len(l.attempts) > attemptLogSize {
		l.attempts = l.attempts[len(l.attempts)-attemptLogSize:]
	}
	l.mu.Unlock()
}

// Load reads version abbr and publishes it. It returns models.ErrStaleLoad
// when another Load started while this one was running.
func (l *Library) Load(ctx context.Context, abbr string) (*models.Corpus, error) {
	l.mu.Lock()
	l.loading++
	gen := l.generation.Add(1)
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.loading--
		l.mu.Unlock()
	}()

	corpus, err := l.fetch(ctx, abbr)
	if err != nil {
		l.record("fail", abbr)
		l.logger.Warn("failed to load version", zap.String("version", abbr), zap.Error(err))
		return nil, err
	}
	if !l.publish(gen, corpus) {
		l.record("staleDrop", abbr)
		l.logger.Debug("dropped stale load", zap.String("version", abbr), zap.Uint64("generation", gen))
		return nil, models.ErrStaleLoad
	}
	l.record("success", abbr)
	l.logger.Info("loaded version",
		zap.String("version", abbr),
		zap.Int("books", len(corpus.Books)),
		zap.String("fingerprint", corpus.Fingerprint),
	)
	return corpus, nil
}

// LoadAny tries each version in turn and publishes the first that loads.
// When none loads the built-in sample is published; the returned error then
// joins every failure.
func (l *Library) LoadAny(ctx context.Context, abbrs []string) (*models.Corpus, error) {
	var errs []error
	for _, abbr := range abbrs {
		corpus, err := l.Load(ctx, abbr)
		if err == nil {
			return corpus, nil
		}
		if errors.Is(err, models.ErrStaleLoad) || ctx.Err() != nil {
			return nil, err
		}
		errs = append(errs, err)
	}

	gen := l.generation.Add(1)
	sample := Sample()
	if !l.publish(gen, sample) {
		return nil, models.ErrStaleLoad
	}
	l.record("sample", SampleVersion)
	l.logger.Warn("no version could be loaded, using sample", zap.Int("attempts", len(abbrs)))
	return sample, errors.Join(errs...)
}

// Preload reads versions into the cache without publishing them.
func (l *Library) Preload(ctx context.Context, abbrs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for _, abbr := range abbrs {
		abbr := abbr
		g.Go(func() error {
			_, err := l.fetch(gctx, abbr)
			return err
		})
	}
	return g.Wait()
}

// Reload re-reads abbr from disk, bypassing the cache. When abbr is the
// current version and its content changed, the new corpus is published.
// A Load in progress wins: the reload then publishes nothing. It reports
// whether anything was published.
func (l *Library) Reload(ctx context.Context, abbr string) (bool, error) {
	l.cache.Remove(abbr)
	cur := l.Current()
	if cur == nil || cur.Version != abbr {
		return false, nil
	}

	corpus, err := l.fetch(ctx, abbr)
	if err != nil {
		return false, err
	}
	if corpus.Fingerprint == cur.Fingerprint {
		return false, nil
	}

	l.mu.Lock()
	if l.loading > 0 || l.current != cur {
		l.mu.Unlock()
		l.logger.Debug("reload skipped, version changed meanwhile", zap.String("version", abbr))
		return false, nil
	}
	gen := l.generation.Add(1)
	l.mu.Unlock()
	if !l.publish(gen, corpus) {
		return false, models.ErrStaleLoad
	}
	l.record("reload", abbr)
	l.logger.Info("reloaded version", zap.String("version", abbr))
	return true, nil
}

// fetch returns abbr from the cache or reads it, sharing concurrent reads
// of the same version.
func (l *Library) fetch(ctx context.Context, abbr string) (*models.Corpus, error) {
	if c, ok := l.cache.Get(abbr); ok {
		l.record("cacheHit", abbr)
		return c, nil
	}
	l.record("try", abbr)

	v, err, _ := l.group.Do(abbr, func() (interface{}, error) {
		readCtx := ctx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			readCtx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}
		corpus, err := l.read(readCtx, abbr)
		if err != nil {
			return nil, &models.LoadError{Version: abbr, Stage: stageOf(err), Err: err}
		}
		if len(corpus.Books) >= l.minCacheBooks {
			l.cache.Add(abbr, corpus)
		}
		return corpus, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Corpus), nil
}

func (l *Library) publish(gen uint64, c *models.Corpus) bool {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	l.mu.Lock()
	if l.generation.Load() != gen {
		l.mu.Unlock()
		return false
	}
	l.current = c
	listeners := make([]func(*models.Corpus), len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
	return true
}

func stageOf(err error) string {
	switch {
	case errors.Is(err, models.ErrVersionNotFound):
		return "lookup"
	case errors.Is(err, models.ErrInvalidCorpus):
		return "decode"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "read"
	}
}
