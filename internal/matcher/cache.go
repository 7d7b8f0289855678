package matcher

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dawei7/biblereader/internal/models"
)

type cacheKey struct {
	query         string
	mode          models.Mode
	caseSensitive bool
}

// Cache memoizes compiled matchers. Compiling is cheap; the cache only saves
// rebuilding the regular expressions while a user toggles options back and forth.
type Cache struct {
	lru *lru.Cache[cacheKey, *Matcher]
}

// NewCache creates a matcher cache holding up to size entries.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[cacheKey, *Matcher](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create matcher cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Compile returns the cached matcher for the arguments, compiling it on a miss.
func (c *Cache) Compile(query string, mode models.Mode, opts Options) *Matcher {
	key := cacheKey{query: query, mode: mode, caseSensitive: opts.CaseSensitive}
	if m, ok := c.lru.Get(key); ok {
		return m
	}
	m := Compile(query, mode, opts)
	c.lru.Add(key, m)
	return m
}

// Len returns the number of cached matchers.
func (c *Cache) Len() int {
	return c.lru.Len()
}
