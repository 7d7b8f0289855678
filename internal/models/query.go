package models

import (
	"fmt"
	"strings"
)

// Mode selects how the words of a query combine.
type Mode string

const (
	// ModeAll requires every word to occur in the verse.
	ModeAll Mode = "all"
	// ModeAny requires at least one word to occur in the verse.
	ModeAny Mode = "any"
	// ModePhrase treats the whole query as one contiguous phrase.
	ModePhrase Mode = "phrase"
)

// ParseMode returns the Mode named by s (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAll:
		return ModeAll, nil
	case ModeAny:
		return ModeAny, nil
	case ModePhrase:
		return ModePhrase, nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// Query is a free-text search request against the active corpus.
type Query struct {
	Text          string `json:"query"`
	Mode          Mode   `json:"mode,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	Scope         Scope  `json:"scope"`
}

// Validate ensures the query has a known mode and sets the default mode when unset.
// An empty text is valid; it simply matches nothing.
func (q *Query) Validate() error {
	if q.Mode == "" {
		q.Mode = ModeAll
	}
	if _, err := ParseMode(string(q.Mode)); err != nil {
		return err
	}
	return q.Scope.Validate()
}

// ScopeKind selects whole-corpus or single-book search.
type ScopeKind string

const (
	ScopeWhole ScopeKind = "whole"
	ScopeBook  ScopeKind = "book"
)

// Scope restricts a search. For ScopeBook, Book is the corpus book index and
// From/To are 1-based chapters; To == 0 means through the end of the book.
type Scope struct {
	Kind ScopeKind `json:"kind,omitempty"`
	Book int       `json:"book,omitempty"`
	From int       `json:"from,omitempty"`
	To   int       `json:"to,omitempty"`
}

// WholeCorpus returns a scope covering every book.
func WholeCorpus() Scope {
	return Scope{Kind: ScopeWhole}
}

// BookRange returns a scope covering chapters from..to of one book.
func BookRange(book, from, to int) Scope {
	return Scope{Kind: ScopeBook, Book: book, From: from, To: to}
}

// Validate sets the default kind and rejects negative bounds.
func (s *Scope) Validate() error {
	if s.Kind == "" {
		s.Kind = ScopeWhole
	}
	switch s.Kind {
	case ScopeWhole:
		return nil
	case ScopeBook:
		if s.Book < 0 {
			return fmt.Errorf("book index cannot be negative")
		}
		if s.From < 0 || s.To < 0 {
			return fmt.Errorf("chapter bounds cannot be negative")
		}
		return nil
	}
	return fmt.Errorf("unknown scope kind %q", s.Kind)
}
