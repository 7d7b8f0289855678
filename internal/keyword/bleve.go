package keyword

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	"github.com/dawei7/biblereader/internal/models"
)

const (
	textField     = "text"
	verseAnalyzer = "verse"
	batchSize     = 1000
)

type verseDoc struct {
	Text string `json:"text"`
}

// VerseIndex is an in-memory bleve index over the verses of one corpus. It is
// rebuilt from scratch whenever the active version changes and never persisted.
type VerseIndex struct {
	index   bleve.Index
	version string
	terms   []string
	freq    map[string]int
}

// NewVerseIndex indexes every non-empty verse of corpus and snapshots the term
// dictionary. Cancelling ctx stops indexing between batches.
func NewVerseIndex(ctx context.Context, corpus *models.Corpus) (*VerseIndex, error) {
	im := bleve.NewIndexMapping()
	// Lowercase and split on Unicode word boundaries, without stemming or
	// stop words: every word of every verse belongs in the dictionary.
	if err := im.AddCustomAnalyzer(verseAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("failed to register verse analyzer: %w", err)
	}
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = verseAnalyzer
	textFieldMapping.Store = false
	textFieldMapping.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(textField, textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create verse index: %w", err)
	}
	v := &VerseIndex{index: index, freq: make(map[string]int)}
	if corpus != nil {
		v.version = corpus.Version
	}

	if err := v.indexCorpus(ctx, corpus); err != nil {
		index.Close()
		return nil, err
	}
	if err := v.loadDictionary(); err != nil {
		index.Close()
		return nil, err
	}
	return v, nil
}

func (v *VerseIndex) indexCorpus(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Empty() {
		return nil
	}
	batch := v.index.NewBatch()
	for bi, book := range corpus.Books {
		for ci, ch := range book.Chapters {
			for vi, text := range ch {
				if text == "" {
					continue
				}
				id := strconv.Itoa(bi) + ":" + strconv.Itoa(ci+1) + ":" + strconv.Itoa(vi+1)
				if err := batch.Index(id, verseDoc{Text: text}); err != nil {
					return fmt.Errorf("failed to index verse %s: %w", id, err)
				}
				if batch.Size() >= batchSize {
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := v.index.Batch(batch); err != nil {
						return fmt.Errorf("failed to index batch: %w", err)
					}
					batch.Reset()
				}
			}
		}
	}
	if batch.Size() > 0 {
		if err := v.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to index batch: %w", err)
		}
	}
	return nil
}

// loadDictionary copies the field dictionary so lookups do not go back to the index.
func (v *VerseIndex) loadDictionary() error {
	dict, err := v.index.FieldDict(textField)
	if err != nil {
		return fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()
	for {
		entry, err := dict.Next()
		if err != nil {
			return fmt.Errorf("failed to read term dictionary: %w", err)
		}
		if entry == nil {
			return nil
		}
		v.terms = append(v.terms, entry.Term)
		v.freq[entry.Term] = int(entry.Count)
	}
}

// Version returns the corpus version the index was built from.
func (v *VerseIndex) Version() string {
	return v.version
}

// DocCount returns the number of indexed verses.
func (v *VerseIndex) DocCount() (uint64, error) {
	return v.index.DocCount()
}

// GetAllTerms returns all unique terms from the verse dictionary.
func (v *VerseIndex) GetAllTerms() ([]string, error) {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out, nil
}

// GetTermFrequency returns the number of verses containing term.
func (v *VerseIndex) GetTermFrequency(term string) (int, error) {
	return v.freq[term], nil
}

// ContainsTerm checks if a term exists in the index.
func (v *VerseIndex) ContainsTerm(term string) (bool, error) {
	_, ok := v.freq[term]
	return ok, nil
}

// Close releases the index.
func (v *VerseIndex) Close() error {
	return v.index.Close()
}
