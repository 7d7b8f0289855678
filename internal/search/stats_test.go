package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawei7/biblereader/internal/models"
)

func statsCorpus() *models.Corpus {
	return &models.Corpus{Books: []models.Book{
		{Name: "Exodus", Chapters: []models.Chapter{{"light light"}, {"light"}}},
		{Name: "Genesis", Chapters: []models.Chapter{{"light"}, {"dark"}, {"light light light"}}},
	}}
}

func TestEngine_TopBooks(t *testing.T) {
	e := NewEngine(nil)
	res, err := e.Search(context.Background(), statsCorpus(), compile("light", models.ModeAll), models.WholeCorpus())
	require.NoError(t, err)
	assert.Equal(t, []BookCount{{"Genesis", 4}, {"Exodus", 3}}, e.TopBooks(res))
	assert.Nil(t, e.TopBooks(&models.SearchResult{Exceeded: true}))
}

func TestEngine_TopChapters(t *testing.T) {
	e := NewEngine(nil)
	res, err := e.Search(context.Background(), statsCorpus(), compile("light", models.ModeAll), models.WholeCorpus())
	require.NoError(t, err)
	assert.Equal(t, []ChapterCount{
		{"Genesis", 3, 3},
		{"Exodus", 1, 2},
	}, e.TopChapters(res, 2))
	all := e.TopChapters(res, 0)
	require.Len(t, all, 4)
	assert.Equal(t, ChapterCount{"Genesis", 1, 1}, all[2], "ties keep canonical order")
}

func TestChapterBreakdown(t *testing.T) {
	res := &models.SearchResult{PerChap: map[string]int{"Genesis 10": 1, "Genesis 2": 4, "1 John 1": 2}}
	assert.Equal(t, []ChapterCount{{"Genesis", 2, 4}, {"Genesis", 10, 1}}, ChapterBreakdown(res, "Genesis"))
	assert.Equal(t, []ChapterCount{{"1 John", 1, 2}}, ChapterBreakdown(res, "1 John"))
}

func TestFilterRows(t *testing.T) {
	rows := []models.SearchRow{
		{Book: "Genesis", Chapter: 1, Verse: 1},
		{Book: "Genesis", Chapter: 2, Verse: 1},
		{Book: "Exodus", Chapter: 1, Verse: 1},
	}
	assert.Len(t, FilterRows(rows, nil, nil), 3)
	assert.Len(t, FilterRows(rows, []string{"Genesis"}, nil), 2)
	assert.Len(t, FilterRows(rows, []string{"Genesis"}, []string{"Exodus 1"}), 1)
}
