package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/search"
)

func readBack(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteXLSX(t *testing.T) {
	result := models.NewSearchResult()
	result.Rows = []models.SearchRow{
		models.NewSearchRow(0, "Genesis", 1, 1, "Im Anfang schuf Gott den Himmel und die Erde.", 1),
		models.NewSearchRow(0, "Genesis", 1, 3, "Und Gott sprach: Es werde Licht!", 1),
	}
	result.TotalMatches = 2
	report := Report{
		Version:  "de_schlachter",
		Query:    models.Query{Text: "Gott", Mode: models.ModeAll},
		Result:   result,
		Books:    []search.BookCount{{Book: "Genesis", Count: 2}},
		Chapters: []search.ChapterCount{{Book: "Genesis", Chapter: 1, Count: 2}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, report))
	f := readBack(t, buf.Bytes())

	assert.Equal(t, []string{SheetResults, SheetBooks, SheetChapters}, f.GetSheetList())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, `"Gott" (all) in de_schlachter`, rows[0][1])
	assert.Equal(t, []string{"Matches", "2"}, rows[1])
	assert.Equal(t, []string{"Book", "Chapter", "Verse", "Count", "Text"}, rows[3])
	assert.Equal(t, []string{"Genesis", "1", "3", "1", "Und Gott sprach: Es werde Licht!"}, rows[5])

	books, err := f.GetRows(SheetBooks)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Book", "Count"}, {"Genesis", "2"}}, books)

	chapters, err := f.GetRows(SheetChapters)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Book", "Chapter", "Count"}, {"Genesis", "1", "2"}}, chapters)
}

func TestWriteXLSX_Exceeded(t *testing.T) {
	result := models.NewSearchResult()
	result.Exceeded = true

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Report{Query: models.Query{Text: "und", Mode: models.ModeAny, CaseSensitive: true}, Result: result}))
	f := readBack(t, buf.Bytes())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, `"und" (any, case-sensitive)`, rows[0][1])
	assert.Equal(t, "Notice", rows[1][0])

	books, err := f.GetRows(SheetBooks)
	require.NoError(t, err)
	assert.Len(t, books, 1, "only the header row")
}

func TestFilename(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Gott Licht", "biblereader-gott-licht.xlsx"},
		{"  ", "biblereader.xlsx"},
		{"Jesus!", "biblereader-jesus.xlsx"},
		{"Höhe und Tiefe", "biblereader-h-he-und-tiefe.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(models.Query{Text: tt.text}), tt.text)
	}
}
