// Package export writes search results to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/search"
)

const (
	SheetResults  = "Results"
	SheetBooks    = "Books"
	SheetChapters = "Chapters"
)

// Report is everything written to one workbook.
type Report struct {
	Version  string
	Query    models.Query
	Result   *models.SearchResult
	Books    []search.BookCount
	Chapters []search.ChapterCount
}

// WriteXLSX writes r as a workbook with one sheet each for matching verses,
// per-book counts and per-chapter counts. An exceeded result only gets a
// notice row, since it carries no rows or counts.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetBooks, SheetChapters} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	title := fmt.Sprintf("%q (%s", r.Query.Text, r.Query.Mode)
	if r.Query.CaseSensitive {
		title += ", case-sensitive"
	}
	title += ")"
	if r.Version != "" {
		title += " in " + r.Version
	}

	results := [][]interface{}{{"Search", title}}
	if r.Result == nil || r.Result.Exceeded {
		results = append(results, []interface{}{"Notice", "Too many matches; refine the query."})
	} else {
		results = append(results,
			[]interface{}{"Matches", r.Result.TotalMatches},
			[]interface{}{},
			[]interface{}{"Book", "Chapter", "Verse", "Count", "Text"},
		)
		for _, row := range r.Result.Rows {
			results = append(results, []interface{}{row.Book, row.Chapter, row.Verse, row.Count, row.Text})
		}
	}
	if err := writeRows(f, SheetResults, results); err != nil {
		return err
	}
	if r.Result != nil && !r.Result.Exceeded {
		if err := f.SetRowStyle(SheetResults, 4, 4, bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}
	if err := f.SetColWidth(SheetResults, "A", "A", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetResults, "E", "E", 100); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	books := [][]interface{}{{"Book", "Count"}}
	for _, b := range r.Books {
		books = append(books, []interface{}{b.Book, b.Count})
	}
	if err := writeRows(f, SheetBooks, books); err != nil {
		return err
	}

	chapters := [][]interface{}{{"Book", "Chapter", "Count"}}
	for _, c := range r.Chapters {
		chapters = append(chapters, []interface{}{c.Book, c.Chapter, c.Count})
	}
	if err := writeRows(f, SheetChapters, chapters); err != nil {
		return err
	}
	for _, sheet := range []string{SheetBooks, SheetChapters} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// Filename returns a download file name for a query, e.g. "biblereader-gott-licht.xlsx".
func Filename(q models.Query) string {
	var b strings.Builder
	for _, r := range strings.ToLower(q.Text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
		if b.Len() >= 40 {
			break
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "biblereader.xlsx"
	}
	return "biblereader-" + name + ".xlsx"
}
