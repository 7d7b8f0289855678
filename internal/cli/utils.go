// Package cli provides output helpers for the biblereader command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
	"github.com/dawei7/biblereader/internal/search"
	"github.com/dawei7/biblereader/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// Marks wrap matched words in text output.
const (
	MarkOpen  = "["
	MarkClose = "]"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes a search response to w in the given format.
// Text output marks the matched words of every verse.
func WriteSearchResults(w io.Writer, resp *search.Response, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	res := resp.Result
	if res == nil {
		res = models.NewSearchResult()
	}
	q := resp.Query
	mode := q.Mode
	if mode == "" {
		mode = models.ModeAll
	}
	fmt.Fprintf(w, "%q (%s) in %s\n", q.Text, mode, resp.Version)
	if res.Exceeded {
		fmt.Fprintln(w, "Too many results, please refine your search.")
		return nil
	}
	fmt.Fprintf(w, "%d matches in %d verses (%dms)\n", res.TotalMatches, len(res.Rows), res.QueryTime)
	if len(res.Rows) == 0 {
		if len(res.Suggestions) > 0 {
			fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(res.Suggestions, ", "))
		}
		return nil
	}
	fmt.Fprintln(w)
	m := matcher.Compile(q.Text, mode, matcher.Options{CaseSensitive: q.CaseSensitive})
	for _, row := range res.Rows {
		fmt.Fprintf(w, "%s %d:%d  %s\n", row.Book, row.Chapter, row.Verse, Mark(row.Text, m))
	}
	if len(resp.Books) > 0 {
		parts := make([]string, len(resp.Books))
		for i, b := range resp.Books {
			parts[i] = fmt.Sprintf("%s %d", b.Book, b.Count)
		}
		fmt.Fprintf(w, "\nBooks: %s\n", strings.Join(parts, ", "))
	}
	if len(resp.TopChapters) > 0 {
		parts := make([]string, len(resp.TopChapters))
		for i, c := range resp.TopChapters {
			parts[i] = fmt.Sprintf("%s %d (%d)", c.Book, c.Chapter, c.Count)
		}
		fmt.Fprintf(w, "Top chapters: %s\n", strings.Join(parts, ", "))
	}
	return nil
}

// Mark returns text with every match of m wrapped in MarkOpen and MarkClose.
func Mark(text string, m matcher.TextMatcher) string {
	return MarkSegments(search.Highlight(text, m))
}

// MarkSegments joins segments, wrapping matched ones in MarkOpen and MarkClose.
func MarkSegments(segs []models.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Matched {
			b.WriteString(MarkOpen)
			b.WriteString(s.Text)
			b.WriteString(MarkClose)
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// PassageOutput is the JSON shape of a passage lookup.
type PassageOutput struct {
	Version  string              `json:"version"`
	Passages []reference.Passage `json:"passages"`
}

// WritePassages writes resolved passages. A reference that resolved to
// nothing is reported as not found.
func WritePassages(w io.Writer, out PassageOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	for i, p := range out.Passages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if len(p.Verses) == 0 {
			fmt.Fprintf(w, "%s: not found in %s\n", p.Reference, out.Version)
			continue
		}
		fmt.Fprintf(w, "%s (%s)\n", p.Reference, out.Version)
		writeVerses(w, p.Verses)
	}
	return nil
}

// ChapterOutput is the JSON shape of a chapter read.
type ChapterOutput struct {
	Version  string                `json:"version"`
	Book     string                `json:"book"`
	Chapter  int                   `json:"chapter"`
	Chapters int                   `json:"chapters"`
	Verses   []models.PassageVerse `json:"verses"`
}

// WriteChapter writes a range of verses read from one chapter.
func WriteChapter(w io.Writer, out ChapterOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "%s %d (%s, %d chapters)\n", out.Book, out.Chapter, out.Version, out.Chapters)
	writeVerses(w, out.Verses)
	return nil
}

func writeVerses(w io.Writer, verses []models.PassageVerse) {
	for _, v := range verses {
		fmt.Fprintf(w, "%4s  %s\n", v.Label, v.Text)
	}
}

// WriteVersions lists the versions of the library, grouped by language.
// The current version is marked with an asterisk.
func WriteVersions(w io.Writer, versions []models.VersionInfo, current string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"versions": versions, "current": current})
	}
	lang := "\x00"
	for _, v := range versions {
		if v.Language != lang {
			lang = v.Language
			name := lang
			if name == "" {
				name = "unknown"
			}
			fmt.Fprintf(w, "%s:\n", name)
		}
		mark := " "
		if v.Abbreviation == current {
			mark = "*"
		}
		fmt.Fprintf(w, " %s %-16s %s\n", mark, v.Abbreviation, v.Name)
	}
	return nil
}

// WriteHistory writes past searches, newest first.
func WriteHistory(w io.Writer, entries []*models.HistoryEntry, format OutputFormat) error {
	if format == OutputJSON {
		if entries == nil {
			entries = []*models.HistoryEntry{}
		}
		return writeJSON(w, map[string]interface{}{"history": entries})
	}
	for _, e := range entries {
		matches := fmt.Sprintf("%d", e.Matches)
		if e.Exceeded {
			matches = "too many"
		}
		fmt.Fprintf(w, "%s  %-7s %-14s %-9s %s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Mode, e.Version, matches, utils.Truncate(e.Query, 60))
	}
	return nil
}
