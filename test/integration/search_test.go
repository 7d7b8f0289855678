// Package integration runs the library, search engine and reference resolver
// together against versions on disk.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/library"
	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
	"github.com/dawei7/biblereader/internal/search"
)

const schlachter = `{"books":[
	{"name":"Genesis","abbrev":"gn","chapters":[
		["Im Anfang schuf Gott den Himmel und die Erde.","Und die Erde war wüst und leer.","Und Gott sprach: Es werde Licht! Und es ward Licht."],
		["So wurden vollendet der Himmel und die Erde.",null,"Und Gott segnete den siebten Tag."]
	]},
	{"name":"John","abbrev":"jn","chapters":[
		["Im Anfang war das Wort, und das Wort war bei Gott, und Gott war das Wort."]
	]}
]}`

func TestIntegration_Search(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "de_schlachter.json"), []byte("\uFEFF"+schlachter), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Library: config.LibraryConfig{BiblesDir: dir, FetchTimeout: 5 * time.Second, CacheSize: 2},
		Search:  config.SearchConfig{MaxResults: 100},
	}

	lib, err := library.New(&cfg.Library)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	corpus, err := lib.LoadAny(ctx, []string{"en_kjv", "de_schlachter"})
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Version != "de_schlachter" || len(corpus.Books) != 2 {
		t.Fatalf("loaded %q with %d books", corpus.Version, len(corpus.Books))
	}

	engine := search.NewEngine(&cfg.Search)
	m := matcher.Compile("gott", models.ModeAll, matcher.Options{})
	result, err := engine.Search(ctx, corpus, m, models.WholeCorpus())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 verses, got %d", len(result.Rows))
	}
	if result.TotalMatches != 5 {
		t.Errorf("expected 5 matches, got %d", result.TotalMatches)
	}
	if last := result.Rows[len(result.Rows)-1]; last.Book != "John" || last.Count != 2 {
		t.Errorf("last row = %+v", last)
	}

	// Genesis 1 and John 1 tie; the earlier book wins.
	top := engine.TopChapters(result, 1)
	if len(top) != 1 || top[0].Book != "Genesis" || top[0].Chapter != 1 || top[0].Count != 2 {
		t.Errorf("top chapters = %+v", top)
	}

	verses := reference.Resolve("1Mo 2:1-3", corpus)
	if len(verses) != 2 || verses[1].Label != "3" {
		t.Errorf("expected the missing verse to be skipped, got %+v", verses)
	}

	segs := search.Highlight(result.Rows[0].Text, m)
	var marked string
	for _, s := range segs {
		if s.Matched {
			marked += s.Text
		}
	}
	if marked != "Gott" {
		t.Errorf("highlighted %q", marked)
	}
}
