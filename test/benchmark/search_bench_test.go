package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/library"
	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
	"github.com/dawei7/biblereader/internal/search"
)

var verseTexts = []string{
	"Und Gott sprach: Es werde Licht! Und es ward Licht.",
	"Und der Herr redete zu Mose und sprach.",
	"Selig sind, die da geistlich arm sind; denn das Himmelreich ist ihr.",
	"Denn also hat Gott die Welt geliebt, dass er seinen eingeborenen Sohn gab.",
	"Und sie zogen aus dem Land Ägypten in die Wüste.",
}

// benchCorpus builds a version about the size of a full bible.
func benchCorpus() *models.Corpus {
	c := &models.Corpus{Version: "bench"}
	for b, name := range reference.CanonicalBooks {
		book := models.Book{Name: name}
		for ch := 0; ch < 18; ch++ {
			verses := make(models.Chapter, 26)
			for v := range verses {
				verses[v] = fmt.Sprintf("%s (%d)", verseTexts[(b+ch+v)%len(verseTexts)], v+1)
			}
			book.Chapters = append(book.Chapters, verses)
		}
		c.Books = append(c.Books, book)
	}
	return c
}

func benchmarkSearch(b *testing.B, query string, mode models.Mode) {
	corpus := benchCorpus()
	engine := search.NewEngine(&config.SearchConfig{MaxResults: config.DefaultMaxResults})
	m := matcher.Compile(query, mode, matcher.Options{})
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Search(ctx, corpus, m, models.WholeCorpus())
	}
}

func BenchmarkSearch_Word(b *testing.B) {
	benchmarkSearch(b, "Licht", models.ModeAll)
}

func BenchmarkSearch_AllWords(b *testing.B) {
	benchmarkSearch(b, "Gott Welt Sohn", models.ModeAll)
}

func BenchmarkSearch_Phrase(b *testing.B) {
	benchmarkSearch(b, "aus dem Land Ägypten", models.ModePhrase)
}

func BenchmarkSearch_Exceeded(b *testing.B) {
	benchmarkSearch(b, "und", models.ModeAny)
}

func BenchmarkHighlight(b *testing.B) {
	m := matcher.Compile("Licht Gott", models.ModeAny, matcher.Options{})
	text := verseTexts[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Highlight(text, m)
	}
}

func BenchmarkMatcherCache_Compile(b *testing.B) {
	cache, err := matcher.NewCache(64)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Compile("Gott Welt Sohn", models.ModeAll, matcher.Options{})
	}
}

func BenchmarkDecodeJSON(b *testing.B) {
	data := []byte(`[{"name":"Genesis","abbrev":"gn","chapters":[["Im Anfang schuf Gott den Himmel und die Erde.",null,"Und Gott sprach."]]}]`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = library.DecodeJSON(data)
	}
}

func BenchmarkResolve(b *testing.B) {
	corpus := benchCorpus()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reference.Resolve("Joh 3:16; 1Mo 1:1-5; Ps 23", corpus)
	}
}
