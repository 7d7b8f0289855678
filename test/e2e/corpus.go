// Package e2e builds a synthetic bible version with planted signature verses
// and the queries that must find exactly those verses.
package e2e

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
)

// Corpus shape. Books are the first CorpusBooks canonical books, so
// references and result order work without a book table.
const (
	CorpusBooks      = 12
	ChaptersPerBook  = 6
	VersesPerChapter = 20
	CorpusVersion    = "de_e2e"
)

// FillerWord occurs exactly once in every filler verse and in no signature verse.
const FillerWord = "Herr"

// EmptySlot is a verse left empty in the generated corpus.
var EmptySlot = VerseRef{Book: "Genesis", Chapter: 2, Verse: VersesPerChapter}

// VerseRef names one verse.
type VerseRef struct {
	Book    string
	Chapter int
	Verse   int
}

func (r VerseRef) String() string {
	return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
}

// QueryTestCase is a query and the exact verses it must return, in result order.
type QueryTestCase struct {
	Query         string
	Mode          models.Mode
	CaseSensitive bool
	Expected      []VerseRef
	Description   string
}

// Corpus is the generated version plus its query test cases.
type Corpus struct {
	Version      string
	Books        []models.Book
	Signatures   map[string]VerseRef
	TestCases    []QueryTestCase
	TotalBooks   int
	TotalVerses  int
	FillerVerses int
	TotalQueries int
}

// signature is a verse planted once in the corpus. Phrase occurs in Text.
type signature struct {
	phrase string
	text   string
}

var signatures = []signature{
	{"Morgenstern leuchtet", "Und siehe, der Morgenstern leuchtet über den Hügeln."},
	{"Zedernholz vom Libanon", "Sie brachten Zedernholz vom Libanon für den Tempel."},
	{"Ölbaum grünt", "Der Ölbaum grünt im Garten, und seine Zweige sind voll."},
	{"Straße nach Ägypten", "Sie zogen auf der Straße nach Ägypten bis an den Bach."},
	{"silberne Schale", "Er nahm eine silberne Schale und füllte sie mit Öl."},
	{"Brunnen des Lebendigen", "Isaak wohnte bei dem Brunnen des Lebendigen im Süden."},
	{"Stimme des Hirten", "Die Schafe hören die Stimme des Hirten und folgen ihm."},
	{"Feigenbaum verdorrte", "Und sogleich verdorrte der Feigenbaum, als sie vorübergingen."},
	{"Harfe und Zimbel", "Lobt ihn mit Harfe und Zimbel und mit Reigen."},
	{"Tau des Hermon", "Wie der Tau des Hermon, der herabfällt auf die Berge."},
	{"Senfkorn wächst", "Das Senfkorn wächst und wird größer als alle Kräuter."},
	{"Purpur und Scharlach", "Die Vorhänge waren aus Purpur und Scharlach gewirkt."},
	{"Leuchter aus Gold", "Mache einen Leuchter aus Gold, getrieben aus einem Stück."},
	{"Wagen aus Feuer", "Da kam ein Wagen aus Feuer mit Rossen aus Feuer."},
	{"Pforte des Lammes", "Sie traten ein durch die Pforte des Lammes am Morgen."},
	{"ἐν ἀρχῇ ἦν", "ἐν ἀρχῇ ἦν ὁ λόγος, καὶ ὁ λόγος ἦν πρὸς τὸν θεόν."},
	{"Halleluja Amen", "Und die Ältesten fielen nieder und sprachen: Halleluja Amen!"},
	{"Netze am Ufer", "Die Fischer wuschen ihre Netze am Ufer des Sees."},
}

// fillers all contain FillerWord exactly once and share no word with a signature.
var fillers = []string{
	"Und der Herr redete zu dem Volk.",
	"Sie gingen hinaus in das Land, wie der Herr geboten hatte.",
	"Das Wasser stand hoch, und der Herr sah es.",
	"Am dritten Tag kam der Herr zu dem Haus.",
	"So redete der Herr mit ihnen bis zum Abend.",
}

// BuildCorpus generates the corpus and its query test cases.
func BuildCorpus() *Corpus {
	c := &Corpus{
		Version:    CorpusVersion,
		Books:      buildBooks(),
		Signatures: make(map[string]VerseRef, len(signatures)),
	}
	for i, s := range signatures {
		ref := signatureRef(i)
		book := &c.Books[reference.CanonicalIndex(ref.Book)]
		book.Chapters[ref.Chapter-1][ref.Verse-1] = s.text
		c.Signatures[s.phrase] = ref
	}
	c.Books[0].Chapters[EmptySlot.Chapter-1][EmptySlot.Verse-1] = ""

	for _, b := range c.Books {
		for _, ch := range b.Chapters {
			for _, v := range ch {
				c.TotalVerses++
				if strings.Contains(v, " "+FillerWord+" ") {
					c.FillerVerses++
				}
			}
		}
	}
	c.TotalBooks = len(c.Books)
	c.TestCases = buildQueryTestCases(c.Signatures)
	c.TotalQueries = len(c.TestCases)
	return c
}

func buildBooks() []models.Book {
	books := make([]models.Book, CorpusBooks)
	for b := range books {
		name := reference.CanonicalBooks[b]
		chapters := make([]models.Chapter, ChaptersPerBook)
		for c := range chapters {
			verses := make(models.Chapter, VersesPerChapter)
			for v := range verses {
				verses[v] = fillers[(b+c+v)%len(fillers)]
			}
			chapters[c] = verses
		}
		books[b] = models.Book{Name: name, Abbrev: strings.ToLower(reference.Abbrev(name)), Chapters: chapters}
	}
	return books
}

// signatureRef spreads signatures over books first, then chapters. Positions
// stay distinct for fewer than CorpusBooks*ChaptersPerBook signatures.
func signatureRef(i int) VerseRef {
	return VerseRef{
		Book:    reference.CanonicalBooks[i%CorpusBooks],
		Chapter: (i/CorpusBooks)%ChaptersPerBook + 1,
		Verse:   (i*7)%(VersesPerChapter-1) + 1,
	}
}

func buildQueryTestCases(sigs map[string]VerseRef) []QueryTestCase {
	phrases := make([]string, 0, len(sigs))
	for p := range sigs {
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)

	var cases []QueryTestCase
	for _, p := range phrases {
		ref := sigs[p]
		cases = append(cases,
			QueryTestCase{
				Query:       p,
				Mode:        models.ModePhrase,
				Expected:    []VerseRef{ref},
				Description: fmt.Sprintf("phrase %q finds %s", p, ref),
			},
			QueryTestCase{
				Query:       reverseWords(p),
				Mode:        models.ModeAll,
				Expected:    []VerseRef{ref},
				Description: fmt.Sprintf("all words of %q find %s", p, ref),
			},
		)
	}

	morgen := sigs["Morgenstern leuchtet"]
	zeder := sigs["Zedernholz vom Libanon"]
	netze := sigs["Netze am Ufer"]
	cases = append(cases,
		QueryTestCase{
			Query:       "Netze Morgenstern Zedernholz",
			Mode:        models.ModeAny,
			Expected:    sortRefs([]VerseRef{netze, morgen, zeder}),
			Description: "any mode returns every signature in canonical order",
		},
		QueryTestCase{
			Query:       "morgenstern",
			Mode:        models.ModeAll,
			Expected:    []VerseRef{morgen},
			Description: "case-insensitive match",
		},
		QueryTestCase{
			Query:         "morgenstern",
			Mode:          models.ModeAll,
			CaseSensitive: true,
			Description:   "case-sensitive lowercase query misses",
		},
		QueryTestCase{
			Query:       "Morgenst",
			Mode:        models.ModeAll,
			Description: "prefix of a word is not a whole-word match",
		},
		QueryTestCase{
			Query:       "leuchtet Morgenstern",
			Mode:        models.ModePhrase,
			Description: "phrase words out of order miss",
		},
		QueryTestCase{
			Query:       "λόγος",
			Mode:        models.ModeAll,
			Expected:    []VerseRef{sigs["ἐν ἀρχῇ ἦν"]},
			Description: "Greek word with polytonic neighbours",
		},
	)
	return cases
}

func reverseWords(s string) string {
	words := strings.Fields(s)
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return strings.Join(words, " ")
}

// sortRefs orders refs the way search results are ordered.
func sortRefs(refs []VerseRef) []VerseRef {
	sort.Slice(refs, func(i, j int) bool {
		bi, bj := reference.CanonicalIndex(refs[i].Book), reference.CanonicalIndex(refs[j].Book)
		if bi != bj {
			return bi < bj
		}
		if refs[i].Chapter != refs[j].Chapter {
			return refs[i].Chapter < refs[j].Chapter
		}
		return refs[i].Verse < refs[j].Verse
	})
	return refs
}

// Refs returns the verse of every row, in row order.
func Refs(rows []models.SearchRow) []VerseRef {
	out := make([]VerseRef, len(rows))
	for i, r := range rows {
		out[i] = VerseRef{Book: r.Book, Chapter: r.Chapter, Verse: r.Verse}
	}
	return out
}

// ToCorpus returns the generated books as a loaded version.
func (c *Corpus) ToCorpus() *models.Corpus {
	return &models.Corpus{Version: c.Version, Books: c.Books}
}
