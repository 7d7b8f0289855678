package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/unicode/norm"

	"github.com/dawei7/biblereader/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// rawBook is a book as found in version files. Verses may be null.
type rawBook struct {
	Name     string          `json:"name"`
	Abbrev   string          `json:"abbrev"`
	Chapters json.RawMessage `json:"chapters"`
}

// DecodeJSON parses version data: either an array of books or an object
// wrapping that array under "books", "bible" or "data". A leading UTF-8 BOM
// is ignored. Every entry must carry a chapters array.
func DecodeJSON(data []byte) ([]models.Book, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", models.ErrInvalidCorpus)
	}

	var raw []rawBook
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidCorpus, err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidCorpus, err)
		}
		var inner json.RawMessage
		for _, key := range []string{"books", "bible", "data"} {
			if v, ok := wrapper[key]; ok {
				inner = v
				break
			}
		}
		if inner == nil {
			return nil, fmt.Errorf("%w: no books, bible or data array", models.ErrInvalidCorpus)
		}
		if err := json.Unmarshal(inner, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidCorpus, err)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected top-level value", models.ErrInvalidCorpus)
	}

	books := make([]models.Book, 0, len(raw))
	for i, rb := range raw {
		book, err := convertBook(rb)
		if err != nil {
			return nil, fmt.Errorf("book %d: %w", i, err)
		}
		books = append(books, book)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: no books", models.ErrInvalidCorpus)
	}
	return books, nil
}

// DecodeBook parses a single book file of a split version.
func DecodeBook(data []byte) (models.Book, error) {
	var rb rawBook
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &rb); err != nil {
		return models.Book{}, fmt.Errorf("%w: %v", models.ErrInvalidCorpus, err)
	}
	return convertBook(rb)
}

func convertBook(rb rawBook) (models.Book, error) {
	ch := bytes.TrimSpace(rb.Chapters)
	if len(ch) == 0 || ch[0] != '[' {
		return models.Book{}, fmt.Errorf("%w: missing chapters array", models.ErrInvalidCorpus)
	}
	var chapters [][]*string
	if err := json.Unmarshal(ch, &chapters); err != nil {
		return models.Book{}, fmt.Errorf("%w: %v", models.ErrInvalidCorpus, err)
	}
	book := models.Book{
		Name:     norm.NFC.String(strings.TrimSpace(rb.Name)),
		Abbrev:   strings.TrimSpace(rb.Abbrev),
		Chapters: make([]models.Chapter, len(chapters)),
	}
	for c, verses := range chapters {
		out := make(models.Chapter, len(verses))
		for v, text := range verses {
			if text != nil {
				out[v] = norm.NFC.String(*text)
			}
		}
		book.Chapters[c] = out
	}
	normalizeBook(&book)
	return book, nil
}

// normalizeBook fills in a missing name from the abbreviation.
func normalizeBook(b *models.Book) {
	if b.Name != "" {
		return
	}
	if b.Abbrev != "" {
		b.Name = strings.ToUpper(b.Abbrev)
		return
	}
	b.Name = "Unknown"
}

// DecodeXZ decompresses xz data and decodes the JSON inside.
func DecodeXZ(data []byte) ([]models.Book, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return DecodeJSON(plain)
}

var (
	bookExpr    = xpath.MustCompile("//BIBLEBOOK")
	chapterExpr = xpath.MustCompile("CHAPTER")
	verseExpr   = xpath.MustCompile("VERS")
)

// DecodeZefania parses a Zefania XML bible:
//
//	<XMLBIBLE><BIBLEBOOK bname=".." bsname=".."><CHAPTER cnumber="1"><VERS vnumber="1">..</VERS>
//
// Chapters and verses are placed by their number; gaps become empty slots.
func DecodeZefania(data []byte) ([]models.Book, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing XML: %v", models.ErrInvalidCorpus, err)
	}

	var books []models.Book
	for _, bn := range xmlquery.QuerySelectorAll(doc, bookExpr) {
		book := models.Book{
			Name:   norm.NFC.String(strings.TrimSpace(bn.SelectAttr("bname"))),
			Abbrev: strings.TrimSpace(bn.SelectAttr("bsname")),
		}
		for _, cn := range xmlquery.QuerySelectorAll(bn, chapterExpr) {
			c := numberAttr(cn, "cnumber", len(book.Chapters)+1)
			for len(book.Chapters) < c {
				book.Chapters = append(book.Chapters, models.Chapter{})
			}
			chapter := book.Chapters[c-1]
			for _, vn := range xmlquery.QuerySelectorAll(cn, verseExpr) {
				v := numberAttr(vn, "vnumber", len(chapter)+1)
				for len(chapter) < v {
					chapter = append(chapter, "")
				}
				chapter[v-1] = norm.NFC.String(strings.Join(strings.Fields(vn.InnerText()), " "))
			}
			book.Chapters[c-1] = chapter
		}
		normalizeBook(&book)
		books = append(books, book)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: no BIBLEBOOK elements", models.ErrInvalidCorpus)
	}
	return books, nil
}

func numberAttr(n *xmlquery.Node, name string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(n.SelectAttr(name)))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
