package e2e

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/dawei7/biblereader/internal/models"
)

// Format is an on-disk version layout the library can read.
type Format string

const (
	FormatJSON    Format = "json"
	FormatXZ      Format = "json.xz"
	FormatZefania Format = "zefania"
	FormatSplit   Format = "split"
)

const (
	indexFile = "index.json"
	metaFile  = "meta.json"
)

// Formats lists every layout WriteVersion produces.
var Formats = []Format{FormatJSON, FormatXZ, FormatZefania, FormatSplit}

// WriteVersion writes books to dir as version abbr in the given layout.
// Empty verse slots are written as null (JSON) or left out (Zefania).
func WriteVersion(dir, abbr string, format Format, books []models.Book) error {
	switch format {
	case FormatJSON:
		data, err := encodeBooks(books)
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(dir, abbr+".json"), data)
	case FormatXZ:
		data, err := encodeBooks(books)
		if err != nil {
			return err
		}
		packed, err := compressXZ(data)
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(dir, abbr+".json.xz"), packed)
	case FormatZefania:
		data, err := encodeZefania(books)
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(dir, abbr+".xml"), data)
	case FormatSplit:
		return writeSplit(filepath.Join(dir, abbr), abbr, books)
	}
	return fmt.Errorf("unknown format %q", format)
}

// IndexEntry is one version listed in index.json.
type IndexEntry struct {
	Language     string
	Name         string
	Abbreviation string
}

// WriteIndex writes index.json, grouping entries by language in first-seen order.
func WriteIndex(dir string, entries []IndexEntry) error {
	type version struct {
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	}
	type group struct {
		Language string    `json:"language"`
		Versions []version `json:"versions"`
	}
	var groups []group
	pos := make(map[string]int)
	for _, e := range entries {
		i, ok := pos[e.Language]
		if !ok {
			i = len(groups)
			pos[e.Language] = i
			groups = append(groups, group{Language: e.Language})
		}
		groups[i].Versions = append(groups[i].Versions, version{Name: e.Name, Abbreviation: e.Abbreviation})
	}
	data, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, indexFile), data)
}

type jsonBook struct {
	Name     string      `json:"name"`
	Abbrev   string      `json:"abbrev"`
	Chapters [][]*string `json:"chapters"`
}

func toJSONBook(b models.Book) jsonBook {
	jb := jsonBook{Name: b.Name, Abbrev: b.Abbrev, Chapters: make([][]*string, len(b.Chapters))}
	for c, ch := range b.Chapters {
		verses := make([]*string, len(ch))
		for v := range ch {
			if ch[v] != "" {
				verses[v] = &ch[v]
			}
		}
		jb.Chapters[c] = verses
	}
	return jb
}

func encodeBooks(books []models.Book) ([]byte, error) {
	out := make([]jsonBook, len(books))
	for i, b := range books {
		out[i] = toJSONBook(b)
	}
	return json.Marshal(out)
}

func compressXZ(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type zefBible struct {
	XMLName xml.Name  `xml:"XMLBIBLE"`
	Books   []zefBook `xml:"BIBLEBOOK"`
}

type zefBook struct {
	Number   int          `xml:"bnumber,attr"`
	Name     string       `xml:"bname,attr"`
	Short    string       `xml:"bsname,attr"`
	Chapters []zefChapter `xml:"CHAPTER"`
}

type zefChapter struct {
	Number int        `xml:"cnumber,attr"`
	Verses []zefVerse `xml:"VERS"`
}

type zefVerse struct {
	Number int    `xml:"vnumber,attr"`
	Text   string `xml:",chardata"`
}

func encodeZefania(books []models.Book) ([]byte, error) {
	bible := zefBible{Books: make([]zefBook, len(books))}
	for i, b := range books {
		zb := zefBook{Number: i + 1, Name: b.Name, Short: b.Abbrev}
		for c, ch := range b.Chapters {
			zc := zefChapter{Number: c + 1}
			for v, text := range ch {
				if text == "" {
					continue
				}
				zc.Verses = append(zc.Verses, zefVerse{Number: v + 1, Text: text})
			}
			zb.Chapters = append(zb.Chapters, zc)
		}
		bible.Books[i] = zb
	}
	data, err := xml.MarshalIndent(bible, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

func writeSplit(dir, abbr string, books []models.Book) error {
	type metaBook struct {
		Name   string `json:"name"`
		Abbrev string `json:"abbrev"`
		File   string `json:"file"`
	}
	meta := struct {
		Abbreviation string     `json:"abbreviation"`
		Books        []metaBook `json:"books"`
	}{Abbreviation: abbr}

	for i, b := range books {
		file := fmt.Sprintf("%02d.json", i+1)
		data, err := json.Marshal(toJSONBook(b))
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, file), data); err != nil {
			return err
		}
		meta.Books = append(meta.Books, metaBook{Name: b.Name, Abbrev: b.Abbrev, File: file})
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, metaFile), data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
