package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dawei7/biblereader/internal/models"
)

const (
	indexFile = "index.json"
	metaFile  = "meta.json"
)

// indexGroup is one language group of index.json.
type indexGroup struct {
	Language string `json:"language"`
	Versions []struct {
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"versions"`
}

// splitMeta is the meta.json of a version split into one file per book.
type splitMeta struct {
	Abbreviation string `json:"abbreviation"`
	Books        []struct {
		Name   string `json:"name"`
		Abbrev string `json:"abbrev"`
		File   string `json:"file"`
	} `json:"books"`
}

// Dir reads bible versions from a directory. A version abbr is looked up as
// abbr.json, abbr.json.xz, abbr.xml and finally abbr/meta.json, in that order.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// Index lists the versions in index.json. When there is no index file the
// directory itself is scanned and every version is listed under its abbreviation.
func (d *Dir) Index() ([]models.VersionInfo, error) {
	data, err := os.ReadFile(filepath.Join(d.root, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return d.scan()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var groups []indexGroup
	if err := json.Unmarshal(stripBOM(data), &groups); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	var out []models.VersionInfo
	for _, g := range groups {
		for _, v := range g.Versions {
			if v.Abbreviation == "" {
				continue
			}
			name := v.Name
			if name == "" {
				name = v.Abbreviation
			}
			out = append(out, models.VersionInfo{Name: name, Abbreviation: v.Abbreviation, Language: g.Language})
		}
	}
	return out, nil
}

func (d *Dir) scan() ([]models.VersionInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list bibles directory: %w", err)
	}
	seen := make(map[string]bool)
	var out []models.VersionInfo
	add := func(abbr string) {
		if abbr == "" || seen[abbr] {
			return
		}
		seen[abbr] = true
		out = append(out, models.VersionInfo{Name: abbr, Abbreviation: abbr})
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			if _, err := os.Stat(filepath.Join(d.root, name, metaFile)); err == nil {
				add(name)
			}
		case name == indexFile || strings.HasPrefix(name, "."):
		case strings.HasSuffix(name, ".json.xz"):
			add(strings.TrimSuffix(name, ".json.xz"))
		case strings.HasSuffix(name, ".json"):
			add(strings.TrimSuffix(name, ".json"))
		case strings.HasSuffix(name, ".xml"):
			add(strings.TrimSuffix(name, ".xml"))
		}
	}
	return out, nil
}

// Read loads version abbr. The returned fingerprint covers every file read.
func (d *Dir) Read(ctx context.Context, abbr string) (*models.Corpus, error) {
	if !validAbbr(abbr) {
		return nil, fmt.Errorf("%w: %q", models.ErrVersionNotFound, abbr)
	}

	formats := []struct {
		ext    string
		decode func([]byte) ([]models.Book, error)
	}{
		{".json", DecodeJSON},
		{".json.xz", DecodeXZ},
		{".xml", DecodeZefania},
	}
	for _, f := range formats {
		data, err := os.ReadFile(filepath.Join(d.root, abbr+f.ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s%s: %w", abbr, f.ext, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		books, err := f.decode(data)
		if err != nil {
			return nil, err
		}
		return &models.Corpus{Version: abbr, Books: books, Fingerprint: Fingerprint(data)}, nil
	}
	return d.readSplit(ctx, abbr)
}

// readSplit loads a version stored as abbr/meta.json plus one file per book.
// Book files are read concurrently.
func (d *Dir) readSplit(ctx context.Context, abbr string) (*models.Corpus, error) {
	dir := filepath.Join(d.root, abbr)
	metaData, err := os.ReadFile(filepath.Join(dir, metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", models.ErrVersionNotFound, abbr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", abbr, metaFile, err)
	}
	var meta splitMeta
	if err := json.Unmarshal(stripBOM(metaData), &meta); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", models.ErrInvalidCorpus, abbr, metaFile, err)
	}
	if len(meta.Books) == 0 {
		return nil, fmt.Errorf("%w: %s/%s lists no books", models.ErrInvalidCorpus, abbr, metaFile)
	}

	books := make([]models.Book, len(meta.Books))
	raw := make([][]byte, len(meta.Books))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, entry := range meta.Books {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if entry.File == "" || entry.File != filepath.Base(entry.File) {
				return fmt.Errorf("%w: book %d has no usable file name", models.ErrInvalidCorpus, i)
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.File))
			if err != nil {
				return fmt.Errorf("failed to read %s/%s: %w", abbr, entry.File, err)
			}
			book, err := DecodeBook(data)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", abbr, entry.File, err)
			}
			if book.Name == "" || book.Name == "Unknown" {
				if entry.Name != "" {
					book.Name = entry.Name
				}
			}
			if book.Abbrev == "" {
				book.Abbrev = entry.Abbrev
			}
			books[i] = book
			raw[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &models.Corpus{
		Version:     abbr,
		Books:       books,
		Fingerprint: Fingerprint(append([][]byte{metaData}, raw...)...),
	}, nil
}

// validAbbr rejects abbreviations that would escape the bibles directory.
func validAbbr(abbr string) bool {
	if abbr == "" || abbr == "." || abbr == ".." {
		return false
	}
	return !strings.ContainsAny(abbr, `/\`)
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
