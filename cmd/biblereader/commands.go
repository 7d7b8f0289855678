package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/dawei7/biblereader/internal/cli"
	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/export"
	"github.com/dawei7/biblereader/internal/matcher"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/reference"
	"github.com/dawei7/biblereader/internal/search"
	"github.com/dawei7/biblereader/internal/storage"
	"github.com/dawei7/biblereader/pkg/utils"
)

const topChapters = 10

// openComponents loads config and initializes components for a one-shot command.
func openComponents(g *Globals, suggestions bool) (*Components, error) {
	cfg, _, err := loadConfig(g.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openComponentsWith(cfg, g.Debug, suggestions)
}

func openComponentsWith(cfg *config.Config, debug, suggestions bool) (*Components, error) {
	logger, err := utils.NewCommandLogger(cfg.Debug || debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return initializeComponents(cfg, logger, suggestions)
}

// commandContext is cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting (e.g. "es werde Licht" vs es werde Licht).
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// QueryFlags are the flags that shape a search.
type QueryFlags struct {
	Mode          string `short:"m" help:"How query words combine: all, any or phrase (default from config)"`
	CaseSensitive bool   `name:"case-sensitive" short:"s" help:"Distinguish upper and lower case"`
	Book          string `short:"b" help:"Search only this book (name or abbreviation)"`
	From          int    `help:"First chapter searched with --book"`
	To            int    `help:"Last chapter searched with --book (0 = end of book)"`
}

// query builds the query for text; the book scope is resolved later against
// the loaded corpus.
func (f *QueryFlags) query(text string, cfg *config.SearchConfig) (models.Query, error) {
	q := models.Query{Text: text, Mode: models.Mode(f.Mode), CaseSensitive: f.CaseSensitive}
	if q.Mode == "" {
		q.Mode = models.Mode(cfg.DefaultMode)
	}
	if f.From < 0 || f.To < 0 {
		return q, errors.New("chapter bounds cannot be negative")
	}
	return q, q.Validate()
}

func (f *QueryFlags) scope(q *models.Query, corpus *models.Corpus) error {
	if f.Book == "" {
		return nil
	}
	idx := reference.BookIndex(f.Book, corpus)
	if idx < 0 {
		return fmt.Errorf("unknown book %q in %s", f.Book, corpus.Version)
	}
	q.Scope = models.BookRange(idx, f.From, f.To)
	return nil
}

// directSearch runs q against the loaded corpus. When nothing matched it
// waits for the spell checker so the answer can carry suggestions.
func directSearch(ctx context.Context, c *Components, q models.Query) (*search.Response, error) {
	result, err := c.Session.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 && !result.Exceeded && len(result.Suggestions) == 0 {
		if ready := c.Session.SuggestionsReady(); ready != nil {
			select {
			case <-ready:
				if result, err = c.Session.Search(ctx, q); err != nil {
					return nil, err
				}
			case <-ctx.Done():
			}
		}
	}
	return c.Engine.Respond(result.Version, q, result, topChapters), nil
}

// SearchCmd searches verses.
type SearchCmd struct {
	QueryFlags
	Query   []string `arg:"" help:"Query; all arguments are joined by spaces"`
	Version string   `short:"V" help:"Version to search instead of the current one"`
	Server  string   `default:"http://localhost:8080" help:"Server URL; empty searches directly. A server that is not running falls back to a direct search."`
	Output  string   `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *SearchCmd) Run(g *Globals) error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	text := buildSearchQuery(c.Query)
	if text == "" {
		return errors.New("query is empty")
	}
	cfg, _, err := loadConfig(g.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	q, err := c.query(text, &cfg.Search)
	if err != nil {
		return err
	}

	// The server searches its own current version and has no book names to
	// resolve, so scoped or versioned searches always run directly.
	if c.Server != "" && c.Book == "" && c.Version == "" {
		resp, err := searchViaHTTP(c.Server, q)
		if err == nil {
			return cli.WriteSearchResults(os.Stdout, resp, format)
		}
		var urlErr *url.Error
		if !errors.As(err, &urlErr) {
			return fmt.Errorf("search failed: %w", err)
		}
	}

	components, err := openComponentsWith(cfg, g.Debug, true)
	if err != nil {
		return err
	}
	defer components.Close()
	ctx, cancel := commandContext()
	defer cancel()

	corpus, err := components.LoadVersion(ctx, c.Version)
	if err != nil {
		return err
	}
	if err := c.scope(&q, corpus); err != nil {
		return err
	}
	resp, err := directSearch(ctx, components, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return cli.WriteSearchResults(os.Stdout, resp, format)
}

func searchViaHTTP(serverURL string, query models.Query) (*search.Response, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response search.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// PassageCmd prints references such as "Joh 3:16; Röm 8:28-30".
type PassageCmd struct {
	Refs    []string `arg:"" help:"References, separated by ';'"`
	Version string   `short:"V" help:"Version to read instead of the current one"`
	Output  string   `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *PassageCmd) Run(g *Globals) error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	refs := buildSearchQuery(c.Refs)
	if len(reference.Split(refs)) == 0 {
		return errors.New("no reference given")
	}
	components, err := openComponents(g, false)
	if err != nil {
		return err
	}
	defer components.Close()
	ctx, cancel := commandContext()
	defer cancel()

	corpus, err := components.LoadVersion(ctx, c.Version)
	if err != nil {
		return err
	}
	return cli.WritePassages(os.Stdout, cli.PassageOutput{
		Version:  corpus.Version,
		Passages: reference.ResolvePassages(refs, corpus),
	}, format)
}

// ReadCmd prints a chapter, or a verse range of it.
type ReadCmd struct {
	Book    string `arg:"" help:"Book name or abbreviation"`
	Chapter int    `arg:"" optional:"" default:"1" help:"Chapter (default 1)"`
	From    int    `default:"1" help:"First verse"`
	To      int    `help:"Last verse (0 = end of chapter)"`
	Version string `short:"V" help:"Version to read instead of the current one"`
	Output  string `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *ReadCmd) Run(g *Globals) error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	components, err := openComponents(g, false)
	if err != nil {
		return err
	}
	defer components.Close()
	ctx, cancel := commandContext()
	defer cancel()

	corpus, err := components.LoadVersion(ctx, c.Version)
	if err != nil {
		return err
	}
	idx := reference.BookIndex(c.Book, corpus)
	if idx < 0 {
		return fmt.Errorf("unknown book %q in %s", c.Book, corpus.Version)
	}
	book := &corpus.Books[idx]
	if c.Chapter < 1 || c.Chapter > book.ChapterCount() {
		return fmt.Errorf("%s has chapters 1 to %d", book.Name, book.ChapterCount())
	}
	return cli.WriteChapter(os.Stdout, cli.ChapterOutput{
		Version:  corpus.Version,
		Book:     book.Name,
		Chapter:  c.Chapter,
		Chapters: book.ChapterCount(),
		Verses:   reference.ReadRange(corpus, idx, c.Chapter, c.From, c.To),
	}, format)
}

// HighlightCmd marks query words in arbitrary text.
type HighlightCmd struct {
	Text          []string `arg:"" help:"Text to mark"`
	Query         string   `short:"q" required:"" help:"Query whose words are marked"`
	Mode          string   `short:"m" enum:"all,any,phrase" default:"all" help:"all, any or phrase"`
	CaseSensitive bool     `name:"case-sensitive" short:"s" help:"Distinguish upper and lower case"`
	Output        string   `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *HighlightCmd) Run() error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	text := strings.Join(c.Text, " ")
	m := matcher.Compile(c.Query, models.Mode(c.Mode), matcher.Options{CaseSensitive: c.CaseSensitive})
	segments := search.Highlight(text, m)
	if format == cli.OutputJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"segments": segments})
	}
	fmt.Println(cli.MarkSegments(segments))
	return nil
}

// VersionsCmd lists the library.
type VersionsCmd struct {
	Output string `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *VersionsCmd) Run(g *Globals) error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	components, err := openComponents(g, false)
	if err != nil {
		return err
	}
	defer components.Close()

	versions, err := components.Library.Versions()
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	var current string
	if components.Storage != nil {
		current, _, _ = components.Storage.GetSetting(context.Background(), storage.SettingVersion)
	}
	return cli.WriteVersions(os.Stdout, versions, current, format)
}

// ExportCmd writes search results to an .xlsx file.
type ExportCmd struct {
	QueryFlags
	Query   []string `arg:"" help:"Query; all arguments are joined by spaces"`
	Version string   `short:"V" help:"Version to search instead of the current one"`
	Out     string   `short:"O" type:"path" help:"Output file (default derived from the query)"`
}

func (c *ExportCmd) Run(g *Globals) error {
	text := buildSearchQuery(c.Query)
	if text == "" {
		return errors.New("query is empty")
	}
	cfg, _, err := loadConfig(g.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	q, err := c.query(text, &cfg.Search)
	if err != nil {
		return err
	}
	components, err := openComponentsWith(cfg, g.Debug, false)
	if err != nil {
		return err
	}
	defer components.Close()
	ctx, cancel := commandContext()
	defer cancel()

	corpus, err := components.LoadVersion(ctx, c.Version)
	if err != nil {
		return err
	}
	if err := c.scope(&q, corpus); err != nil {
		return err
	}
	resp, err := directSearch(ctx, components, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	path := c.Out
	if path == "" {
		path = export.Filename(q)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	report := export.Report{
		Version:  resp.Version,
		Query:    resp.Query,
		Result:   resp.Result,
		Books:    resp.Books,
		Chapters: components.Engine.TopChapters(resp.Result, 0),
	}
	if err := export.WriteXLSX(f, report); err != nil {
		f.Close()
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d verses to %s\n", len(resp.Result.Rows), path)
	return nil
}

// HistoryCmd lists or clears past searches.
type HistoryCmd struct {
	Limit  int    `short:"n" default:"20" help:"Number of entries"`
	Offset int    `help:"Entries to skip"`
	Clear  bool   `help:"Delete the whole history"`
	Output string `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(g.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open settings database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if c.Clear {
		if err := store.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Println("History cleared")
		return nil
	}
	if c.Limit <= 0 || c.Offset < 0 {
		return errors.New("limit must be positive and offset not negative")
	}
	entries, err := store.ListHistory(ctx, c.Offset, c.Limit)
	if err != nil {
		return err
	}
	return cli.WriteHistory(os.Stdout, entries, format)
}

// StatusCmd asks a running server for its status.
type StatusCmd struct {
	Server string `default:"http://localhost:8080" help:"Server URL"`
	Output string `short:"o" enum:"text,json" default:"text" help:"Output format: text or json"`
}

func (c *StatusCmd) Run() error {
	format, err := cli.ParseOutputFormat(c.Output)
	if err != nil {
		return err
	}
	status, err := statusViaHTTP(c.Server)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	writeStatusText(os.Stdout, status)
	return nil
}

func writeStatusText(w io.Writer, status map[string]interface{}) {
	keys := make([]string, 0, len(status))
	for k := range status {
		if k != "attempts" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-16s %v\n", k+":", status[k])
	}
	if attempts, ok := status["attempts"].([]interface{}); ok && len(attempts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# load attempts")
		for _, a := range attempts {
			fmt.Fprintf(w, "  %v\n", a)
		}
	}
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return s, nil
}
