package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/library"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/search"
	"github.com/dawei7/biblereader/internal/storage"
)

const genesisJSON = `[
	{"name":"Genesis","abbrev":"gn","chapters":[
		["Im Anfang schuf Gott die Himmel und die Erde.","Und die Erde war wüst und leer.","Und Gott sprach: Es werde Licht! Und es ward Licht."],
		["So wurden vollendet der Himmel und die Erde."]
	]},
	{"name":"Exodus","abbrev":"ex","chapters":[["Dies sind die Namen der Söhne Israels."]]},
	{"name":"John","abbrev":"jo","chapters":[["Im Anfang war das Wort, und das Wort war bei Gott."]]}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	bibles := filepath.Join(dir, "bibles")
	if err := os.MkdirAll(bibles, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bibles, "de_test.json"), []byte(genesisJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Library.BiblesDir = bibles
	cfg.Library.Preferred = []string{"missing", "de_test"}
	cfg.Library.FetchTimeout = time.Second
	cfg.Storage.DatabasePath = filepath.Join(dir, "biblereader.db")
	return cfg
}

func testComponents(t *testing.T, cfg *config.Config, suggestions bool) *Components {
	t.Helper()
	c, err := initializeComponents(cfg, zap.NewNop(), suggestions)
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"Gott"}, "Gott"},
		{"multiple words", []string{"es", "werde", "Licht"}, "es werde Licht"},
		{"single quoted phrase", []string{"es werde Licht"}, "es werde Licht"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"de_test", "", "en_kjv", "de_test"})
	want := []string{"de_test", "en_kjv"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedupe() = %v, want %v", got, want)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
library:
  bibles_dir: "./bibles"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_defaultsWithoutFile(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists")
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty for defaults", resolved)
	}
	if cfg.Search.MaxResults != config.DefaultMaxResults || cfg.Server.Port != 8080 {
		t.Errorf("defaults not applied: %+v %+v", cfg.Search, cfg.Server)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("an explicit missing config should fail")
	}
}

func TestCLI_Parse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		check   func(t *testing.T)
	}{
		{"serve", []string{"serve", "--port", "9000"}, "serve", func(t *testing.T) {
			if CLI.Serve.Port != 9000 {
				t.Errorf("serve port = %d, want 9000", CLI.Serve.Port)
			}
		}},
		{"search", []string{"search", "-m", "phrase", "-b", "Gen", "es", "werde", "Licht"}, "search", func(t *testing.T) {
			if CLI.Search.Mode != "phrase" || CLI.Search.Book != "Gen" || buildSearchQuery(CLI.Search.Query) != "es werde Licht" {
				t.Errorf("search flags not parsed: %+v", CLI.Search)
			}
		}},
		{"passage", []string{"passage", "Joh 3:16;", "Gen 1"}, "passage", func(t *testing.T) {
			if buildSearchQuery(CLI.Passage.Refs) != "Joh 3:16; Gen 1" {
				t.Errorf("refs = %v", CLI.Passage.Refs)
			}
		}},
		{"read", []string{"read", "Genesis", "2", "--from", "3"}, "read", func(t *testing.T) {
			if CLI.Read.Book != "Genesis" || CLI.Read.Chapter != 2 || CLI.Read.From != 3 {
				t.Errorf("read args not parsed: %+v", CLI.Read)
			}
		}},
		{"highlight", []string{"highlight", "-q", "Licht", "Es", "werde", "Licht"}, "highlight", func(t *testing.T) {
			if CLI.Highlight.Query != "Licht" || CLI.Highlight.Mode != "all" {
				t.Errorf("highlight flags not parsed: %+v", CLI.Highlight)
			}
		}},
		{"version", []string{"version"}, "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser, err := kong.New(&CLI, kong.Vars{"config_path": defaultConfigPath}, kong.Exit(func(int) {}))
			if err != nil {
				t.Fatalf("kong.New: %v", err)
			}
			ctx, err := parser.Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse(%v): %v", tt.args, err)
			}
			if got := strings.Fields(ctx.Command())[0]; got != tt.command {
				t.Errorf("command = %q, want %q", got, tt.command)
			}
			if CLI.Config != defaultConfigPath {
				t.Errorf("config = %q, want the default path", CLI.Config)
			}
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func TestQueryFlags(t *testing.T) {
	searchCfg := &config.SearchConfig{DefaultMode: "any"}
	f := QueryFlags{}
	q, err := f.query("Gott", searchCfg)
	if err != nil {
		t.Fatal(err)
	}
	if q.Mode != models.ModeAny || q.Scope.Kind != models.ScopeWhole {
		t.Errorf("query = %+v, want config mode and whole scope", q)
	}

	f = QueryFlags{Mode: "bogus"}
	if _, err := f.query("Gott", searchCfg); err == nil {
		t.Error("unknown mode should fail")
	}
	f = QueryFlags{From: -1}
	if _, err := f.query("Gott", searchCfg); err == nil {
		t.Error("negative chapter should fail")
	}

	corpus, err := library.DecodeJSON([]byte(genesisJSON))
	if err != nil {
		t.Fatal(err)
	}
	c := &models.Corpus{Version: "de_test", Books: corpus}
	f = QueryFlags{Book: "Joh", From: 1}
	if err := f.scope(&q, c); err != nil {
		t.Fatal(err)
	}
	if q.Scope != models.BookRange(2, 1, 0) {
		t.Errorf("scope = %+v, want John from chapter 1", q.Scope)
	}
	f = QueryFlags{Book: "Offb"}
	if err := f.scope(&q, c); err == nil {
		t.Error("book missing from the corpus should fail")
	}
}

func TestComponents_LoadVersion(t *testing.T) {
	cfg := testConfig(t)
	c := testComponents(t, cfg, false)
	ctx := context.Background()

	corpus, err := c.LoadVersion(ctx, "")
	if err != nil {
		t.Fatalf("LoadVersion: %v", err)
	}
	if corpus.Version != "de_test" {
		t.Errorf("version = %q, want the first preferred version that loads", corpus.Version)
	}
	if c.Session.Corpus() != corpus {
		t.Error("session should follow the published corpus")
	}

	if _, err := c.LoadVersion(ctx, "missing"); err == nil {
		t.Error("an explicit missing version should fail")
	}
}

func TestComponents_LoadVersion_RemembersVersion(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Library.BiblesDir, "en_test.json"), []byte(genesisJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	c := testComponents(t, cfg, false)
	ctx := context.Background()
	if err := c.Storage.SetSetting(ctx, storage.SettingVersion, "en_test"); err != nil {
		t.Fatal(err)
	}
	corpus, err := c.LoadVersion(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Version != "en_test" {
		t.Errorf("version = %q, want the remembered version", corpus.Version)
	}
}

func TestComponents_LoadVersion_ForgetsBrokenVersion(t *testing.T) {
	cfg := testConfig(t)
	c := testComponents(t, cfg, false)
	ctx := context.Background()
	if err := c.Storage.SetSetting(ctx, storage.SettingVersion, "gone"); err != nil {
		t.Fatal(err)
	}
	corpus, err := c.LoadVersion(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Version != "de_test" {
		t.Errorf("version = %q, want the preferred version", corpus.Version)
	}
	if _, ok, _ := c.Storage.GetSetting(ctx, storage.SettingVersion); ok {
		t.Error("a remembered version that fails to load should be forgotten")
	}
}

func TestComponents_LoadVersion_FallsBackToSample(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.Library.BiblesDir, "de_test.json")); err != nil {
		t.Fatal(err)
	}
	c := testComponents(t, cfg, false)
	corpus, err := c.LoadVersion(context.Background(), "")
	if err != nil {
		t.Fatalf("sample fallback should not fail: %v", err)
	}
	if corpus.Version != library.SampleVersion {
		t.Errorf("version = %q, want the sample", corpus.Version)
	}
}

func TestDirectSearch(t *testing.T) {
	cfg := testConfig(t)
	c := testComponents(t, cfg, true)
	ctx := context.Background()
	if _, err := c.LoadVersion(ctx, ""); err != nil {
		t.Fatal(err)
	}

	resp, err := directSearch(ctx, c, models.Query{Text: "Gott", Mode: models.ModeAll})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Version != "de_test" || len(resp.Result.Rows) != 3 {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.Books) != 2 || resp.Books[0].Book != "Genesis" || resp.Books[0].Count != 2 {
		t.Errorf("books = %+v", resp.Books)
	}

	resp, err = directSearch(ctx, c, models.Query{Text: "Himmle", Mode: models.ModeAll})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Result.Rows) != 0 || len(resp.Result.Suggestions) == 0 || resp.Result.Suggestions[0] != "himmel" {
		t.Errorf("want a suggestion for a misspelled word, got %+v", resp.Result)
	}
}

func TestSearchViaHTTP(t *testing.T) {
	var got models.Query
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		result := models.NewSearchResult()
		result.Rows = []models.SearchRow{models.NewSearchRow(0, "Genesis", 1, 3, "Es werde Licht!", 1)}
		result.TotalMatches = 1
		_ = json.NewEncoder(w).Encode(search.Response{Version: "de_test", Query: got, Result: result})
	}))
	defer srv.Close()

	resp, err := searchViaHTTP(srv.URL, models.Query{Text: "Licht", Mode: models.ModeAny})
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "Licht" || got.Mode != models.ModeAny {
		t.Errorf("server received %+v", got)
	}
	if resp.Version != "de_test" || len(resp.Result.Rows) != 1 {
		t.Errorf("response = %+v", resp)
	}

	if _, err := searchViaHTTP(srv.URL+"/nope", models.Query{Text: "x"}); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("want a 404 error, got %v", err)
	}
}

func TestWriteStatusText(t *testing.T) {
	var buf bytes.Buffer
	writeStatusText(&buf, map[string]interface{}{
		"version":  "de_test",
		"books":    3,
		"attempts": []interface{}{"try:de_test", "success:de_test"},
	})
	out := buf.String()
	if strings.Index(out, "books:") > strings.Index(out, "version:") {
		t.Errorf("keys should be sorted:\n%s", out)
	}
	if !strings.Contains(out, "# load attempts") || !strings.Contains(out, "success:de_test") {
		t.Errorf("attempts missing:\n%s", out)
	}
}
