// Package main is the biblereader CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/library"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/search"
	"github.com/dawei7/biblereader/internal/server"
	"github.com/dawei7/biblereader/internal/session"
	"github.com/dawei7/biblereader/internal/storage"
	"github.com/dawei7/biblereader/internal/watcher"
	"github.com/dawei7/biblereader/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/biblereader/config.yaml"

// Globals are the flags shared by every command.
type Globals struct {
	Config string `name:"config" short:"c" help:"Config file path" default:"${config_path}"`
	Debug  bool   `name:"debug" help:"Enable debug logging"`
}

// CLI defines the command-line interface for biblereader.
var CLI struct {
	Globals

	Serve     ServeCmd     `cmd:"" help:"Start the HTTP and live search server"`
	Search    SearchCmd    `cmd:"" help:"Search the verses of a version"`
	Passage   PassageCmd   `cmd:"" help:"Print the verses of one or more references"`
	Read      ReadCmd      `cmd:"" help:"Print a chapter or part of it"`
	Highlight HighlightCmd `cmd:"" help:"Mark the words of a query in a text"`
	Versions  VersionsCmd  `cmd:"" help:"List the versions in the library"`
	Export    ExportCmd    `cmd:"" help:"Write search results to an Excel workbook"`
	History   HistoryCmd   `cmd:"" help:"Show or clear the search history"`
	Status    StatusCmd    `cmd:"" help:"Show the status of a running server"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When neither exists the built-in defaults apply, overlaid with the environment.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Components holds initialized services.
type Components struct {
	Config  *config.Config
	Logger  *zap.Logger
	Storage storage.Storage
	Library *library.Library
	Engine  *search.Engine
	Session *session.Session
}

// Close releases the session and the settings database.
func (c *Components) Close() {
	if c.Session != nil {
		c.Session.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires library, engine and session. The session follows
// every corpus the library publishes. A settings database that cannot be
// opened only disables history and remembered versions.
func initializeComponents(cfg *config.Config, logger *zap.Logger, suggestions bool) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn("settings database unavailable, history disabled",
			zap.String("path", cfg.Storage.DatabasePath), zap.Error(err))
	} else {
		c.Storage = store
	}

	lib, err := library.New(&cfg.Library, library.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize library: %w", err)
	}
	c.Library = lib
	c.Engine = search.NewEngine(&cfg.Search, search.WithLogger(logger))

	opts := []session.Option{session.WithLogger(logger)}
	if suggestions && cfg.Suggest.EnabledOrDefault() {
		opts = append(opts, session.WithSuggestions(cfg.Suggest))
	}
	sess, err := session.New(c.Engine, &cfg.Search, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	c.Session = sess
	lib.Subscribe(sess.SetCorpus)
	return c, nil
}

// LoadVersion publishes the version to work with. An explicit version must
// load. Otherwise the remembered version, the preferred versions and then the
// rest of the library are tried in order, ending with the built-in sample.
// A remembered version that fails to load is forgotten.
func (c *Components) LoadVersion(ctx context.Context, explicit string) (*models.Corpus, error) {
	if explicit != "" {
		return c.Library.Load(ctx, explicit)
	}
	var candidates []string
	var remembered string
	if c.Storage != nil {
		v, ok, err := c.Storage.GetSetting(ctx, storage.SettingVersion)
		if err != nil {
			c.Logger.Warn("failed to read remembered version", zap.Error(err))
		} else if ok {
			remembered = v
			candidates = append(candidates, v)
		}
	}
	candidates = append(candidates, c.Config.Library.Preferred...)
	if versions, err := c.Library.Versions(); err == nil {
		for _, v := range versions {
			candidates = append(candidates, v.Abbreviation)
		}
	} else {
		c.Logger.Warn("failed to list versions", zap.Error(err))
	}

	corpus, err := c.Library.LoadAny(ctx, dedupe(candidates))
	if remembered != "" && corpus != nil && corpus.Version != remembered {
		// The remembered version no longer loads.
		if delErr := c.Storage.DeleteSetting(ctx, storage.SettingVersion); delErr != nil {
			c.Logger.Warn("failed to forget remembered version", zap.Error(delErr))
		}
	}
	if corpus != nil && err != nil {
		c.Logger.Warn("no version could be loaded, using the built-in sample", zap.Error(err))
		return corpus, nil
	}
	return corpus, err
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ServeCmd starts the server.
type ServeCmd struct {
	Host    string `help:"Listen host (overrides config)"`
	Port    int    `help:"Listen port (overrides config)"`
	Version string `short:"V" help:"Version to open instead of the remembered one"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, resolvedConfigPath, err := loadConfig(g.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	debugMode := cfg.Debug || g.Debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("bibles_dir", cfg.Library.BiblesDir),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corpus, err := components.LoadVersion(ctx, c.Version)
	if err != nil {
		return fmt.Errorf("failed to open version: %w", err)
	}
	restoreLastQuery(ctx, components)

	go func() {
		if err := components.Library.Preload(ctx, cfg.Library.Preferred); err != nil {
			logger.Debug("preload incomplete", zap.Error(err))
		}
	}()

	if cfg.Library.WatchOrDefault() {
		lib := components.Library
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(lib.Dir(), func(ev watcher.Event) {
			changed, err := lib.Reload(ctx, ev.Version)
			if err != nil {
				logger.Warn("reload failed, keeping loaded version",
					zap.String("version", ev.Version), zap.Bool("removed", ev.Removed), zap.Error(err))
				return
			}
			if changed {
				logger.Info("version changed on disk", zap.String("version", ev.Version))
			}
		}, watchOpts...)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Warn("failed to watch bibles directory", zap.String("dir", lib.Dir()), zap.Error(err))
		} else {
			defer watchSvc.Stop()
		}
	}

	srv := server.NewServer(
		components.Library,
		components.Session,
		components.Engine,
		components.Storage,
		&cfg.Server,
		logger,
	)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("ready", zap.String("version", corpus.Version), zap.Int("books", len(corpus.Books)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// restoreLastQuery puts the last query of the previous run back into the
// session, so live clients see where they left off.
func restoreLastQuery(ctx context.Context, c *Components) {
	if c.Storage == nil {
		return
	}
	q, ok, err := storage.LastQuery(ctx, c.Storage)
	if err != nil {
		c.Logger.Warn("failed to restore last query", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if q.Mode != "" {
		c.Session.SetMode(q.Mode)
	}
	c.Session.SetCaseSensitive(q.CaseSensitive)
	if corpus := c.Session.Corpus(); q.Scope.Kind != models.ScopeBook || (!corpus.Empty() && q.Scope.Book < len(corpus.Books)) {
		c.Session.SetScope(q.Scope)
	}
	c.Session.SetQueryInput(q.Text)
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("biblereader version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("biblereader"),
		kong.Description("Read and search bible versions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{"config_path": defaultConfigPath},
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
