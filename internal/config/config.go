// Package config provides configuration loading and structs for the bible reader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug" env:"BIBLEREADER_DEBUG"`
	Server  ServerConfig  `yaml:"server"`
	Library LibraryConfig `yaml:"library"`
	Search  SearchConfig  `yaml:"search"`
	Suggest SuggestConfig `yaml:"suggest"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds HTTP server settings. The server is meant for a single
// local user and binds to localhost by default.
type ServerConfig struct {
	Host string `yaml:"host" env:"BIBLEREADER_HOST"`
	Port int    `yaml:"port" env:"BIBLEREADER_PORT"`
}

// LibraryConfig holds where bible versions live and how they are loaded.
type LibraryConfig struct {
	BiblesDir string `yaml:"bibles_dir" env:"BIBLEREADER_BIBLES_DIR"`
	// Preferred versions are tried first, in order, when no version is selected.
	Preferred    []string      `yaml:"preferred" env:"BIBLEREADER_PREFERRED" env-separator:","`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"BIBLEREADER_FETCH_TIMEOUT"`
	CacheSize    int           `yaml:"cache_size"`
	// MinCacheBooks is the smallest book count worth keeping in the cache;
	// partial versions are always reloaded.
	MinCacheBooks int   `yaml:"min_cache_books"`
	Watch         *bool `yaml:"watch"`
}

// WatchOrDefault returns whether to watch the bibles directory; defaults to true when unset.
func (l *LibraryConfig) WatchOrDefault() bool {
	if l.Watch != nil {
		return *l.Watch
	}
	return true
}

// SearchConfig holds search engine settings.
type SearchConfig struct {
	MaxResults       int           `yaml:"max_results" env:"BIBLEREADER_MAX_RESULTS"`
	Debounce         time.Duration `yaml:"debounce"`
	DefaultMode      string        `yaml:"default_mode"`
	CaseSensitive    bool          `yaml:"case_sensitive"`
	MatcherCacheSize int           `yaml:"matcher_cache_size"`
}

// SuggestConfig holds "did you mean" settings.
type SuggestConfig struct {
	Enabled        *bool `yaml:"enabled"`
	MaxDistance    int   `yaml:"max_distance"`
	MinFrequency   int   `yaml:"min_frequency"`
	MaxSuggestions int   `yaml:"max_suggestions"`
}

// EnabledOrDefault returns whether suggestions are enabled; defaults to true when unset.
func (s *SuggestConfig) EnabledOrDefault() bool {
	if s.Enabled != nil {
		return *s.Enabled
	}
	return true
}

// StorageConfig holds the settings database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" env:"BIBLEREADER_DATABASE_PATH"`
}

// Load reads and parses the config file at path, overlays BIBLEREADER_*
// environment variables, applies defaults and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Library.BiblesDir = expandPath(cfg.Library.BiblesDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	return &cfg, nil
}

// Default returns a config built only from the environment and defaults,
// for running without a config file. Relative paths resolve against the
// working directory.
func Default() (*Config, error) {
	var cfg Config
	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	ApplyDefaults(&cfg)
	if cwd, err := os.Getwd(); err == nil {
		cfg.Library.BiblesDir = expandPath(cfg.Library.BiblesDir, cwd)
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, cwd)
	}
	return &cfg, nil
}

// Save writes the config to path. Used for persisting the preferred versions.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
