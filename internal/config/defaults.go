package config

import (
	"time"

	"github.com/dawei7/biblereader/internal/models"
)

// DefaultMaxResults is the number of matching verses above which a search is abandoned.
const DefaultMaxResults = 5000

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Library.BiblesDir == "" {
		cfg.Library.BiblesDir = "./bibles"
	}
	if cfg.Library.Preferred == nil {
		cfg.Library.Preferred = []string{"de_schlachter", "en_kjv"}
	}
	if cfg.Library.FetchTimeout == 0 {
		cfg.Library.FetchTimeout = 7 * time.Second
	}
	if cfg.Library.CacheSize == 0 {
		cfg.Library.CacheSize = 4
	}
	if cfg.Library.MinCacheBooks == 0 {
		cfg.Library.MinCacheBooks = 3
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = DefaultMaxResults
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 500 * time.Millisecond
	}
	if _, err := models.ParseMode(cfg.Search.DefaultMode); err != nil {
		cfg.Search.DefaultMode = string(models.ModeAll)
	}
	if cfg.Search.MatcherCacheSize == 0 {
		cfg.Search.MatcherCacheSize = 64
	}
	if cfg.Suggest.MaxDistance == 0 {
		cfg.Suggest.MaxDistance = 2
	}
	if cfg.Suggest.MinFrequency == 0 {
		cfg.Suggest.MinFrequency = 1
	}
	if cfg.Suggest.MaxSuggestions == 0 {
		cfg.Suggest.MaxSuggestions = 3
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".biblereader/biblereader.db"
	}
}
