// Package storage persists reader settings and search history.
package storage

import (
	"context"

	"github.com/dawei7/biblereader/internal/models"
)

// Setting keys.
const (
	SettingVersion   = "version"
	SettingLastQuery = "last_query"
)

// Storage defines settings and history persistence operations.
type Storage interface {
	// Settings
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// History
	AddHistory(ctx context.Context, entry *models.HistoryEntry) error
	GetHistory(ctx context.Context, id string) (*models.HistoryEntry, error)
	ListHistory(ctx context.Context, offset, limit int) ([]*models.HistoryEntry, error)
	PruneHistory(ctx context.Context, keep int) (int64, error)
	ClearHistory(ctx context.Context) error

	// Stats
	CountHistory(ctx context.Context) (int64, error)

	Close() error
}
