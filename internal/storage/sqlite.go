package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dawei7/biblereader/internal/models"
)

// ErrNotFound is returned when a history entry does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// DriverType reports which SQLite driver the binary was built with:
// "purego" for modernc.org/sqlite, "cgo" for mattn/go-sqlite3.
func DriverType() string {
	return driverType
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Settings and history writes are tiny; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS search_history (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		mode TEXT NOT NULL,
		case_sensitive INTEGER NOT NULL DEFAULT 0,
		version TEXT NOT NULL DEFAULT '',
		matches INTEGER NOT NULL DEFAULT 0,
		exceeded INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_created_at ON search_history(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// GetSetting returns the value stored under key and whether it exists.
func (s *SQLiteStorage) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (s *SQLiteStorage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	return err
}

// DeleteSetting removes key. Deleting a missing key is not an error.
func (s *SQLiteStorage) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// AddHistory inserts entry, assigning an ID and timestamp when they are unset.
func (s *SQLiteStorage) AddHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (id, query, mode, case_sensitive, version, matches, exceeded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Query, string(entry.Mode), entry.CaseSensitive, entry.Version,
		entry.Matches, entry.Exceeded, entry.CreatedAt.UnixMilli(),
	)
	return err
}

// GetHistory returns a history entry by ID.
func (s *SQLiteStorage) GetHistory(ctx context.Context, id string) (*models.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, mode, case_sensitive, version, matches, exceeded, created_at
		 FROM search_history WHERE id = ?`, id,
	)
	entry, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListHistory returns history entries newest first with offset and limit.
func (s *SQLiteStorage) ListHistory(ctx context.Context, offset, limit int) ([]*models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, mode, case_sensitive, version, matches, exceeded, created_at
		 FROM search_history ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PruneHistory deletes all but the newest keep entries and returns how many were removed.
func (s *SQLiteStorage) PruneHistory(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearHistory removes every history entry.
func (s *SQLiteStorage) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

// CountHistory returns the total number of history entries.
func (s *SQLiteStorage) CountHistory(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(row scanner) (*models.HistoryEntry, error) {
	var (
		entry     models.HistoryEntry
		mode      string
		createdAt int64
	)
	if err := row.Scan(&entry.ID, &entry.Query, &mode, &entry.CaseSensitive, &entry.Version,
		&entry.Matches, &entry.Exceeded, &createdAt); err != nil {
		return nil, err
	}
	entry.Mode = models.Mode(mode)
	entry.CreatedAt = time.UnixMilli(createdAt)
	return &entry, nil
}

// SaveLastQuery stores q so the next session can restore it.
func SaveLastQuery(ctx context.Context, s Storage, q models.Query) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}
	return s.SetSetting(ctx, SettingLastQuery, string(data))
}

// LastQuery returns the stored query, or false when none was saved.
func LastQuery(ctx context.Context, s Storage) (models.Query, bool, error) {
	value, ok, err := s.GetSetting(ctx, SettingLastQuery)
	if err != nil || !ok {
		return models.Query{}, false, err
	}
	var q models.Query
	if err := json.Unmarshal([]byte(value), &q); err != nil {
		return models.Query{}, false, fmt.Errorf("failed to unmarshal query: %w", err)
	}
	return q, true, nil
}
