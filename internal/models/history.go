package models

import "time"

// HistoryEntry records one search the user ran.
type HistoryEntry struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	Mode          Mode      `json:"mode"`
	CaseSensitive bool      `json:"case_sensitive"`
	Version       string    `json:"version"`
	Matches       int       `json:"matches"`
	Exceeded      bool      `json:"exceeded"`
	CreatedAt     time.Time `json:"created_at"`
}
