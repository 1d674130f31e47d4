package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeedStatus is the lifecycle state of a seed run
type SeedStatus string

const (
	SeedStatusRunning SeedStatus = "running"
	SeedStatusDone    SeedStatus = "done"
	SeedStatusError   SeedStatus = "error"
)

// SeedLogLimit bounds the rolling log kept on a run
const SeedLogLimit = 50

// SeedCursor points at the next (term, page) unit of work
type SeedCursor struct {
	TermIndex int `json:"termIndex"`
	Page      int `json:"page"`
}

// SeedLogEntry is one line of a run's rolling log
type SeedLogEntry struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Term    string    `json:"term,omitempty"`
	Message string    `json:"message"`
}

// SeedRun is a resumable batch walking terms x pages against the upstream catalog
type SeedRun struct {
	ID             uuid.UUID      `json:"id"`
	Locale         string         `json:"locale"`
	Terms          []string       `json:"terms"`
	PageSize       int            `json:"pageSize"`
	Status         SeedStatus     `json:"status"`
	Cursor         SeedCursor     `json:"cursor"`
	ProcessedCount int            `json:"processedCount"`
	UpsertedCount  int            `json:"upsertedCount"`
	ErrorCount     int            `json:"errorCount"`
	Logs           []SeedLogEntry `json:"logs"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Exhausted reports whether the cursor has walked past the last term
func (r SeedRun) Exhausted() bool {
	return r.Cursor.TermIndex >= len(r.Terms)
}

// CurrentTerm returns the term under the cursor, or "" once exhausted
func (r SeedRun) CurrentTerm() string {
	if r.Exhausted() || r.Cursor.TermIndex < 0 {
		return ""
	}
	return r.Terms[r.Cursor.TermIndex]
}
