// Package catalog maintains an advisory SQLite registry of known sessions so
// tooling can enumerate them without walking event directories. It attaches
// to the event store's observer hook; the event files remain the source of
// truth, and a stale catalog row is always reconcilable from the log.
package catalog

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/odvcencio/scribe/pkg/eventlog"
)

//go:embed schema.sql
var schemaSQL string

// Session status constants.
const (
	StatusActive        = "active"
	StatusUnrecoverable = "unrecoverable"
	StatusCompleted     = "completed"
)

// ErrClosed indicates the underlying database connection is unavailable.
var ErrClosed = errors.New("catalog: closed")

// Session is one catalog row.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	LastSeq    uint64    `json:"last_seq"`
	EventCount int       `json:"event_count"`
	Status     string    `json:"status"`
}

// Catalog manages the session registry.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at dbPath.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply catalog schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Ensure registers a session if it is not already known.
func (c *Catalog) Ensure(sessionID string) error {
	if c == nil || c.db == nil {
		return ErrClosed
	}
	now := time.Now().UTC()
	_, err := c.db.Exec(`
		INSERT INTO sessions (session_id, created_at, last_active, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sessionID, now, now, StatusActive)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// RecordAppend advances a session's last sequence and event count.
func (c *Catalog) RecordAppend(sessionID string, seq uint64) error {
	if c == nil || c.db == nil {
		return ErrClosed
	}
	now := time.Now().UTC()
	_, err := c.db.Exec(`
		INSERT INTO sessions (session_id, created_at, last_active, last_seq, event_count, status)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_active = excluded.last_active,
			last_seq = MAX(last_seq, excluded.last_seq),
			event_count = event_count + 1
	`, sessionID, now, now, seq, StatusActive)
	if err != nil {
		return fmt.Errorf("failed to record append: %w", err)
	}
	return nil
}

// SetStatus updates a session's status, e.g. unrecoverable after a corrupt
// replay.
func (c *Catalog) SetStatus(sessionID, status string) error {
	if c == nil || c.db == nil {
		return ErrClosed
	}
	_, err := c.db.Exec(`UPDATE sessions SET status = ? WHERE session_id = ?`, status, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set session status: %w", err)
	}
	return nil
}

// Get returns one session, or nil if unknown.
func (c *Catalog) Get(sessionID string) (*Session, error) {
	if c == nil || c.db == nil {
		return nil, ErrClosed
	}
	row := c.db.QueryRow(`
		SELECT session_id, created_at, last_active, last_seq, event_count, status
		FROM sessions WHERE session_id = ?
	`, sessionID)

	var s Session
	err := row.Scan(&s.ID, &s.CreatedAt, &s.LastActive, &s.LastSeq, &s.EventCount, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// List returns all known sessions, most recently active first.
func (c *Catalog) List() ([]*Session, error) {
	if c == nil || c.db == nil {
		return nil, ErrClosed
	}
	rows, err := c.db.Query(`
		SELECT session_id, created_at, last_active, last_seq, event_count, status
		FROM sessions ORDER BY last_active DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.LastActive, &s.LastSeq, &s.EventCount, &s.Status); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// HandleAppend implements eventlog.Observer; catalog write failures never
// block the append path.
func (c *Catalog) HandleAppend(a eventlog.Appended) {
	_ = c.RecordAppend(a.SessionID, a.Seq)
}
