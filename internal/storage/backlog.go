// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/amadeus-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("backlog store closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// TYPES
// =============================================================================

// Entry is one backlog line: who spoke and what was shown.
type Entry struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMeta summarises one program run for listing.
type SessionMeta struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Count     int       `json:"count"`
	Preview   string    `json:"preview"` // First user line truncated
}

// DefaultMaxEntries bounds the backlog table.
const DefaultMaxEntries = 5000

const previewRunes = 50

const schema = `
CREATE TABLE IF NOT EXISTS backlog (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	session    TEXT NOT NULL,
	speaker    TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backlog_session ON backlog(session);
`

// =============================================================================
// BACKLOG STORE
// =============================================================================

// BacklogStore persists backlog pages in SQLite. It satisfies the
// presentation layer's BacklogSink.
type BacklogStore struct {
	mu      sync.Mutex
	db      *sql.DB
	session string
	now     func() time.Time

	// MaxEntries limits stored rows (0 = unlimited).
	MaxEntries int
}

// Open opens or creates the backlog database at path. Each Open starts a new
// session.
func Open(path string) (*BacklogStore, error) {
	if path != ":memory:" {
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, and ":memory:" is per
	// connection, so keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if path != ":memory:" {
		// SECURITY: conversation content is private
		if err := os.Chmod(path, 0600); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not restrict %s: %v\n", path, err)
		}
	}

	return &BacklogStore{
		db:         db,
		session:    uuid.NewString(),
		now:        time.Now,
		MaxEntries: DefaultMaxEntries,
	}, nil
}

// WithClock replaces the clock used for timestamps.
func (s *BacklogStore) WithClock(now func() time.Time) *BacklogStore {
	s.now = now
	return s
}

// Session returns the id of the current session.
func (s *BacklogStore) Session() string {
	return s.session
}

// Close closes the database.
func (s *BacklogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// Append records a page. Failures are logged and never reach the turn.
func (s *BacklogStore) Append(speaker, text string) {
	if _, err := s.Add(context.Background(), speaker, text); err != nil {
		log.Printf("[backlog] append failed: %v", err)
	}
}

// Add records a page and returns the stored entry.
func (s *BacklogStore) Add(ctx context.Context, speaker, text string) (Entry, error) {
	text = strings.TrimSpace(text)
	e := Entry{
		ID:        uuid.NewString(),
		Session:   s.session,
		Speaker:   speaker,
		Text:      text,
		CreatedAt: s.now(),
	}
	if text == "" {
		return e, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return e, ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO backlog (id, session, speaker, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Session, e.Speaker, e.Text, e.CreatedAt.UnixMilli())
	if err != nil {
		return e, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if s.MaxEntries > 0 {
		s.enforceLimit(ctx)
	}
	return e, nil
}

// enforceLimit removes the oldest rows beyond MaxEntries.
func (s *BacklogStore) enforceLimit(ctx context.Context) {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM backlog WHERE seq <= (SELECT MAX(seq) FROM backlog) - ?`, s.MaxEntries)
	if err != nil {
		log.Printf("[backlog] trim failed: %v", err)
	}
}

// Clear deletes every entry.
func (s *BacklogStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM backlog`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Recent returns up to n most recent entries, oldest first. n <= 0 returns
// every entry.
func (s *BacklogStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	query := `SELECT id, session, speaker, text, created_at FROM backlog ORDER BY seq DESC`
	args := []any{}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	entries, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

// SessionEntries returns every entry of one session, oldest first.
func (s *BacklogStore) SessionEntries(ctx context.Context, session string) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, session, speaker, text, created_at FROM backlog WHERE session = ? ORDER BY seq`, session)
}

// Search returns entries containing query (case-insensitive), newest first.
func (s *BacklogStore) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(query) + "%"
	return s.query(ctx,
		`SELECT id, session, speaker, text, created_at FROM backlog
		 WHERE text LIKE ? ESCAPE '\' ORDER BY seq DESC LIMIT ?`, pattern, limit)
}

// Sessions lists sessions, most recently updated first.
func (s *BacklogStore) Sessions(ctx context.Context) ([]SessionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session, MIN(created_at), MAX(created_at), COUNT(*),
		       COALESCE((SELECT b2.text FROM backlog b2
		                 WHERE b2.session = b.session AND b2.speaker = 'User'
		                 ORDER BY b2.seq LIMIT 1), '')
		FROM backlog b
		GROUP BY session
		ORDER BY MAX(seq) DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var (
			m            SessionMeta
			started, upd int64
			preview      string
		)
		if err := rows.Scan(&m.ID, &started, &upd, &m.Count, &preview); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		m.StartedAt = time.UnixMilli(started)
		m.UpdatedAt = time.UnixMilli(upd)
		m.Preview = util.TruncateRunes(strings.ReplaceAll(preview, "\n", " "), previewRunes)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

func (s *BacklogStore) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Speaker, &e.Text, &ms); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		e.CreatedAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Format renders an entry the way the backlog overlay shows it.
func (e Entry) Format() string {
	return fmt.Sprintf("[%s] %s: %s", e.CreatedAt.Format("01/02 15:04"), e.Speaker, e.Text)
}
