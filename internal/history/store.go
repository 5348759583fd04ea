// Package history persists hotkey triggers so "last triggered" data survives
// restarts and can be listed over the control channel.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Entry is one recorded trigger.
type Entry struct {
	ID       string    `json:"id"`
	HotkeyID int       `json:"hotkey_id"`
	Action   string    `json:"action"`
	Binding  string    `json:"binding"`
	At       time.Time `json:"at"`
}

// Store is a sqlite-backed trigger log.
type Store struct {
	db   *sql.DB
	keep int
}

// Open creates or opens the database at path. keep bounds the number of
// stored rows; 0 keeps everything.
func Open(path string, keep int) (*Store, error) {
	if keep < 0 {
		return nil, fmt.Errorf("history keep must not be negative, got %d", keep)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY between
	// dispatch goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect history database: %w", err)
	}

	s := &Store{db: db, keep: keep}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS triggers (
		id TEXT PRIMARY KEY,
		hotkey_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		binding TEXT NOT NULL,
		triggered_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_triggers_triggered_at ON triggers(triggered_at DESC);
	CREATE INDEX IF NOT EXISTS idx_triggers_hotkey_id ON triggers(hotkey_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize history schema: %w", err)
	}
	return nil
}

// Record stores e and prunes rows beyond the keep limit. A missing ID is
// filled with a random UUID and a zero At with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (id, hotkey_id, action, binding, triggered_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.HotkeyID, e.Action, e.Binding, e.At.UnixNano(),
	)
	if err != nil {
		return e, fmt.Errorf("save trigger %s: %w", e.ID, err)
	}

	if s.keep > 0 {
		if err := s.prune(ctx); err != nil {
			slog.Warn("[WARN-HISTORY] failed to prune trigger history", "error", err)
		}
	}
	return e, nil
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM triggers WHERE rowid NOT IN (
			SELECT rowid FROM triggers ORDER BY triggered_at DESC, rowid DESC LIMIT ?
		)`, s.keep)
	return err
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hotkey_id, action, binding, triggered_at
		FROM triggers
		ORDER BY triggered_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &e.HotkeyID, &e.Action, &e.Binding, &at); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// LastTriggered returns the most recent trigger time of each hotkey id.
func (s *Store) LastTriggered(ctx context.Context) (map[int]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hotkey_id, MAX(triggered_at) FROM triggers GROUP BY hotkey_id`)
	if err != nil {
		return nil, fmt.Errorf("load last triggered: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var id int
		var at int64
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan last triggered: %w", err)
		}
		out[id] = time.Unix(0, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last triggered: %w", err)
	}
	return out, nil
}

// Count returns the number of stored triggers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triggers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Clear removes every stored trigger.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM triggers`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("close history database: %w", err)
	}
	return nil
}
