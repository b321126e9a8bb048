package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/devaloi/toastbox/internal/domain"
)

// SQLiteStore implements History using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each new connection to ":memory:" is a separate empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS toast_history (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			toast_id INTEGER NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			closed_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_toast_history_provider_closed ON toast_history(provider, closed_at);
	`)
	return err
}

// Record persists a closed toast.
func (s *SQLiteStore) Record(e domain.HistoryEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	closed := e.Closed
	if closed.IsZero() {
		closed = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO toast_history (id, provider, toast_id, message, type, duration_ms, reason, created_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Provider, e.ToastID, e.Message, e.Type, e.Duration, e.Reason, e.Created.UTC(), closed.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record toast %d: %w", e.ToastID, err)
	}
	return nil
}

// Recent returns the last `limit` closed toasts for a provider, newest first.
func (s *SQLiteStore) Recent(provider string, limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, provider, toast_id, message, type, duration_ms, reason, created_at, closed_at
		FROM toast_history
		WHERE provider = ?
		ORDER BY closed_at DESC, id DESC
		LIMIT ?
	`, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Provider, &e.ToastID, &e.Message, &e.Type, &e.Duration, &e.Reason, &e.Created, &e.Closed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
