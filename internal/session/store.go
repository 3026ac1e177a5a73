// ABOUTME: SQLite-backed session ledger persisting the resume cursor per conversation
// ABOUTME: Lets a restarted client resume the stream from the last event it processed

package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists per-conversation resume cursors in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a session store at the given path. The schema is created if
// it doesn't exist and parent directories are created if needed.
func Open(path string) (*Store, error) {
	logger := slog.Default().With("component", "session")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_cursors (
			conversation_id TEXT PRIMARY KEY,
			last_event_id   INTEGER NOT NULL,
			updated_at      TEXT NOT NULL
		)
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Cursor returns the highest event id recorded for a conversation. The
// second return is false when the conversation has no cursor yet.
func (s *Store) Cursor(ctx context.Context, conversationID string) (int, bool, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_event_id FROM session_cursors WHERE conversation_id = ?`,
		conversationID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying cursor: %w", err)
	}
	return id, true, nil
}

// SaveCursor records an event id for a conversation. The stored cursor is
// monotonic: saving a lower id than the one on disk is a no-op.
func (s *Store) SaveCursor(ctx context.Context, conversationID string, eventID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_cursors (conversation_id, last_event_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			last_event_id = MAX(last_event_id, excluded.last_event_id),
			updated_at = excluded.updated_at
	`, conversationID, eventID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// Reset forgets the cursor for a conversation. Used when the timeline is
// cleared so the next connect replays from the beginning.
func (s *Store) Reset(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_cursors WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("resetting cursor: %w", err)
	}
	s.logger.Debug("cursor reset", "conversation_id", conversationID)
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
