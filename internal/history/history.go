// Package history persists per-session chat transcripts and the latest
// generated quiz in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Entry struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		sender     TEXT NOT NULL,
		message    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	CREATE TABLE IF NOT EXISTS quizzes (
		session_id TEXT PRIMARY KEY,
		quiz       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (s *Store) Append(ctx context.Context, sessionID, sender, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, sender, message, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, sender, message, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// List returns the last limit messages of a session, oldest first.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sender, message, created_at FROM (
			SELECT id, sender, message, created_at FROM messages
			WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.Sender, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) SaveQuiz(ctx context.Context, sessionID, quiz string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quizzes (session_id, quiz, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET quiz = excluded.quiz, updated_at = excluded.updated_at`,
		sessionID, quiz, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: save quiz: %w", err)
	}
	return nil
}

// Quiz returns the session's last quiz. ok is false when none was generated.
func (s *Store) Quiz(ctx context.Context, sessionID string) (quiz string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT quiz FROM quizzes WHERE session_id = ?`, sessionID).Scan(&quiz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("history: load quiz: %w", err)
	}
	return quiz, true, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
