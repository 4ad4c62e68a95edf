// Package sqlite implements the repository interfaces on an embedded SQLite
// database. modernc.org/sqlite is a pure Go driver, so the dev store builds
// without a C toolchain.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the connection pool and carries the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" works for tests), applies
// the pragmas the dev store needs, and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL keeps reads flowing while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	// Cascades from questions to answers to votes depend on this.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id           TEXT PRIMARY KEY,
			email        TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS questions (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '[]',
			user_id     TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);
		CREATE INDEX IF NOT EXISTS idx_questions_user_id ON questions(user_id);

		CREATE TABLE IF NOT EXISTS answers (
			id          TEXT PRIMARY KEY,
			question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			content     TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id);
		CREATE INDEX IF NOT EXISTS idx_answers_user_id ON answers(user_id);

		CREATE TABLE IF NOT EXISTS votes (
			answer_id  TEXT NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			vote_type  TEXT NOT NULL CHECK (vote_type IN ('up', 'down')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (answer_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS signin_tokens (
			email      TEXT PRIMARY KEY,
			token_hash TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a uniqueness constraint failure.
// The pure Go driver exposes this only through the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
