package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mdage/internal/database/migrations"
	"mdage/internal/mdage"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements mdage.History on SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

var _ mdage.History = (*SQLiteHistory)(nil)

// NewSQLiteHistory opens path, applies pending migrations and returns the
// history. path can be a file path or ":memory:".
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the database location.
func (s *SQLiteHistory) Path() string { return s.path }

func (s *SQLiteHistory) Record(ctx context.Context, op mdage.Operation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (id, session_id, kind, note, method, blocks, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.SessionID, op.Kind, op.Note, op.Method, op.Blocks, op.Status, op.Error,
		op.StartedAt.UTC(), op.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	return nil
}

func (s *SQLiteHistory) Recent(ctx context.Context, limit int) ([]mdage.Operation, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, kind, note, method, blocks, status, error, started_at, finished_at
		FROM operations
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var ops []mdage.Operation
	for rows.Next() {
		var op mdage.Operation
		var started, finished time.Time
		if err := rows.Scan(&op.ID, &op.SessionID, &op.Kind, &op.Note, &op.Method, &op.Blocks,
			&op.Status, &op.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		op.StartedAt = started
		op.FinishedAt = finished
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
