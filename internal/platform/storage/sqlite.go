package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStorage stores key-value pairs in a single SQLite table. It is the
// embedded, durable sibling of FileStorage for deployments that prefer one
// database file over a directory of JSON files.
type SQLiteStorage struct {
	db       *sql.DB
	maxBytes int64
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) a SQLite database at dbPath and
// applies the embedded schema migrations. maxBytes caps the size of a
// single value; zero means no quota. The caller is responsible for calling
// Close.
func NewSQLiteStorage(dbPath string, maxBytes int64) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", ErrUnavailable, dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db, maxBytes: maxBytes}, nil
}

// migrate applies the embedded goose migrations.
func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("%w: apply migrations: %w", ErrUnavailable, err)
	}
	return nil
}

// GetItem returns the value stored under key.
func (s *SQLiteStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM storage_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select %s: %w", ErrUnavailable, key, err)
	}
	return value, nil
}

// SetItem stores value under key, enforcing the byte quota if configured.
func (s *SQLiteStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if s.maxBytes > 0 && int64(len(value)) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds quota of %d", ErrQuotaExceeded, len(value), s.maxBytes)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storage_items (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// RemoveItem deletes the value under key. Absent keys are ignored.
func (s *SQLiteStorage) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM storage_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStorage) Close() error { return s.db.Close() }
