package cache

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

// SQLiteBackend persists entries in a single-table SQLite database
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLite opens (creating if needed) the database at dbPath
func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, dbPath: dbPath}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// Path returns the database file path
func (b *SQLiteBackend) Path() string {
	return b.dbPath
}

func (b *SQLiteBackend) migrate() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			written_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context, key string) (Entry, bool, error) {
	var (
		data      []byte
		writtenAt int64
	)
	err := b.db.QueryRowContext(ctx,
		"SELECT data, written_at FROM cache_entries WHERE key = ?", key,
	).Scan(&data, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("loading %s: %w", key, err)
	}
	return Entry{
		Key:       key,
		Data:      data,
		Timestamp: time.UnixMilli(writtenAt),
	}, true, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, entry Entry) error {
	if entry.Data == nil {
		entry.Data = []byte{}
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, data, written_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			written_at = excluded.written_at
	`, entry.Key, entry.Data, entry.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving %s: %w", entry.Key, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
