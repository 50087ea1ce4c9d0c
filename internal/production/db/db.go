package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory catalog.
const MemoryPath = ":memory:"

const (
	selectMetadataSQL = `SELECT value FROM sync_metadata WHERE key = ?`
	upsertMetadataSQL = `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`
)

// DB is a handle on a catalog database.
type DB struct {
	*sql.DB
	path string
}

// Open opens the catalog database at path, creating the file and its parent
// directory when missing. Foreign keys are enforced so recipe rows cannot
// outlive the items and buildings they reference.
func Open(ctx context.Context, path string) (*DB, error) {
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating catalog directory: %w", err)
			}
		}
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}

	dsn := "file:" + path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}

	// Each connection to :memory: would see its own empty catalog.
	if path == MemoryPath {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}

	return &DB{DB: sqlDB, path: path}, nil
}

// OpenAndInit opens the catalog database and brings its schema up to date.
func OpenAndInit(ctx context.Context, path string) (*DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing catalog %s: %w", path, err)
	}

	return db, nil
}

// Path returns the path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// InTransaction runs fn in a transaction, committing when fn returns nil
// and rolling back otherwise.
func (db *DB) InTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetSyncMetadata returns the value stored under key, or "" when unset.
func (db *DB) GetSyncMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, selectMetadataSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync metadata %s: %w", key, err)
	}
	return value, nil
}

// SetSyncMetadata stores one metadata value.
func (db *DB) SetSyncMetadata(ctx context.Context, key, value string) error {
	return db.SetSyncMetadataValues(ctx, map[string]string{key: value})
}

// SetSyncMetadataValues stores several metadata values atomically.
func (db *DB) SetSyncMetadataValues(ctx context.Context, values map[string]string) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertMetadataSQL)
		if err != nil {
			return fmt.Errorf("preparing metadata upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for key, value := range values {
			if _, err := stmt.ExecContext(ctx, key, value); err != nil {
				return fmt.Errorf("setting sync metadata %s: %w", key, err)
			}
		}
		return nil
	})
}
