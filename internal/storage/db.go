// Package storage owns the single SQLite handle, the transaction scope used
// by every ledger mutation, and the idempotent schema bootstrap.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"portafoglio/internal/core"
)

// DB wraps the process-wide database handle. The pool is capped at a single
// open connection so that a transaction scope is also a serialization point:
// no other statement can interleave between a balance check and the debit
// that follows it.
type DB struct {
	sql   *sql.DB
	path  string
	init  singleflight.Group
	ready atomic.Bool
}

// Open opens (creating if needed) the SQLite database at dbPath. The schema
// is not touched until Initialize is called.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{sql: db, path: dbPath}, nil
}

// Initialize runs migrations and the additive column repair, exactly once no
// matter how many goroutines call it; later calls observe the cached result.
// Every ledger operation is refused with core.ErrNotInitialized until the
// first call succeeds.
func (d *DB) Initialize(ctx context.Context) error {
	if d.ready.Load() {
		return nil
	}
	_, err, _ := d.init.Do("initialize", func() (any, error) {
		// Repair runs first: pre-history databases must gain the columns the
		// index migration touches before migrations are applied.
		if err := repairColumns(ctx, d.sql); err != nil {
			return nil, fmt.Errorf("repair columns: %w", err)
		}
		if err := RunMigrations(d.path); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		d.ready.Store(true)
		slog.InfoContext(ctx, "Database schema initialized", "path", d.path)
		return nil, nil
	})
	return err
}

// Ready reports whether Initialize has completed successfully.
func (d *DB) Ready() bool {
	return d.ready.Load()
}

func (d *DB) Close() error {
	if d.sql != nil {
		return d.sql.Close()
	}
	return nil
}

// Exec runs a single statement outside any transaction.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, query, args...)
}

// QueryRow runs a single-row query outside any transaction.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, query, args...)
}

// Query runs a multi-row query outside any transaction.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, query, args...)
}

// WithTx runs fn inside a transaction. If fn returns an error, every write it
// made is rolled back and that error is returned unchanged; commit and begin
// failures come back as *core.StorageError.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.NewStorageError("commit transaction", err)
	}
	return nil
}
