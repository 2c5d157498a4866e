package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"portafoglio/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the schema", func(t *testing.T) {
		db := openTestDB(t)
		if db.Ready() {
			t.Fatal("database reported ready before Initialize")
		}
		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		if !db.Ready() {
			t.Fatal("database not ready after Initialize")
		}

		var n int
		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('wallets', 'expenses')`,
		).Scan(&n)
		if err != nil {
			t.Fatalf("inspect schema: %v", err)
		}
		if n != 2 {
			t.Fatalf("got %d tables, want 2", n)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := openTestDB(t)
		for i := 0; i < 3; i++ {
			if err := db.Initialize(ctx); err != nil {
				t.Fatalf("initialize call %d: %v", i+1, err)
			}
		}
	})

	t.Run("safe under concurrent callers", func(t *testing.T) {
		db := openTestDB(t)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = db.Initialize(ctx)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Errorf("concurrent initialize %d: %v", i, err)
			}
		}
		if !db.Ready() {
			t.Fatal("database not ready after concurrent Initialize")
		}
	})
}

// Databases from before the migration history have the tables but not the
// newer columns. Initialize must add them without touching existing rows.
func TestInitializeRepairsLegacySchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy database: %v", err)
	}
	stmts := []string{
		`CREATE TABLE wallets (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, amount REAL NOT NULL)`,
		`CREATE TABLE expenses (id INTEGER PRIMARY KEY AUTOINCREMENT, amount REAL NOT NULL, note TEXT NOT NULL, date TEXT NOT NULL)`,
		`INSERT INTO wallets (name, amount) VALUES ('Cash', 100)`,
		`INSERT INTO expenses (amount, note, date) VALUES (10, 'old row', '2024-01-01')`,
	}
	for _, stmt := range stmts {
		if _, err := legacy.Exec(stmt); err != nil {
			t.Fatalf("prepare legacy schema: %v", err)
		}
	}
	if err := legacy.Close(); err != nil {
		t.Fatalf("close legacy database: %v", err)
	}

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("initialize legacy database: %v", err)
	}

	var currency string
	var normalized float64
	err = db.QueryRow(ctx,
		`SELECT currency, normalizedAmount FROM wallets WHERE name = 'Cash'`,
	).Scan(&currency, &normalized)
	if err != nil {
		t.Fatalf("read repaired wallet: %v", err)
	}
	if currency != "USD" {
		t.Errorf("currency = %q, want the USD default", currency)
	}
	if normalized != 0 {
		t.Errorf("normalizedAmount = %v, want the 0 default", normalized)
	}

	var category sql.NullString
	var walletID sql.NullInt64
	err = db.QueryRow(ctx,
		`SELECT category, walletId FROM expenses WHERE note = 'old row'`,
	).Scan(&category, &walletID)
	if err != nil {
		t.Fatalf("read repaired expense: %v", err)
	}
	if walletID.Valid {
		t.Errorf("walletId = %v, want NULL for a pre-history row", walletID.Int64)
	}
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db := openTestDB(t)
		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("initialize: %v", err)
		}

		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO wallets (name, amount, normalizedAmount, currency) VALUES ('Cash', 100, 100, 'USD')`)
			return err
		})
		if err != nil {
			t.Fatalf("with tx: %v", err)
		}

		var n int
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&n); err != nil {
			t.Fatalf("count wallets: %v", err)
		}
		if n != 1 {
			t.Fatalf("got %d wallets, want 1", n)
		}
	})

	t.Run("rolls back every write on error", func(t *testing.T) {
		db := openTestDB(t)
		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("initialize: %v", err)
		}

		sentinel := errors.New("abort after write")
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO wallets (name, amount, normalizedAmount, currency) VALUES ('Doomed', 100, 100, 'USD')`); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected the sentinel error back, got %v", err)
		}

		var n int
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&n); err != nil {
			t.Fatalf("count wallets: %v", err)
		}
		if n != 0 {
			t.Fatalf("got %d wallets after rollback, want 0", n)
		}
	})

	t.Run("wraps commit-path failures as storage errors", func(t *testing.T) {
		db := openTestDB(t)
		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		db.Close()

		err := db.WithTx(ctx, func(tx *sql.Tx) error { return nil })
		var se *core.StorageError
		if !errors.As(err, &se) {
			t.Fatalf("expected *core.StorageError on a closed handle, got %v", err)
		}
	})
}
