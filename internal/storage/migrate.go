package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies all pending schema migrations. A database that is
// already at the latest version is a no-op.
func RunMigrations(dbPath string) error {
	// Separate connection so migrate's locking cannot interfere with the
	// main single-connection pool.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// wantedColumns lists, per table, the columns that pre-history databases may
// lack together with the additive statement that fills them in. Defaults keep
// existing rows valid. normalizedAmount is absent on purpose: the migration
// history owns that column.
var wantedColumns = map[string][]struct {
	name string
	ddl  string
}{
	"wallets": {
		{"currency", `ALTER TABLE wallets ADD COLUMN currency TEXT NOT NULL DEFAULT 'USD'`},
	},
	"expenses": {
		{"category", `ALTER TABLE expenses ADD COLUMN category TEXT DEFAULT 'General'`},
		{"currency", `ALTER TABLE expenses ADD COLUMN currency TEXT DEFAULT 'USD'`},
		{"walletId", `ALTER TABLE expenses ADD COLUMN walletId INTEGER REFERENCES wallets(id)`},
	},
}

// repairColumns additively adds columns missing from databases created before
// the migration history existed: their tables survive the CREATE TABLE IF NOT
// EXISTS bootstrap untouched, so the newer columns have to be patched in
// before migrations index them. Tables that do not exist yet are left to the
// migrations.
func repairColumns(ctx context.Context, db *sql.DB) error {
	for table, cols := range wantedColumns {
		existing, err := tableColumns(ctx, db, table)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			continue
		}
		for _, col := range cols {
			if existing[col.name] {
				continue
			}
			if _, err := db.ExecContext(ctx, col.ddl); err != nil {
				return fmt.Errorf("add column %s.%s: %w", table, col.name, err)
			}
		}
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info for %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
