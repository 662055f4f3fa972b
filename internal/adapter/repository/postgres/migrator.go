package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/api-sage/retail-banking-ledger/internal/logger"
)

// RunMigrations applies every .sql file under migrationsDir that is not
// yet recorded in schema_migrations. Files run in lexical order, each in
// its own transaction, so a failed migration leaves earlier ones applied
// and the failed one fully rolled back.
func RunMigrations(ctx context.Context, dsn, migrationsDir string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open postgres connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	if err := ensureVersionTable(ctx, db); err != nil {
		return err
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	files, err := migrationFiles(migrationsDir)
	if err != nil {
		return err
	}

	ran := 0
	for _, file := range files {
		if _, done := applied[file]; done {
			continue
		}

		if err := applyMigration(ctx, db, migrationsDir, file); err != nil {
			return err
		}

		logger.Info("migration applied", logger.Fields{"version": file})
		ran++
	}

	logger.Info("migrations up to date", logger.Fields{
		"applied": ran,
		"skipped": len(files) - ran,
	})

	return nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}

	return applied, nil
}

func migrationFiles(migrationsDir string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %q: %w", migrationsDir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}

	sort.Strings(files)
	return files, nil
}

func applyMigration(ctx context.Context, db *sql.DB, migrationsDir, file string) error {
	ddl, err := os.ReadFile(filepath.Join(migrationsDir, file))
	if err != nil {
		return fmt.Errorf("read migration %q: %w", file, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %q: %w", file, err)
	}

	if _, err := tx.ExecContext(ctx, string(ddl)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %q: %w", file, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, file); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %q: %w", file, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %q: %w", file, err)
	}

	return nil
}
