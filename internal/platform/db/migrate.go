package db

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"pms/internal/platform/querier"
	"pms/migrations"
)

// Migrate applies every embedded migration for the database's dialect that
// has not been recorded in schema_migrations.
func Migrate(ctx context.Context, db querier.DB) error {
	if _, err := db.Exec(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	dir := db.Dialect()
	entries, err := fs.ReadDir(migrations.FS, dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(file, ".sql")
		applied, err := migrationApplied(ctx, db, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		sqlBytes, err := fs.ReadFile(migrations.FS, path.Join(dir, file))
		if err != nil {
			return err
		}

		err = db.InTx(ctx, func(q querier.Querier) error {
			for _, stmt := range splitStatements(string(sqlBytes)) {
				if _, err := q.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("migration %s failed: %w", version, err)
				}
			}
			_, err := q.Exec(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)", version, time.Now().UTC())
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func migrationApplied(ctx context.Context, q querier.Querier, version string) (bool, error) {
	var count int
	err := q.QueryRow(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = $1", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// splitStatements breaks a migration file on statement-terminating semicolons.
// Migrations must not contain semicolons inside literals or bodies.
func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
