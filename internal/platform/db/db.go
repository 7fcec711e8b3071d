package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"pms/internal/platform/config"
	"pms/internal/platform/querier"
)

// Open connects to the database named by cfg.DatabaseURL: a Postgres URL or
// "sqlite:<path>".
func Open(ctx context.Context, cfg config.Config) (querier.DB, error) {
	if path, ok := cfg.SQLitePath(); ok {
		sqlDB, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return querier.NewSQL(sqlDB), nil
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return querier.NewPgx(pool), nil
}

func Connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// OpenSQLite opens (creating when needed) a SQLite database with foreign keys
// enforced. ":memory:" yields a private in-memory database; the pool is held
// to one connection so every statement sees the same database.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}
	return sqlDB, nil
}
