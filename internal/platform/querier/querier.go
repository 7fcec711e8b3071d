// Package querier is the narrow SQL surface the domain stores depend on.
// It is satisfied by a pgx pool in production and by database/sql over
// SQLite for local development and tests. Statements use $N placeholders.
package querier

import (
	"context"
	"errors"
)

// ErrNoRows is returned by Row.Scan when the query selected nothing.
var ErrNoRows = errors.New("no rows in result set")

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}

type Querier interface {
	// Exec returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// DB is a Querier that owns connections and can open transactions.
type DB interface {
	Querier
	InTx(ctx context.Context, fn func(q Querier) error) error
	Ping(ctx context.Context) error
	Dialect() string
	Close()
}
