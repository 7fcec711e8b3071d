package querier

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxQuerier struct {
	conn pgxConn
}

func (q pgxQuerier) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := q.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q pgxQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (q pgxQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgxRow{row: q.conn.QueryRow(ctx, sql, args...)}
}

type pgxRow struct {
	row pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return err
	}
	return nil
}

// Pgx adapts a pgx pool.
type Pgx struct {
	pgxQuerier
	pool *pgxpool.Pool
}

func NewPgx(pool *pgxpool.Pool) *Pgx {
	return &Pgx{pgxQuerier: pgxQuerier{conn: pool}, pool: pool}
}

func (p *Pgx) Pool() *pgxpool.Pool { return p.pool }

func (p *Pgx) Dialect() string { return DialectPostgres }

func (p *Pgx) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Pgx) Close() { p.pool.Close() }

func (p *Pgx) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(pgxQuerier{conn: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
