// Package tx carries a pgx transaction through a context so stores can join a
// unit of work opened by a caller (for example the per-profile verification lock).
package tx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ctxKey struct{}

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx stores a transaction in context for downstream store usage.
func WithTx(ctx context.Context, t pgx.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// From extracts a transaction from context if present.
func From(ctx context.Context) (pgx.Tx, bool) {
	t, ok := ctx.Value(ctxKey{}).(pgx.Tx)
	return t, ok
}

// Executor returns the transaction in ctx, or fallback when there is none.
func Executor(ctx context.Context, fallback DBTX) DBTX {
	if t, ok := From(ctx); ok {
		return t
	}
	return fallback
}
