package locker

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifeline/internal/emergency/models"
	txcontext "lifeline/pkg/platform/tx"
)

// AdvisoryLocker opens a transaction, takes a transaction-scoped advisory
// lock keyed by the profile, and runs fn with the transaction in context.
// Stores that join the context transaction commit together with it, so the
// audit entry is durable before the decision is returned.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewAdvisory(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

func (l *AdvisoryLocker) WithProfileLock(ctx context.Context, profileID models.ProfileID, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, profileID.String(),
		); err != nil {
			return err
		}
		return fn(txcontext.WithTx(ctx, tx))
	})
}
