package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifeline/internal/emergency/models"
	txcontext "lifeline/pkg/platform/tx"
)

// PostgresStore appends attempts to access_attempts. The table rejects
// UPDATE and DELETE at the database level. Writes join the transaction
// carried in the context so the audit entry commits with the decision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, a *models.AccessAttempt) error {
	db := txcontext.Executor(ctx, s.pool)

	var lat, lon *float64
	if loc := a.Context.Location; loc != nil {
		lat, lon = &loc.Lat, &loc.Lon
	}
	fields := a.DisclosedFields
	if fields == nil {
		fields = []string{}
	}

	err := db.QueryRow(ctx, `
		INSERT INTO access_attempts (
			id, profile_id, method_kind, outcome, reason, access_level, scenario,
			occurred_at, lat, lon, caller_ip, user_agent, device, locked_until, disclosed_fields
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING seq`,
		uuid.UUID(a.ID), uuid.UUID(a.ProfileID), string(a.MethodKind), string(a.Outcome),
		string(a.Reason), string(a.AccessLevel), string(a.Scenario), a.Context.Timestamp,
		lat, lon, a.Context.CallerIP, a.Context.UserAgent, a.Context.Device,
		a.LockedUntil, fields,
	).Scan(&a.Sequence)
	if err != nil {
		return fmt.Errorf("append access attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountBetween(ctx context.Context, profileID models.ProfileID, from, to time.Time) (int, error) {
	db := txcontext.Executor(ctx, s.pool)
	var n int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM access_attempts
		WHERE profile_id = $1 AND occurred_at >= $2 AND occurred_at <= $3`,
		uuid.UUID(profileID), from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountFailuresBetween(ctx context.Context, profileID models.ProfileID, from, to time.Time) (int, error) {
	db := txcontext.Executor(ctx, s.pool)
	var n int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM access_attempts
		WHERE profile_id = $1 AND reason = $2 AND occurred_at >= $3 AND occurred_at <= $4`,
		uuid.UUID(profileID), string(models.ReasonInvalidCredential), from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failures: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) LastLock(ctx context.Context, profileID models.ProfileID) (*time.Time, error) {
	db := txcontext.Executor(ctx, s.pool)
	var until *time.Time
	err := db.QueryRow(ctx, `
		SELECT MAX(locked_until) FROM access_attempts
		WHERE profile_id = $1 AND locked_until IS NOT NULL`,
		uuid.UUID(profileID),
	).Scan(&until)
	if err != nil {
		return nil, fmt.Errorf("last lock: %w", err)
	}
	return until, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, profileID models.ProfileID, offset, limit int) ([]models.AccessAttempt, int, error) {
	db := txcontext.Executor(ctx, s.pool)

	var total int
	if err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM access_attempts WHERE profile_id = $1`, uuid.UUID(profileID),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT id, seq, profile_id, method_kind, outcome, reason, access_level, scenario,
			occurred_at, lat, lon, caller_ip, user_agent, device, locked_until, disclosed_fields
		FROM access_attempts
		WHERE profile_id = $1
		ORDER BY occurred_at DESC, seq DESC
		OFFSET $2 LIMIT $3`,
		uuid.UUID(profileID), offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, 0, fmt.Errorf("scan history: %w", err)
	}
	return attempts, total, nil
}

func scanAttempt(row pgx.CollectableRow) (models.AccessAttempt, error) {
	var (
		a                                      models.AccessAttempt
		id, profileID                          uuid.UUID
		kind, outcome, reason, level, scenario string
		lat, lon                               *float64
	)
	err := row.Scan(&id, &a.Sequence, &profileID, &kind, &outcome, &reason, &level, &scenario,
		&a.Context.Timestamp, &lat, &lon, &a.Context.CallerIP, &a.Context.UserAgent, &a.Context.Device,
		&a.LockedUntil, &a.DisclosedFields)
	if err != nil {
		return a, err
	}
	a.ID = models.AttemptID(id)
	a.ProfileID = models.ProfileID(profileID)
	a.MethodKind = models.MethodKind(kind)
	a.Outcome = models.Outcome(outcome)
	a.Reason = models.DenialReason(reason)
	a.AccessLevel = models.AccessLevel(level)
	a.Scenario = models.ScenarioType(scenario)
	if lat != nil && lon != nil {
		a.Context.Location = &models.Coordinates{Lat: *lat, Lon: *lon}
	}
	return a, nil
}
