package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifeline/internal/emergency/models"
	"lifeline/pkg/platform/sentinel"
	txcontext "lifeline/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists profiles as a row of JSONB sections plus a digest
// index table for QR and NFC lookups. It joins a transaction carried in the
// context when present.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const profileColumns = `id, patient_id, is_active, version, default_access_level, methods,
	location_restriction, time_restriction, alerts, scenarios, security, notifications,
	patient, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.EmergencyAccessProfile) error {
	row, err := encodeRow(p)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO emergency_profiles (`+profileColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			row.args()...,
		)
		if err != nil {
			return mapWriteErr("insert profile", err)
		}
		return writeDigests(ctx, tx, p)
	})
}

func (s *PostgresStore) Get(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error) {
	db := txcontext.Executor(ctx, s.pool)
	row := db.QueryRow(ctx, `SELECT `+profileColumns+` FROM emergency_profiles WHERE id = $1`, uuid.UUID(id))
	return scanProfile(row)
}

func (s *PostgresStore) GetActiveByPatient(ctx context.Context, patientID models.PatientID) (*models.EmergencyAccessProfile, error) {
	db := txcontext.Executor(ctx, s.pool)
	row := db.QueryRow(ctx, `SELECT `+profileColumns+` FROM emergency_profiles
		WHERE patient_id = $1 AND is_active`, uuid.UUID(patientID))
	return scanProfile(row)
}

func (s *PostgresStore) Save(ctx context.Context, p *models.EmergencyAccessProfile) error {
	row, err := encodeRow(p)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE emergency_profiles SET
				patient_id = $2, is_active = $3, version = $4, default_access_level = $5,
				methods = $6, location_restriction = $7, time_restriction = $8, alerts = $9,
				scenarios = $10, security = $11, notifications = $12, patient = $13,
				created_at = $14, updated_at = $15
			WHERE id = $1`,
			row.args()...,
		)
		if err != nil {
			return mapWriteErr("update profile", err)
		}
		if tag.RowsAffected() == 0 {
			return sentinel.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM emergency_method_digests WHERE profile_id = $1`, uuid.UUID(p.ID)); err != nil {
			return fmt.Errorf("clear digests: %w", err)
		}
		return writeDigests(ctx, tx, p)
	})
}

func (s *PostgresStore) FindByDigest(ctx context.Context, kind models.MethodKind, digest string) (models.ProfileID, error) {
	db := txcontext.Executor(ctx, s.pool)
	var id uuid.UUID
	err := db.QueryRow(ctx,
		`SELECT profile_id FROM emergency_method_digests WHERE kind = $1 AND digest = $2`,
		string(kind), digest,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ProfileID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.ProfileID{}, fmt.Errorf("find profile by digest: %w", err)
	}
	return models.ProfileID(id), nil
}

// withTx runs fn in the context transaction (as a savepoint) or a new one.
func (s *PostgresStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if t, ok := txcontext.From(ctx); ok {
		return pgx.BeginFunc(ctx, t, fn)
	}
	return pgx.BeginFunc(ctx, s.pool, fn)
}

func writeDigests(ctx context.Context, tx pgx.Tx, p *models.EmergencyAccessProfile) error {
	for _, kind := range models.AllMethodKinds {
		m, ok := p.Methods[kind]
		if !ok {
			continue
		}
		tm, ok := m.(models.TokenMethod)
		if !ok || tm.LookupDigest() == "" {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO emergency_method_digests (kind, digest, profile_id) VALUES ($1, $2, $3)`,
			string(kind), tm.LookupDigest(), uuid.UUID(p.ID),
		); err != nil {
			return mapWriteErr("index digest", err)
		}
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type profileRow struct {
	p                                                *models.EmergencyAccessProfile
	methods, location, timeR, alerts, scenarios, sec []byte
	notifications, patient                           []byte
}

func encodeRow(p *models.EmergencyAccessProfile) (*profileRow, error) {
	r := &profileRow{p: p}
	var err error
	if r.methods, err = models.MarshalMethods(p.Methods); err != nil {
		return nil, err
	}
	sections := []struct {
		dst *[]byte
		v   any
	}{
		{&r.location, p.Location},
		{&r.timeR, p.Time},
		{&r.alerts, p.Alerts},
		{&r.scenarios, p.Scenarios},
		{&r.sec, p.Security},
		{&r.notifications, p.Notifications},
		{&r.patient, p.Patient},
	}
	for _, sec := range sections {
		if *sec.dst, err = json.Marshal(sec.v); err != nil {
			return nil, fmt.Errorf("encode profile: %w", err)
		}
	}
	return r, nil
}

func (r *profileRow) args() []any {
	p := r.p
	return []any{
		uuid.UUID(p.ID), uuid.UUID(p.PatientID), p.IsActive, p.Version, string(p.DefaultAccessLevel),
		r.methods, r.location, r.timeR, r.alerts, r.scenarios, r.sec, r.notifications, r.patient,
		p.CreatedAt, p.UpdatedAt,
	}
}

func scanProfile(row pgx.Row) (*models.EmergencyAccessProfile, error) {
	var (
		p                                                models.EmergencyAccessProfile
		id, patientID                                    uuid.UUID
		level                                            string
		methods, location, timeR, alerts, scenarios, sec []byte
		notifications, patient                           []byte
	)
	err := row.Scan(&id, &patientID, &p.IsActive, &p.Version, &level, &methods,
		&location, &timeR, &alerts, &scenarios, &sec, &notifications, &patient,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.ID = models.ProfileID(id)
	p.PatientID = models.PatientID(patientID)
	p.DefaultAccessLevel = models.AccessLevel(level)
	if p.Methods, err = models.UnmarshalMethods(methods); err != nil {
		return nil, err
	}
	sections := []struct {
		src []byte
		dst any
	}{
		{location, &p.Location},
		{timeR, &p.Time},
		{alerts, &p.Alerts},
		{scenarios, &p.Scenarios},
		{sec, &p.Security},
		{notifications, &p.Notifications},
		{patient, &p.Patient},
	}
	for _, sec := range sections {
		if err := json.Unmarshal(sec.src, sec.dst); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &p, nil
}
