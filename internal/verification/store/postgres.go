package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"carebridge/internal/verification/models"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/sentinel"
	txcontext "carebridge/pkg/platform/tx"
)

// PostgreSQL error class 23 check_violation.
const pgCheckViolation = "23514"

const recordColumns = `id, first_name, last_name, email, license_number, license_state, created_at,
	license_verified, background_check_status, account_status, verification_notes`

// PostgresStore persists records in the therapists table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx starts a transaction that Execute and the audit outbox both join.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Record) error {
	if err := r.CheckInvariants(); err != nil {
		return err
	}
	res, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO therapists (`+recordColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`,
		r.ID.String(), r.FirstName, r.LastName, r.Email, r.LicenseNumber, r.LicenseState, r.CreatedAt,
		r.LicenseVerified, string(r.BackgroundCheckStatus), string(r.AccountStatus), r.VerificationNotes,
		s.now(),
	)
	if err != nil {
		return translateErr("insert therapist", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert therapist: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, therapistID id.TherapistID) (*models.Record, error) {
	row := s.querier(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM therapists WHERE id = $1`, therapistID.String())
	return scanRecord(row)
}

// List returns records newest first. With no statuses every record is returned.
func (s *PostgresStore) List(ctx context.Context, statuses ...models.AccountStatus) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM therapists`
	var args []any
	if len(statuses) > 0 {
		raw := make([]string, len(statuses))
		for i, st := range statuses {
			raw[i] = string(st)
		}
		query += ` WHERE account_status = ANY($1::text[])`
		args = append(args, pq.Array(raw))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate therapists: %w", err)
	}
	return out, nil
}

// Execute locks the row with SELECT ... FOR UPDATE for the duration of
// validate, mutate and the write. It joins a transaction already on ctx.
func (s *PostgresStore) Execute(ctx context.Context, therapistID id.TherapistID, validate ValidateFunc, mutate MutateFunc) (*models.Record, error) {
	var next *models.Record
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		q := s.querier(ctx)
		current, err := scanRecord(q.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM therapists WHERE id = $1 FOR UPDATE`, therapistID.String()))
		if err != nil {
			return err
		}
		if err := validate(current.Clone()); err != nil {
			return err
		}
		next = current.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		if err := models.CheckTransition(current, next); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			UPDATE therapists
			SET license_verified = $2,
			    background_check_status = $3,
			    account_status = $4,
			    verification_notes = $5,
			    updated_at = $6
			WHERE id = $1
		`,
			therapistID.String(), next.LicenseVerified, string(next.BackgroundCheckStatus),
			string(next.AccountStatus), next.VerificationNotes, s.now(),
		)
		if err != nil {
			return translateErr("update therapist", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r          models.Record
		rawID      string
		background string
		account    string
	)
	err := row.Scan(&rawID, &r.FirstName, &r.LastName, &r.Email, &r.LicenseNumber, &r.LicenseState,
		&r.CreatedAt, &r.LicenseVerified, &background, &account, &r.VerificationNotes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan therapist: %w", err)
	}
	therapistID, err := id.ParseTherapistID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan therapist id: %w", err)
	}
	r.ID = therapistID
	r.BackgroundCheckStatus = models.BackgroundCheckStatus(background)
	r.AccountStatus = models.AccountStatus(account)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// translateErr maps check constraint violations to invariant violations so a
// record that slipped past CheckTransition is still refused.
func translateErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, fmt.Sprintf("%s: %s", op, pgErr.ConstraintName))
	}
	return fmt.Errorf("%s: %w", op, err)
}
