package sequences

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists sequence counters.
type Repository interface {
	// Next performs the atomic conditional increment for the document type.
	// The reset decision and the increment happen inside one statement so
	// concurrent callers can never observe the same sequence value.
	Next(ctx context.Context, documentType string, year, month int) (Allocation, error)
	Upsert(ctx context.Context, c Counter) error
	Get(ctx context.Context, documentType string) (Counter, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Next(ctx context.Context, documentType string, year, month int) (Allocation, error) {
	var alloc Allocation
	err := r.db.QueryRow(ctx, `UPDATE sequence_counters SET
	last_sequence = CASE
		WHEN reset_policy = 'YEARLY' AND last_reset_year <> $2 THEN 1
		WHEN reset_policy = 'MONTHLY' AND (last_reset_year <> $2 OR last_reset_month <> $3) THEN 1
		ELSE last_sequence + 1
	END,
	last_reset_year = CASE WHEN reset_policy IN ('YEARLY','MONTHLY') THEN $2 ELSE last_reset_year END,
	last_reset_month = CASE WHEN reset_policy = 'MONTHLY' THEN $3 ELSE last_reset_month END,
	updated_at = NOW()
WHERE document_type = $1
RETURNING last_sequence, format, prefix, padding`, documentType, year, month).
		Scan(&alloc.Sequence, &alloc.Format, &alloc.Prefix, &alloc.Padding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Allocation{}, ErrCounterNotConfigured
		}
		return Allocation{}, err
	}
	return alloc, nil
}

func (r *repository) Upsert(ctx context.Context, c Counter) error {
	_, err := r.db.Exec(ctx, `INSERT INTO sequence_counters (document_type, format, prefix, padding, reset_policy, last_sequence, last_reset_year, last_reset_month)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (document_type) DO UPDATE SET format = EXCLUDED.format, prefix = EXCLUDED.prefix,
	padding = EXCLUDED.padding, reset_policy = EXCLUDED.reset_policy, updated_at = NOW()`,
		c.DocumentType, c.Format, c.Prefix, c.Padding, c.ResetPolicy, c.LastSequence, c.LastResetYear, c.LastResetMonth)
	return err
}

func (r *repository) Get(ctx context.Context, documentType string) (Counter, error) {
	var c Counter
	err := r.db.QueryRow(ctx, `SELECT document_type, format, prefix, padding, reset_policy, last_sequence, last_reset_year, last_reset_month, created_at, updated_at
FROM sequence_counters WHERE document_type = $1`, documentType).
		Scan(&c.DocumentType, &c.Format, &c.Prefix, &c.Padding, &c.ResetPolicy, &c.LastSequence, &c.LastResetYear, &c.LastResetMonth, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Counter{}, ErrCounterNotConfigured
		}
		return Counter{}, err
	}
	return c, nil
}
