package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
	"github.com/gescom-erp/gescom-erp/internal/platform/db"
)

// Repository persists ledger entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a posting transaction.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error)
	InsertEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]LedgerLine, error)
	GetEntryForUpdate(ctx context.Context, entryID int64) (LedgerEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]LedgerLine, error)
	MarkValidated(ctx context.Context, entryID, validatorID int64) error
	UpdateEntryHeader(ctx context.Context, entry LedgerEntry) error
	DeleteLines(ctx context.Context, entryID int64) error
	DeleteEntry(ctx context.Context, entryID int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const entryColumns = `id, piece_number, period_id, journal_id, date, libelle, total_debit, total_credit, status, source_kind, source_id, created_by, validated_by, created_at, updated_at`

func scanEntry(row pgx.Row) (LedgerEntry, error) {
	var e LedgerEntry
	var sourceKind *string
	var sourceID *string
	err := row.Scan(&e.ID, &e.PieceNumber, &e.PeriodID, &e.JournalID, &e.Date, &e.Libelle,
		&e.TotalDebit, &e.TotalCredit, &e.Status, &sourceKind, &sourceID,
		&e.CreatedBy, &e.ValidatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return LedgerEntry{}, err
	}
	if src, ok := parseSource(sourceKind, sourceID); ok {
		e.Source = &src
	}
	return e, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, year, start_date, end_date, status, closed_by, closed_at, created_at, updated_at
FROM fiscal_periods WHERE id=$1 FOR UPDATE`, periodID).
		Scan(&p.ID, &p.Year, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, periods.ErrPeriodNotFound
		}
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	var sourceKind, sourceID any
	if entry.Source != nil {
		sourceKind = string(entry.Source.Kind)
		sourceID = entry.Source.ID.String()
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (piece_number, period_id, journal_id, date, libelle, total_debit, total_credit, status, source_kind, source_id, created_by, validated_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		entry.PieceNumber, entry.PeriodID, entry.JournalID, entry.Date, entry.Libelle,
		toNumeric(entry.TotalDebit), toNumeric(entry.TotalCredit), entry.Status,
		sourceKind, sourceID, entry.CreatedBy, entry.ValidatedBy)
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return LedgerEntry{}, ErrDuplicatePiece
		}
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]LedgerLine, error) {
	out := make([]LedgerLine, 0, len(lines))
	for _, line := range lines {
		var id int64
		err := r.tx.QueryRow(ctx, `INSERT INTO ledger_lines (entry_id, account_numero, libelle, debit, credit)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			entryID, line.AccountNumero, line.Libelle, toNumeric(line.Debit), toNumeric(line.Credit)).Scan(&id)
		if err != nil {
			return nil, err
		}
		out = append(out, LedgerLine{
			ID:            id,
			EntryID:       entryID,
			AccountNumero: line.AccountNumero,
			Libelle:       line.Libelle,
			Debit:         line.Debit,
			Credit:        line.Credit,
		})
	}
	return out, nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, entryID int64) (LedgerEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id=$1 FOR UPDATE`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrEntryNotFound
		}
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]LedgerLine, error) {
	return queryLines(ctx, r.tx, entryID)
}

func (r *txRepository) MarkValidated(ctx context.Context, entryID, validatorID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET status='VALIDATED', validated_by=$2, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, entryID, validatorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyValidated
	}
	return nil
}

func (r *txRepository) UpdateEntryHeader(ctx context.Context, entry LedgerEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET period_id=$2, date=$3, libelle=$4, total_debit=$5, total_credit=$6, updated_at=NOW()
WHERE id=$1`, entry.ID, entry.PeriodID, entry.Date, entry.Libelle, toNumeric(entry.TotalDebit), toNumeric(entry.TotalCredit))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ledger_lines WHERE entry_id=$1`, entryID)
	return err
}

func (r *txRepository) DeleteEntry(ctx context.Context, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ledger_entries WHERE id=$1`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, entryID int64) ([]LedgerLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_numero, libelle, debit, credit
FROM ledger_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []LedgerLine
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountNumero, &line.Libelle, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// GetEntry loads an entry with its lines outside any transaction.
func (r *Repository) GetEntry(ctx context.Context, entryID int64) (LedgerEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrEntryNotFound
		}
		return LedgerEntry{}, err
	}
	lines, err := queryLines(ctx, r.pool, entryID)
	if err != nil {
		return LedgerEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// ListEntries returns entries for a period, newest first, without lines.
func (r *Repository) ListEntries(ctx context.Context, periodID int64, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE ($1 = 0 OR period_id = $1) ORDER BY date DESC, id DESC LIMIT $2 OFFSET $3`, periodID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func parseSource(kind, id *string) (SourceRef, bool) {
	if kind == nil || id == nil {
		return SourceRef{}, false
	}
	parsed, err := uuid.Parse(*id)
	if err != nil {
		return SourceRef{}, false
	}
	return SourceRef{Kind: SourceKind(*kind), ID: parsed}, true
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
