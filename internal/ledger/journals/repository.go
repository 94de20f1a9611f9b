package journals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists journal reference data.
type Repository interface {
	List(ctx context.Context) ([]Journal, error)
	GetByID(ctx context.Context, id int64) (Journal, error)
	GetByCode(ctx context.Context, code string) (Journal, error)
	Insert(ctx context.Context, j Journal) (Journal, error)
	Update(ctx context.Context, j Journal) (Journal, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const journalColumns = `id, code, libelle, type, counterpart_numero, created_at, updated_at`

func scanJournal(row pgx.Row) (Journal, error) {
	var j Journal
	err := row.Scan(&j.ID, &j.Code, &j.Libelle, &j.Type, &j.CounterpartNumero, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

func (r *repository) List(ctx context.Context) ([]Journal, error) {
	rows, err := r.db.Query(ctx, `SELECT `+journalColumns+` FROM journals ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var journals []Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id int64) (Journal, error) {
	j, err := scanJournal(r.db.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, ErrJournalNotFound
		}
		return Journal{}, err
	}
	return j, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Journal, error) {
	j, err := scanJournal(r.db.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, ErrJournalNotFound
		}
		return Journal{}, err
	}
	return j, nil
}

func (r *repository) Insert(ctx context.Context, j Journal) (Journal, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO journals (code, libelle, type, counterpart_numero)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, j.Code, j.Libelle, j.Type, j.CounterpartNumero)
	if err := row.Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Journal{}, ErrCodeTaken
		}
		return Journal{}, err
	}
	return j, nil
}

func (r *repository) Update(ctx context.Context, j Journal) (Journal, error) {
	row := r.db.QueryRow(ctx, `UPDATE journals SET libelle=$2, type=$3, counterpart_numero=$4, updated_at=NOW()
WHERE id=$1 RETURNING `+journalColumns, j.ID, j.Libelle, j.Type, j.CounterpartNumero)
	updated, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, ErrJournalNotFound
		}
		return Journal{}, err
	}
	return updated, nil
}
