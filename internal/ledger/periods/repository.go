package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists fiscal periods.
type Repository interface {
	// InsertGuarded inserts the period only when no existing range intersects
	// [start, end]. The NOT EXISTS pre-check is a fast path; the schema's
	// range-exclusion and year-unique constraints are what hold under
	// concurrent creations, surfacing as ErrPeriodOverlap and ErrYearExists.
	InsertGuarded(ctx context.Context, year int, start, end time.Time) (Period, error)
	FindByDate(ctx context.Context, date time.Time) (Period, error)
	GetByID(ctx context.Context, id int64) (Period, error)
	List(ctx context.Context) ([]Period, error)
	Close(ctx context.Context, id, actorID int64) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, year, start_date, end_date, status, closed_by, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Year, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) InsertGuarded(ctx context.Context, year int, start, end time.Time) (Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fiscal_periods (year, start_date, end_date, status)
SELECT $1, $2, $3, 'OPEN'
WHERE NOT EXISTS (
	SELECT 1 FROM fiscal_periods WHERE start_date <= $3 AND end_date >= $2
)
RETURNING `+periodColumns, year, start, end)
	p, err := scanPeriod(row)
	if err != nil {
		return Period{}, mapInsertError(err)
	}
	return p, nil
}

// mapInsertError translates insert failures into domain errors. Zero rows
// means the pre-check saw an intersecting range; 23P01 is the gist exclusion
// constraint catching an overlap the pre-check raced past; 23505 is the
// unique year index.
func mapInsertError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPeriodOverlap
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01":
			return ErrPeriodOverlap
		case "23505":
			return ErrYearExists
		}
	}
	return err
}

func (r *repository) FindByDate(ctx context.Context, date time.Time) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNoPeriodForDate
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Close(ctx context.Context, id, actorID int64) (Period, error) {
	row := r.db.QueryRow(ctx, `UPDATE fiscal_periods SET status='CLOSED', closed_by=$2, closed_at=NOW(), updated_at=NOW()
WHERE id=$1 AND status='OPEN' RETURNING `+periodColumns, id, actorID)
	p, err := scanPeriod(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Period{}, err
	}
	// Zero rows: distinguish missing from already closed.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return Period{}, getErr
	}
	if existing.Status == StatusClosed {
		return Period{}, ErrPeriodAlreadyClosed
	}
	return Period{}, err
}
