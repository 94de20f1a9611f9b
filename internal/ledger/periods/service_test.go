package periods

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRepo struct {
	periods []Period
	nextID  int64
}

func (r *stubRepo) InsertGuarded(ctx context.Context, year int, start, end time.Time) (Period, error) {
	for _, existing := range r.periods {
		if year == existing.Year {
			return Period{}, ErrYearExists
		}
		if !existing.StartDate.After(end) && !existing.EndDate.Before(start) {
			return Period{}, ErrPeriodOverlap
		}
	}
	r.nextID++
	p := Period{ID: r.nextID, Year: year, StartDate: start, EndDate: end, Status: StatusOpen}
	r.periods = append(r.periods, p)
	return p, nil
}

func (r *stubRepo) FindByDate(ctx context.Context, date time.Time) (Period, error) {
	for _, p := range r.periods {
		if p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, ErrNoPeriodForDate
}

func (r *stubRepo) GetByID(ctx context.Context, id int64) (Period, error) {
	for _, p := range r.periods {
		if p.ID == id {
			return p, nil
		}
	}
	return Period{}, ErrPeriodNotFound
}

func (r *stubRepo) List(ctx context.Context) ([]Period, error) { return r.periods, nil }

func (r *stubRepo) Close(ctx context.Context, id, actorID int64) (Period, error) {
	for i, p := range r.periods {
		if p.ID != id {
			continue
		}
		if p.Status == StatusClosed {
			return Period{}, ErrPeriodAlreadyClosed
		}
		now := time.Now()
		r.periods[i].Status = StatusClosed
		r.periods[i].ClosedBy = &actorID
		r.periods[i].ClosedAt = &now
		return r.periods[i], nil
	}
	return Period{}, ErrPeriodNotFound
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateRejectsInvertedRange(t *testing.T) {
	service := NewService(&stubRepo{})
	if _, err := service.Create(context.Background(), 2025, date(2025, 12, 31), date(2025, 1, 1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := service.Create(context.Background(), 2025, date(2025, 1, 1), date(2025, 1, 1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("equal bounds must fail, got %v", err)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)
	if _, err := service.Create(context.Background(), 2025, date(2025, 1, 1), date(2025, 12, 31)); err != nil {
		t.Fatalf("first period: %v", err)
	}
	// Range sharing a single day with the existing period must conflict.
	if _, err := service.Create(context.Background(), 2026, date(2025, 12, 31), date(2026, 12, 31)); !errors.Is(err, ErrPeriodOverlap) {
		t.Fatalf("expected ErrPeriodOverlap, got %v", err)
	}
	if _, err := service.Create(context.Background(), 2026, date(2026, 1, 1), date(2026, 12, 31)); err != nil {
		t.Fatalf("adjacent period must succeed: %v", err)
	}
}

func TestInsertErrorMapping(t *testing.T) {
	// Two concurrent creations can both pass the NOT EXISTS pre-check; the
	// loser then hits a schema constraint, which must surface as the same
	// domain error a sequential conflict produces.
	if got := mapInsertError(&pgconn.PgError{Code: "23P01"}); !errors.Is(got, ErrPeriodOverlap) {
		t.Fatalf("exclusion violation: expected ErrPeriodOverlap, got %v", got)
	}
	if got := mapInsertError(&pgconn.PgError{Code: "23505"}); !errors.Is(got, ErrYearExists) {
		t.Fatalf("unique violation: expected ErrYearExists, got %v", got)
	}
	if got := mapInsertError(pgx.ErrNoRows); !errors.Is(got, ErrPeriodOverlap) {
		t.Fatalf("zero rows: expected ErrPeriodOverlap, got %v", got)
	}
	other := errors.New("connection reset")
	if got := mapInsertError(other); !errors.Is(got, other) {
		t.Fatalf("unrelated error must pass through, got %v", got)
	}
}

func TestResolveForDate(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)
	created, err := service.Create(context.Background(), 2025, date(2025, 1, 1), date(2025, 12, 31))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := service.ResolveForDate(context.Background(), date(2025, 6, 15))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("resolved wrong period: %+v", got)
	}
	if _, err := service.ResolveForDate(context.Background(), date(2026, 1, 5)); !errors.Is(err, ErrNoPeriodForDate) {
		t.Fatalf("expected ErrNoPeriodForDate, got %v", err)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)
	p, err := service.Create(context.Background(), 2025, date(2025, 1, 1), date(2025, 12, 31))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	closed, err := service.Close(context.Background(), p.ID, 7)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != StatusClosed || closed.ClosedBy == nil || *closed.ClosedBy != 7 {
		t.Fatalf("close metadata missing: %+v", closed)
	}
	if _, err := service.Close(context.Background(), p.ID, 7); !errors.Is(err, ErrPeriodAlreadyClosed) {
		t.Fatalf("expected ErrPeriodAlreadyClosed, got %v", err)
	}
	if err := service.AssertOpenForPosting(closed); !errors.Is(err, ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}
