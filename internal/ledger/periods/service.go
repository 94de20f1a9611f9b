package periods

import (
	"context"
	"errors"
	"time"
)

// Service owns the fiscal-period lifecycle: Open -> Closed, terminal.
type Service struct {
	repo Repository
}

// NewService constructs the periods service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new period after validating the range. The overlap guard
// runs atomically with the insert at the repository level.
func (s *Service) Create(ctx context.Context, year int, start, end time.Time) (Period, error) {
	if year <= 0 {
		return Period{}, errors.New("periods: year required")
	}
	if !start.Before(end) {
		return Period{}, ErrInvalidRange
	}
	return s.repo.InsertGuarded(ctx, year, start, end)
}

// ResolveForDate returns the unique period covering the date.
func (s *Service) ResolveForDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindByDate(ctx, date)
}

// Get returns a period by id.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all periods, newest first.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// AssertOpenForPosting fails when the period no longer accepts postings.
func (s *Service) AssertOpenForPosting(p Period) error {
	if p.Status == StatusClosed {
		return ErrPeriodClosed
	}
	return nil
}

// Close transitions the period to CLOSED, recording actor and timestamp.
// Closing an already-closed period returns ErrPeriodAlreadyClosed.
func (s *Service) Close(ctx context.Context, id, actorID int64) (Period, error) {
	if actorID == 0 {
		return Period{}, errors.New("periods: actor required")
	}
	return s.repo.Close(ctx, id, actorID)
}
