package periods

import (
	"errors"
	"time"
)

// Status enumerates period lifecycle states. CLOSED is terminal.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Period is a fiscal year window. Ranges never overlap across rows.
type Period struct {
	ID        int64
	Year      int
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	ClosedBy  *int64
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether date falls inside the period bounds (inclusive).
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

var (
	// ErrNoPeriodForDate indicates no period covers the supplied date.
	ErrNoPeriodForDate = errors.New("periods: no fiscal period covers date")
	// ErrPeriodNotFound indicates a missing period row.
	ErrPeriodNotFound = errors.New("periods: period not found")
	// ErrPeriodClosed indicates the target period no longer accepts postings.
	ErrPeriodClosed = errors.New("periods: period is closed")
	// ErrPeriodAlreadyClosed indicates a second close attempt.
	ErrPeriodAlreadyClosed = errors.New("periods: period already closed")
	// ErrPeriodOverlap indicates the range intersects an existing period.
	ErrPeriodOverlap = errors.New("periods: range overlaps an existing period")
	// ErrYearExists indicates a period already exists for the year.
	ErrYearExists = errors.New("periods: year already has a period")
	// ErrInvalidRange indicates start >= end.
	ErrInvalidRange = errors.New("periods: start date must precede end date")
)
