package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
)

// pieceDocumentType is the counter key for manually numbered entries.
const pieceDocumentType = "ecriture_comptable"

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, entryID int64) (LedgerEntry, error)
	ListEntries(ctx context.Context, periodID int64, limit, offset int) ([]LedgerEntry, error)
}

// PeriodResolver locates the fiscal period covering a posting date.
type PeriodResolver interface {
	ResolveForDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// NumberAllocator issues unique piece numbers.
type NumberAllocator interface {
	Allocate(ctx context.Context, documentType string) (string, error)
}

// JournalResolver checks the target journal exists.
type JournalResolver interface {
	Exists(ctx context.Context, journalID int64) error
}

// Service validates and persists ledger entries. All mutations re-check
// period openness inside the same transaction as the write so a concurrent
// close can never race a posting.
type Service struct {
	repo      RepositoryPort
	periods   PeriodResolver
	allocator NumberAllocator
	journals  JournalResolver
	now       func() time.Time
}

// NewService constructs the posting service.
func NewService(repo RepositoryPort, periodsvc PeriodResolver, allocator NumberAllocator, journals JournalResolver) *Service {
	return &Service{repo: repo, periods: periodsvc, allocator: allocator, journals: journals, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateEntry validates and persists a new entry. Validation runs before the
// piece number is allocated, so a rejected entry consumes no number.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (LedgerEntry, error) {
	if err := input.validate(); err != nil {
		return LedgerEntry{}, err
	}
	if s.journals != nil {
		if err := s.journals.Exists(ctx, input.JournalID); err != nil {
			return LedgerEntry{}, err
		}
	}
	period, err := s.periods.ResolveForDate(ctx, input.Date)
	if err != nil {
		return LedgerEntry{}, err
	}
	if period.Status == periods.StatusClosed {
		return LedgerEntry{}, periods.ErrPeriodClosed
	}

	debit, credit := Totals(input.Lines)
	var entry LedgerEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetPeriodForUpdate(ctx, period.ID)
		if err != nil {
			return err
		}
		if locked.Status == periods.StatusClosed {
			return periods.ErrPeriodClosed
		}
		if !locked.Contains(input.Date) {
			return ErrDateOutOfRange
		}
		piece := input.PieceNumber
		if piece == "" {
			piece, err = s.allocator.Allocate(ctx, pieceDocumentType)
			if err != nil {
				return err
			}
		}
		status := StatusDraft
		var validatedBy *int64
		if input.PreValidated {
			status = StatusValidated
			creator := input.CreatedBy
			validatedBy = &creator
		}
		inserted, err := tx.InsertEntry(ctx, LedgerEntry{
			PieceNumber: piece,
			PeriodID:    locked.ID,
			JournalID:   input.JournalID,
			Date:        input.Date,
			Libelle:     input.Libelle,
			TotalDebit:  debit,
			TotalCredit: credit,
			Status:      status,
			Source:      input.Source,
			CreatedBy:   input.CreatedBy,
			ValidatedBy: validatedBy,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, input.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

// ValidateEntry transitions a draft entry to VALIDATED.
func (s *Service) ValidateEntry(ctx context.Context, entryID, validatorID int64) (LedgerEntry, error) {
	if entryID == 0 || validatorID == 0 {
		return LedgerEntry{}, errors.New("ledger: entry id and validator required")
	}
	var entry LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status == StatusValidated {
			return ErrAlreadyValidated
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == periods.StatusClosed {
			return periods.ErrPeriodClosed
		}
		if err := tx.MarkValidated(ctx, current.ID, validatorID); err != nil {
			return err
		}
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		current.Status = StatusValidated
		current.ValidatedBy = &validatorID
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

// UpdateEntry replaces the header and lines of a draft entry, re-running the
// balance and period checks.
func (s *Service) UpdateEntry(ctx context.Context, input UpdateEntryInput) (LedgerEntry, error) {
	if input.EntryID == 0 {
		return LedgerEntry{}, errors.New("ledger: entry id required")
	}
	if err := ValidateLines(input.Lines); err != nil {
		return LedgerEntry{}, err
	}
	period, err := s.periods.ResolveForDate(ctx, input.Date)
	if err != nil {
		return LedgerEntry{}, err
	}
	debit, credit := Totals(input.Lines)
	var entry LedgerEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrEntryImmutable
		}
		locked, err := tx.GetPeriodForUpdate(ctx, period.ID)
		if err != nil {
			return err
		}
		if locked.Status == periods.StatusClosed {
			return periods.ErrPeriodClosed
		}
		if !locked.Contains(input.Date) {
			return ErrDateOutOfRange
		}
		// The entry may move between open periods when its date changes.
		if current.PeriodID != locked.ID {
			origin, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
			if err != nil {
				return err
			}
			if origin.Status == periods.StatusClosed {
				return periods.ErrPeriodClosed
			}
		}
		current.PeriodID = locked.ID
		current.Date = input.Date
		if input.Libelle != "" {
			current.Libelle = input.Libelle
		}
		current.TotalDebit = debit
		current.TotalCredit = credit
		if err := tx.UpdateEntryHeader(ctx, current); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, current.ID); err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, current.ID, input.Lines)
		if err != nil {
			return err
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

// DeleteEntry removes a draft entry. Validated entries are permanent.
func (s *Service) DeleteEntry(ctx context.Context, entryID int64) error {
	if entryID == 0 {
		return errors.New("ledger: entry id required")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrEntryImmutable
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == periods.StatusClosed {
			return periods.ErrPeriodClosed
		}
		if err := tx.DeleteLines(ctx, current.ID); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, current.ID)
	})
}

// GetEntry loads an entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID int64) (LedgerEntry, error) {
	return s.repo.GetEntry(ctx, entryID)
}

// ListEntries returns entries, optionally filtered by period.
func (s *Service) ListEntries(ctx context.Context, periodID int64, limit, offset int) ([]LedgerEntry, error) {
	return s.repo.ListEntries(ctx, periodID, limit, offset)
}
