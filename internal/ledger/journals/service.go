package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service owns journal reference data.
type Service struct {
	repo Repository
}

// NewService constructs the journals service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input groups journal fields for create and update.
type Input struct {
	Code              string
	Libelle           string
	Type              JournalType
	CounterpartNumero *string
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("journals: code required")
	}
	if strings.TrimSpace(in.Libelle) == "" {
		return errors.New("journals: libelle required")
	}
	if !ValidType(in.Type) {
		return fmt.Errorf("journals: unknown type %q", in.Type)
	}
	return nil
}

// Create persists a new journal.
func (s *Service) Create(ctx context.Context, in Input) (Journal, error) {
	if err := in.validate(); err != nil {
		return Journal{}, err
	}
	return s.repo.Insert(ctx, Journal{
		Code:              strings.ToUpper(strings.TrimSpace(in.Code)),
		Libelle:           in.Libelle,
		Type:              in.Type,
		CounterpartNumero: in.CounterpartNumero,
	})
}

// Update modifies an existing journal. The code is stable once assigned.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Journal, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Journal{}, err
	}
	if strings.TrimSpace(in.Libelle) != "" {
		existing.Libelle = in.Libelle
	}
	if in.Type != "" {
		if !ValidType(in.Type) {
			return Journal{}, fmt.Errorf("journals: unknown type %q", in.Type)
		}
		existing.Type = in.Type
	}
	existing.CounterpartNumero = in.CounterpartNumero
	return s.repo.Update(ctx, existing)
}

// Get returns a journal by id.
func (s *Service) Get(ctx context.Context, id int64) (Journal, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode returns a journal by its unique code.
func (s *Service) GetByCode(ctx context.Context, code string) (Journal, error) {
	return s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// Exists reports whether the journal id is known.
func (s *Service) Exists(ctx context.Context, journalID int64) error {
	_, err := s.repo.GetByID(ctx, journalID)
	return err
}

// List retrieves all journals.
func (s *Service) List(ctx context.Context) ([]Journal, error) {
	return s.repo.List(ctx)
}
