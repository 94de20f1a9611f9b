package accounts

import (
	"context"
	"errors"
	"strings"
)

// Service owns chart of accounts lifecycle and derivation rules.
type Service struct {
	repo Repository
}

// NewService constructs the accounts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput groups fields for a new account.
type CreateInput struct {
	Numero  string
	Libelle string
}

// Create derives classification from the numero and persists the account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	numero := strings.TrimSpace(in.Numero)
	classe, side, category, err := Derive(numero)
	if err != nil {
		return Account{}, err
	}
	if strings.TrimSpace(in.Libelle) == "" {
		return Account{}, errors.New("accounts: libelle required")
	}
	return s.repo.Insert(ctx, Account{
		Numero:     numero,
		Libelle:    in.Libelle,
		Classe:     classe,
		NormalSide: side,
		Category:   category,
		IsActive:   true,
	})
}

// UpdateInput groups mutable account fields.
type UpdateInput struct {
	Numero   string
	Libelle  string
	IsActive bool
}

// Update modifies an account. Changing the numero recomputes classification
// and is rejected once the account is referenced by a posted entry.
func (s *Service) Update(ctx context.Context, currentNumero string, in UpdateInput) (Account, error) {
	existing, err := s.repo.GetByNumero(ctx, currentNumero)
	if err != nil {
		return Account{}, err
	}
	newNumero := strings.TrimSpace(in.Numero)
	if newNumero == "" {
		newNumero = existing.Numero
	}
	if newNumero != existing.Numero {
		referenced, err := s.repo.IsReferenced(ctx, existing.Numero)
		if err != nil {
			return Account{}, err
		}
		if referenced {
			return Account{}, ErrAccountReferenced
		}
		classe, side, category, err := Derive(newNumero)
		if err != nil {
			return Account{}, err
		}
		existing.Numero = newNumero
		existing.Classe = classe
		existing.NormalSide = side
		existing.Category = category
	}
	if strings.TrimSpace(in.Libelle) != "" {
		existing.Libelle = in.Libelle
	}
	existing.IsActive = in.IsActive
	return s.repo.Update(ctx, existing)
}

// Get returns a single account by numero.
func (s *Service) Get(ctx context.Context, numero string) (Account, error) {
	return s.repo.GetByNumero(ctx, numero)
}

// List retrieves chart of accounts entries.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.List(ctx, activeOnly)
}
