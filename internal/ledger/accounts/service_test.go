package accounts

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubRepo struct {
	byNumero   map[string]Account
	referenced map[string]bool
	nextID     int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byNumero: map[string]Account{}, referenced: map[string]bool{}}
}

func (r *stubRepo) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	var out []Account
	for _, a := range r.byNumero {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *stubRepo) GetByNumero(ctx context.Context, numero string) (Account, error) {
	a, ok := r.byNumero[numero]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (r *stubRepo) Insert(ctx context.Context, a Account) (Account, error) {
	if _, ok := r.byNumero[a.Numero]; ok {
		return Account{}, ErrNumeroTaken
	}
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.byNumero[a.Numero] = a
	return a, nil
}

func (r *stubRepo) Update(ctx context.Context, a Account) (Account, error) {
	for numero, existing := range r.byNumero {
		if existing.ID == a.ID {
			delete(r.byNumero, numero)
			r.byNumero[a.Numero] = a
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (r *stubRepo) IsReferenced(ctx context.Context, numero string) (bool, error) {
	return r.referenced[numero], nil
}

func TestDerive(t *testing.T) {
	cases := []struct {
		numero string
		classe int
		side   NormalSide
		cat    Category
	}{
		{"1010", 1, SideCredit, CategoryBilan},
		{"2180", 2, SideDebit, CategoryBilan},
		{"31", 3, SideDebit, CategoryBilan},
		{"4111", 4, SideCredit, CategoryTiers},
		{"5210", 5, SideDebit, CategoryTresorerie},
		{"6010", 6, SideDebit, CategoryResultat},
		{"7011", 7, SideCredit, CategoryResultat},
		{"8500", 8, SideDebit, CategoryAutre},
	}
	for _, tc := range cases {
		classe, side, cat, err := Derive(tc.numero)
		if err != nil {
			t.Fatalf("derive %s: %v", tc.numero, err)
		}
		if classe != tc.classe || side != tc.side || cat != tc.cat {
			t.Fatalf("derive %s: got (%d,%s,%s)", tc.numero, classe, side, cat)
		}
	}
	if _, _, _, err := Derive("0123"); err == nil {
		t.Fatalf("expected error for leading zero")
	}
	if _, _, _, err := Derive("X123"); err == nil {
		t.Fatalf("expected error for non-digit prefix")
	}
}

func TestCreateDerivesClassification(t *testing.T) {
	service := NewService(newStubRepo())
	account, err := service.Create(context.Background(), CreateInput{Numero: "7011", Libelle: "Ventes de marchandises"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if account.Classe != 7 || account.NormalSide != SideCredit || account.Category != CategoryResultat {
		t.Fatalf("unexpected classification: %+v", account)
	}
	if !account.IsActive {
		t.Fatalf("new accounts must start active")
	}
}

func TestUpdateNumeroRecomputesClasse(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo)
	if _, err := service.Create(context.Background(), CreateInput{Numero: "6010", Libelle: "Achats"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := service.Update(context.Background(), "6010", UpdateInput{Numero: "7010", Libelle: "Ventes", IsActive: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Classe != 7 || updated.NormalSide != SideCredit {
		t.Fatalf("classe not recomputed: %+v", updated)
	}
}

func TestUpdateNumeroRejectedWhenReferenced(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo)
	if _, err := service.Create(context.Background(), CreateInput{Numero: "4111", Libelle: "Clients"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.referenced["4111"] = true
	if _, err := service.Update(context.Background(), "4111", UpdateInput{Numero: "4112", IsActive: true}); !errors.Is(err, ErrAccountReferenced) {
		t.Fatalf("expected ErrAccountReferenced, got %v", err)
	}
	// libelle edits stay allowed on referenced accounts
	if _, err := service.Update(context.Background(), "4111", UpdateInput{Libelle: "Clients locaux", IsActive: true}); err != nil {
		t.Fatalf("libelle update: %v", err)
	}
}
