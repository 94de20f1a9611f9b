package accounts

import (
	"errors"
	"fmt"
	"time"
)

// NormalSide is the side an account normally carries its balance on.
type NormalSide string

const (
	SideDebit  NormalSide = "DEBIT"
	SideCredit NormalSide = "CREDIT"
)

// Category groups accounts for reporting.
type Category string

const (
	CategoryTiers      Category = "TIERS"
	CategoryTresorerie Category = "TRESORERIE"
	CategoryBilan      Category = "BILAN"
	CategoryResultat   Category = "RESULTAT"
	CategoryAutre      Category = "AUTRE"
)

// Account models a chart of accounts entry. Classe, normal side, and category
// are derived from the numero; referenced accounts are immutable apart from
// libelle and activation.
type Account struct {
	ID         int64
	Numero     string
	Libelle    string
	Classe     int
	NormalSide NormalSide
	Category   Category
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

var (
	// ErrAccountNotFound indicates no account exists for the numero.
	ErrAccountNotFound = errors.New("accounts: account not found")
	// ErrAccountReferenced indicates the numero cannot change once posted against.
	ErrAccountReferenced = errors.New("accounts: account referenced by posted entries")
	// ErrNumeroTaken indicates a duplicate numero.
	ErrNumeroTaken = errors.New("accounts: numero already exists")
)

// Derive computes classe, normal side, and category from the account numero.
// Classes 1, 4, and 7 are credit-normal; all others are debit-normal.
func Derive(numero string) (classe int, side NormalSide, cat Category, err error) {
	if numero == "" {
		return 0, "", "", errors.New("accounts: numero required")
	}
	c := numero[0]
	if c < '1' || c > '9' {
		return 0, "", "", fmt.Errorf("accounts: numero %q must start with a digit 1-9", numero)
	}
	classe = int(c - '0')
	switch classe {
	case 1, 4, 7:
		side = SideCredit
	default:
		side = SideDebit
	}
	switch classe {
	case 4:
		cat = CategoryTiers
	case 5:
		cat = CategoryTresorerie
	case 1, 2, 3:
		cat = CategoryBilan
	case 6, 7:
		cat = CategoryResultat
	default:
		cat = CategoryAutre
	}
	return classe, side, cat, nil
}
