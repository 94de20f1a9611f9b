package journals

import (
	"errors"
	"time"
)

// JournalType enumerates the bookkeeping journals.
type JournalType string

const (
	TypeVente              JournalType = "VENTE"
	TypeAchat              JournalType = "ACHAT"
	TypeTresorerie         JournalType = "TRESORERIE"
	TypeOperationsDiverses JournalType = "OD"
)

// Journal is reference data describing where entries are booked.
type Journal struct {
	ID                int64
	Code              string
	Libelle           string
	Type              JournalType
	CounterpartNumero *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

var (
	// ErrJournalNotFound indicates a missing journal row.
	ErrJournalNotFound = errors.New("journals: journal not found")
	// ErrCodeTaken indicates a duplicate journal code.
	ErrCodeTaken = errors.New("journals: code already exists")
)

// ValidType reports whether t is a known journal type.
func ValidType(t JournalType) bool {
	switch t {
	case TypeVente, TypeAchat, TypeTresorerie, TypeOperationsDiverses:
		return true
	}
	return false
}
