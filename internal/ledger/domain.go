package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// BalanceTolerance is the maximum admissible |debit - credit| gap on an entry.
const BalanceTolerance = 0.01

// EntryStatus enumerates the entry lifecycle. DRAFT -> VALIDATED, terminal.
type EntryStatus string

const (
	StatusDraft     EntryStatus = "DRAFT"
	StatusValidated EntryStatus = "VALIDATED"
)

// SourceKind tags the business document an entry originates from.
type SourceKind string

const (
	SourceFactureVente SourceKind = "FACTURE_VENTE"
	SourceFactureAchat SourceKind = "FACTURE_ACHAT"
	SourcePaiement     SourceKind = "PAIEMENT"
	SourceMouvStock    SourceKind = "MOUVEMENT_STOCK"
	SourceManuel       SourceKind = "MANUEL"
)

// SourceRef is a typed reference to the originating document.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// LedgerLine carries a single debit or credit amount against an account.
type LedgerLine struct {
	ID            int64
	EntryID       int64
	AccountNumero string
	Libelle       string
	Debit         float64
	Credit        float64
}

// LedgerEntry is a balanced set of lines posted on a date within a period.
// Totals are derived from the lines, never set independently.
type LedgerEntry struct {
	ID          int64
	PieceNumber string
	PeriodID    int64
	JournalID   int64
	Date        time.Time
	Libelle     string
	TotalDebit  float64
	TotalCredit float64
	Status      EntryStatus
	Source      *SourceRef
	CreatedBy   int64
	ValidatedBy *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []LedgerLine
}

// LineInput describes one line of a posting request.
type LineInput struct {
	AccountNumero string
	Libelle       string
	Debit         float64
	Credit        float64
}

// CreateEntryInput groups fields required to create an entry.
// PieceNumber may be supplied by callers posting from a source document that
// carries its own business number; otherwise the allocator issues one.
type CreateEntryInput struct {
	JournalID    int64
	Date         time.Time
	Libelle      string
	Lines        []LineInput
	CreatedBy    int64
	PieceNumber  string
	Source       *SourceRef
	PreValidated bool
}

// UpdateEntryInput groups fields for editing a draft entry.
type UpdateEntryInput struct {
	EntryID int64
	Date    time.Time
	Libelle string
	Lines   []LineInput
	ActorID int64
}

var (
	// ErrUnbalanced indicates total debit and credit differ beyond tolerance.
	ErrUnbalanced = errors.New("ledger: lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: entry requires at least two lines")
	// ErrLineBothSides indicates a line with both debit and credit set.
	ErrLineBothSides = errors.New("ledger: line cannot carry both debit and credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("ledger: amounts must be non-negative")
	// ErrDateOutOfRange indicates the entry date falls outside its period.
	ErrDateOutOfRange = errors.New("ledger: date outside fiscal period")
	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = errors.New("ledger: entry not found")
	// ErrAlreadyValidated indicates a second validation attempt.
	ErrAlreadyValidated = errors.New("ledger: entry already validated")
	// ErrEntryImmutable indicates a mutation on a validated entry.
	ErrEntryImmutable = errors.New("ledger: validated entries are immutable")
	// ErrDuplicatePiece indicates the piece number is already used.
	ErrDuplicatePiece = errors.New("ledger: piece number already exists")
)

// Totals sums the debit and credit columns of the lines.
func Totals(lines []LineInput) (debit, credit float64) {
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

// ValidateLines enforces the structural line rules and the balance invariant.
func ValidateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	for idx, line := range lines {
		if line.AccountNumero == "" {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("%w: line %d", ErrNegativeAmount, idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w: line %d", ErrLineBothSides, idx)
		}
	}
	debit, credit := Totals(lines)
	if math.Abs(debit-credit) >= BalanceTolerance {
		return fmt.Errorf("%w: debit=%.2f credit=%.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}

func (in CreateEntryInput) validate() error {
	if in.JournalID == 0 {
		return errors.New("ledger: journal required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if in.CreatedBy == 0 {
		return errors.New("ledger: creator required")
	}
	if in.Source != nil && in.Source.ID == uuid.Nil {
		return errors.New("ledger: source reference requires an id")
	}
	return ValidateLines(in.Lines)
}
