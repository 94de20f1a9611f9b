package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
)

type stubAllocator struct {
	calls int
	next  int
}

func (a *stubAllocator) Allocate(ctx context.Context, documentType string) (string, error) {
	a.calls++
	a.next++
	return "EC-2025-" + string(rune('0'+a.next)), nil
}

type stubJournals struct{ missing bool }

func (j stubJournals) Exists(ctx context.Context, journalID int64) error {
	if j.missing {
		return errors.New("journals: journal not found")
	}
	return nil
}

type stubPeriods struct {
	period periods.Period
	err    error
}

func (p stubPeriods) ResolveForDate(ctx context.Context, date time.Time) (periods.Period, error) {
	if p.err != nil {
		return periods.Period{}, p.err
	}
	return p.period, nil
}

type stubRepo struct {
	tx      *stubTx
	entries map[int64]LedgerEntry
}

func newStubRepo(period periods.Period) *stubRepo {
	r := &stubRepo{entries: map[int64]LedgerEntry{}}
	r.tx = &stubTx{repo: r, period: period}
	return r
}

func (r *stubRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r.tx)
}

func (r *stubRepo) GetEntry(ctx context.Context, entryID int64) (LedgerEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return LedgerEntry{}, ErrEntryNotFound
	}
	return e, nil
}

func (r *stubRepo) ListEntries(ctx context.Context, periodID int64, limit, offset int) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

type stubTx struct {
	repo    *stubRepo
	period  periods.Period
	nextID  int64
	inserts int
}

func (tx *stubTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	if periodID != tx.period.ID {
		return periods.Period{}, periods.ErrPeriodNotFound
	}
	return tx.period, nil
}

func (tx *stubTx) InsertEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	for _, e := range tx.repo.entries {
		if e.PieceNumber == entry.PieceNumber {
			return LedgerEntry{}, ErrDuplicatePiece
		}
	}
	tx.nextID++
	tx.inserts++
	entry.ID = tx.nextID
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *stubTx) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]LedgerLine, error) {
	out := make([]LedgerLine, 0, len(lines))
	for i, line := range lines {
		out = append(out, LedgerLine{
			ID:            int64(i + 1),
			EntryID:       entryID,
			AccountNumero: line.AccountNumero,
			Libelle:       line.Libelle,
			Debit:         line.Debit,
			Credit:        line.Credit,
		})
	}
	e := tx.repo.entries[entryID]
	e.Lines = out
	tx.repo.entries[entryID] = e
	return out, nil
}

func (tx *stubTx) GetEntryForUpdate(ctx context.Context, entryID int64) (LedgerEntry, error) {
	e, ok := tx.repo.entries[entryID]
	if !ok {
		return LedgerEntry{}, ErrEntryNotFound
	}
	return e, nil
}

func (tx *stubTx) GetLines(ctx context.Context, entryID int64) ([]LedgerLine, error) {
	return tx.repo.entries[entryID].Lines, nil
}

func (tx *stubTx) MarkValidated(ctx context.Context, entryID, validatorID int64) error {
	e := tx.repo.entries[entryID]
	if e.Status != StatusDraft {
		return ErrAlreadyValidated
	}
	e.Status = StatusValidated
	e.ValidatedBy = &validatorID
	tx.repo.entries[entryID] = e
	return nil
}

func (tx *stubTx) UpdateEntryHeader(ctx context.Context, entry LedgerEntry) error {
	stored, ok := tx.repo.entries[entry.ID]
	if !ok {
		return ErrEntryNotFound
	}
	stored.PeriodID = entry.PeriodID
	stored.Date = entry.Date
	stored.Libelle = entry.Libelle
	stored.TotalDebit = entry.TotalDebit
	stored.TotalCredit = entry.TotalCredit
	tx.repo.entries[entry.ID] = stored
	return nil
}

func (tx *stubTx) DeleteLines(ctx context.Context, entryID int64) error {
	e := tx.repo.entries[entryID]
	e.Lines = nil
	tx.repo.entries[entryID] = e
	return nil
}

func (tx *stubTx) DeleteEntry(ctx context.Context, entryID int64) error {
	delete(tx.repo.entries, entryID)
	return nil
}

func openPeriod2025() periods.Period {
	return periods.Period{
		ID:        1,
		Year:      2025,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    periods.StatusOpen,
	}
}

func balancedInput() CreateEntryInput {
	return CreateEntryInput{
		JournalID: 1,
		Date:      time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Libelle:   "Facture FV-2025-00001",
		CreatedBy: 10,
		Lines: []LineInput{
			{AccountNumero: "4111", Libelle: "Client", Debit: 118000},
			{AccountNumero: "7011", Libelle: "Ventes", Credit: 100000},
			{AccountNumero: "4431", Libelle: "TVA facturee", Credit: 18000},
		},
	}
}

func TestCreateEntryBalancedAccepted(t *testing.T) {
	repo := newStubRepo(openPeriod2025())
	alloc := &stubAllocator{}
	service := NewService(repo, stubPeriods{period: openPeriod2025()}, alloc, stubJournals{})

	entry, err := service.CreateEntry(context.Background(), balancedInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.TotalDebit != 118000 || entry.TotalCredit != 118000 {
		t.Fatalf("unexpected totals: %v / %v", entry.TotalDebit, entry.TotalCredit)
	}
	if entry.Status != StatusDraft {
		t.Fatalf("expected DRAFT, got %s", entry.Status)
	}
	if entry.PieceNumber == "" {
		t.Fatalf("piece number not allocated")
	}
	if len(entry.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(entry.Lines))
	}
}

func TestCreateEntryUnbalancedRejectedNoAllocation(t *testing.T) {
	repo := newStubRepo(openPeriod2025())
	alloc := &stubAllocator{}
	service := NewService(repo, stubPeriods{period: openPeriod2025()}, alloc, stubJournals{})

	input := balancedInput()
	input.Lines[2].Credit = 17000
	if _, err := service.CreateEntry(context.Background(), input); !errors.Is(err, ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
	if alloc.calls != 0 {
		t.Fatalf("rejected entry must not consume a number, got %d allocations", alloc.calls)
	}
	if repo.tx.inserts != 0 {
		t.Fatalf("no record should be persisted")
	}
}

func TestCreateEntryTooFewLines(t *testing.T) {
	service := NewService(newStubRepo(openPeriod2025()), stubPeriods{period: openPeriod2025()}, &stubAllocator{}, stubJournals{})
	input := balancedInput()
	input.Lines = input.Lines[:1]
	if _, err := service.CreateEntry(context.Background(), input); !errors.Is(err, ErrTooFewLines) {
		t.Fatalf("expected ErrTooFewLines, got %v", err)
	}
}

func TestCreateEntryNoCoveringPeriod(t *testing.T) {
	service := NewService(newStubRepo(openPeriod2025()), stubPeriods{err: periods.ErrNoPeriodForDate}, &stubAllocator{}, stubJournals{})
	input := balancedInput()
	input.Date = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if _, err := service.CreateEntry(context.Background(), input); !errors.Is(err, periods.ErrNoPeriodForDate) {
		t.Fatalf("expected ErrNoPeriodForDate, got %v", err)
	}
}

func TestCreateEntryClosedPeriodRejected(t *testing.T) {
	closed := openPeriod2025()
	closed.Status = periods.StatusClosed
	service := NewService(newStubRepo(closed), stubPeriods{period: closed}, &stubAllocator{}, stubJournals{})
	if _, err := service.CreateEntry(context.Background(), balancedInput()); !errors.Is(err, periods.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}

func TestCreateEntryConcurrentCloseCaughtInTx(t *testing.T) {
	// Period open at resolution time, closed by the time the tx locks it.
	repo := newStubRepo(openPeriod2025())
	repo.tx.period.Status = periods.StatusClosed
	service := NewService(repo, stubPeriods{period: openPeriod2025()}, &stubAllocator{}, stubJournals{})
	if _, err := service.CreateEntry(context.Background(), balancedInput()); !errors.Is(err, periods.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}

func TestCreateEntryPreValidated(t *testing.T) {
	repo := newStubRepo(openPeriod2025())
	service := NewService(repo, stubPeriods{period: openPeriod2025()}, &stubAllocator{}, stubJournals{})
	input := balancedInput()
	input.PreValidated = true
	input.PieceNumber = "FV-2025-00042"
	entry, err := service.CreateEntry(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Status != StatusValidated {
		t.Fatalf("expected VALIDATED, got %s", entry.Status)
	}
	if entry.ValidatedBy == nil || *entry.ValidatedBy != input.CreatedBy {
		t.Fatalf("validatedBy must record creator")
	}
	if entry.PieceNumber != "FV-2025-00042" {
		t.Fatalf("caller-supplied piece number must be kept, got %s", entry.PieceNumber)
	}
}

func TestValidateEntryTerminal(t *testing.T) {
	repo := newStubRepo(openPeriod2025())
	service := NewService(repo, stubPeriods{period: openPeriod2025()}, &stubAllocator{}, stubJournals{})
	entry, err := service.CreateEntry(context.Background(), balancedInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	validated, err := service.ValidateEntry(context.Background(), entry.ID, 20)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Status != StatusValidated || validated.ValidatedBy == nil || *validated.ValidatedBy != 20 {
		t.Fatalf("validation metadata missing: %+v", validated)
	}
	if _, err := service.ValidateEntry(context.Background(), entry.ID, 20); !errors.Is(err, ErrAlreadyValidated) {
		t.Fatalf("expected ErrAlreadyValidated, got %v", err)
	}
}

func TestUpdateAndDeleteDraftOnly(t *testing.T) {
	repo := newStubRepo(openPeriod2025())
	service := NewService(repo, stubPeriods{period: openPeriod2025()}, &stubAllocator{}, stubJournals{})
	entry, err := service.CreateEntry(context.Background(), balancedInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := service.UpdateEntry(context.Background(), UpdateEntryInput{
		EntryID: entry.ID,
		Date:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Libelle: "Facture corrigee",
		Lines: []LineInput{
			{AccountNumero: "4111", Debit: 59000},
			{AccountNumero: "7011", Credit: 50000},
			{AccountNumero: "4431", Credit: 9000},
		},
		ActorID: 10,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalDebit != 59000 {
		t.Fatalf("totals not recomputed: %v", updated.TotalDebit)
	}

	if _, err := service.ValidateEntry(context.Background(), entry.ID, 20); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := service.UpdateEntry(context.Background(), UpdateEntryInput{
		EntryID: entry.ID,
		Date:    updated.Date,
		Lines:   []LineInput{{AccountNumero: "4111", Debit: 1}, {AccountNumero: "7011", Credit: 1}},
	}); !errors.Is(err, ErrEntryImmutable) {
		t.Fatalf("expected ErrEntryImmutable on update, got %v", err)
	}
	if err := service.DeleteEntry(context.Background(), entry.ID); !errors.Is(err, ErrEntryImmutable) {
		t.Fatalf("expected ErrEntryImmutable on delete, got %v", err)
	}
}

func TestValidateLinesRejectsBothSides(t *testing.T) {
	err := ValidateLines([]LineInput{
		{AccountNumero: "4111", Debit: 10, Credit: 10},
		{AccountNumero: "7011", Credit: 0},
	})
	if !errors.Is(err, ErrLineBothSides) {
		t.Fatalf("expected ErrLineBothSides, got %v", err)
	}
	err = ValidateLines([]LineInput{
		{AccountNumero: "4111", Debit: -5},
		{AccountNumero: "7011", Credit: -5},
	})
	if !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestValidateLinesTolerance(t *testing.T) {
	// 0.009 off stays inside the tolerance window.
	if err := ValidateLines([]LineInput{
		{AccountNumero: "4111", Debit: 100.009},
		{AccountNumero: "7011", Credit: 100},
	}); err != nil {
		t.Fatalf("sub-tolerance gap must pass: %v", err)
	}
	if err := ValidateLines([]LineInput{
		{AccountNumero: "4111", Debit: 100.02},
		{AccountNumero: "7011", Credit: 100},
	}); !errors.Is(err, ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}
