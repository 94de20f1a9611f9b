package sequences

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type stubRepo struct {
	counter    Counter
	failures   int
	callCount  int
	missing    bool
	seenYear   int
	seenMonth  int
	allocCalls []int64
}

func (r *stubRepo) Next(ctx context.Context, documentType string, year, month int) (Allocation, error) {
	r.callCount++
	if r.missing {
		return Allocation{}, ErrCounterNotConfigured
	}
	if r.failures > 0 {
		r.failures--
		return Allocation{}, &pgconn.PgError{Code: "40001"}
	}
	r.seenYear, r.seenMonth = year, month
	switch r.counter.ResetPolicy {
	case ResetYearly:
		if r.counter.LastResetYear != year {
			r.counter.LastSequence = 0
			r.counter.LastResetYear = year
		}
	case ResetMonthly:
		if r.counter.LastResetYear != year || r.counter.LastResetMonth != month {
			r.counter.LastSequence = 0
			r.counter.LastResetYear = year
			r.counter.LastResetMonth = month
		}
	}
	r.counter.LastSequence++
	r.allocCalls = append(r.allocCalls, r.counter.LastSequence)
	return Allocation{
		Sequence: r.counter.LastSequence,
		Format:   r.counter.Format,
		Prefix:   r.counter.Prefix,
		Padding:  r.counter.Padding,
	}, nil
}

func (r *stubRepo) Upsert(ctx context.Context, c Counter) error { r.counter = c; return nil }

func (r *stubRepo) Get(ctx context.Context, documentType string) (Counter, error) {
	if r.missing {
		return Counter{}, ErrCounterNotConfigured
	}
	return r.counter, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAllocateYearlyResetFormatting(t *testing.T) {
	repo := &stubRepo{counter: Counter{
		DocumentType: "facture_vente",
		Format:       "FV-{AAAA}-{SEQ}",
		Padding:      5,
		ResetPolicy:  ResetYearly,
	}}
	service := NewService(repo)
	service.WithNow(fixedClock(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)))

	first, err := service.Allocate(context.Background(), "facture_vente")
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if first != "FV-2025-00001" {
		t.Fatalf("unexpected first number: %s", first)
	}
	second, err := service.Allocate(context.Background(), "facture_vente")
	if err != nil {
		t.Fatalf("second allocation: %v", err)
	}
	if second != "FV-2025-00002" {
		t.Fatalf("unexpected second number: %s", second)
	}
}

func TestAllocateMonthlyReset(t *testing.T) {
	repo := &stubRepo{counter: Counter{
		DocumentType:   "bon_livraison",
		Format:         "{PREFIX}{AA}{MM}-{SEQ}",
		Prefix:         "BL",
		Padding:        3,
		ResetPolicy:    ResetMonthly,
		LastSequence:   41,
		LastResetYear:  2025,
		LastResetMonth: 2,
	}}
	service := NewService(repo)
	service.WithNow(fixedClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))

	got, err := service.Allocate(context.Background(), "bon_livraison")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "BL2503-001" {
		t.Fatalf("expected month reset to 1, got %s", got)
	}
}

func TestAllocateMissingCounterIsFatal(t *testing.T) {
	repo := &stubRepo{missing: true}
	service := NewService(repo)
	if _, err := service.Allocate(context.Background(), "unknown"); !errors.Is(err, ErrCounterNotConfigured) {
		t.Fatalf("expected ErrCounterNotConfigured, got %v", err)
	}
	if repo.callCount != 1 {
		t.Fatalf("configuration errors must not be retried, got %d calls", repo.callCount)
	}
}

func TestAllocateRetriesSerializationFailures(t *testing.T) {
	repo := &stubRepo{
		failures: 2,
		counter:  Counter{Format: "{SEQ}", Padding: 4, ResetPolicy: ResetNone},
	}
	service := NewService(repo)
	got, err := service.Allocate(context.Background(), "ecriture_comptable")
	if err != nil {
		t.Fatalf("expected retry success, got %v", err)
	}
	if got != "0001" {
		t.Fatalf("unexpected number: %s", got)
	}
	if repo.callCount != 3 {
		t.Fatalf("expected 3 attempts, got %d", repo.callCount)
	}
}

func TestAllocateExhaustedRetryBudget(t *testing.T) {
	repo := &stubRepo{failures: 10}
	service := NewService(repo)
	if _, err := service.Allocate(context.Background(), "ecriture_comptable"); !errors.Is(err, ErrSequenceContention) {
		t.Fatalf("expected ErrSequenceContention, got %v", err)
	}
}

func TestAllocationsStrictlyIncreasing(t *testing.T) {
	repo := &stubRepo{counter: Counter{Format: "{SEQ}", Padding: 4, ResetPolicy: ResetNone}}
	service := NewService(repo)
	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		n, err := service.Allocate(context.Background(), "ecriture_comptable")
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if seen[n] {
			t.Fatalf("duplicate number %s", n)
		}
		seen[n] = true
	}
	for i := 1; i < len(repo.allocCalls); i++ {
		if repo.allocCalls[i] <= repo.allocCalls[i-1] {
			t.Fatalf("sequence not strictly increasing: %v", repo.allocCalls)
		}
	}
}

func TestConfigureDefaults(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)
	if err := service.Configure(context.Background(), Counter{DocumentType: "facture_vente"}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if repo.counter.Padding != 4 {
		t.Fatalf("expected default padding 4, got %d", repo.counter.Padding)
	}
	if repo.counter.ResetPolicy != ResetNone {
		t.Fatalf("expected default policy NONE, got %s", repo.counter.ResetPolicy)
	}
	if err := service.Configure(context.Background(), Counter{DocumentType: "x", ResetPolicy: "WEEKLY"}); err == nil {
		t.Fatalf("expected unknown policy error")
	}
}
