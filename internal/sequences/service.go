package sequences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const defaultPadding = 4

// maxAttempts bounds retries on serialization failures before surfacing
// the conflict to the caller.
const maxAttempts = 3

// Service allocates formatted document numbers. Numbers are consumed even if
// the caller's subsequent write fails: gaps are acceptable, duplicates are not.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the allocator.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Allocate returns the next formatted number for the document type.
// A missing counter row is a configuration error and is never retried.
func (s *Service) Allocate(ctx context.Context, documentType string) (string, error) {
	if documentType == "" {
		return "", errors.New("sequences: document type required")
	}
	now := s.now()
	year, month := now.Year(), int(now.Month())
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		alloc, err := s.repo.Next(ctx, documentType, year, month)
		if err == nil {
			return formatNumber(alloc, now), nil
		}
		if errors.Is(err, ErrCounterNotConfigured) {
			return "", err
		}
		if !isSerializationFailure(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrSequenceContention, lastErr)
}

// Configure creates or updates a counter row. Administrative use only.
func (s *Service) Configure(ctx context.Context, c Counter) error {
	if c.DocumentType == "" {
		return errors.New("sequences: document type required")
	}
	if c.Format == "" {
		c.Format = "{PREFIX}{AAAA}-{SEQ}"
	}
	if c.Padding <= 0 {
		c.Padding = defaultPadding
	}
	switch c.ResetPolicy {
	case ResetNone, ResetYearly, ResetMonthly:
	case "":
		c.ResetPolicy = ResetNone
	default:
		return fmt.Errorf("sequences: unknown reset policy %q", c.ResetPolicy)
	}
	return s.repo.Upsert(ctx, c)
}

// Get returns the counter row for inspection.
func (s *Service) Get(ctx context.Context, documentType string) (Counter, error) {
	return s.repo.Get(ctx, documentType)
}

func formatNumber(alloc Allocation, now time.Time) string {
	padding := alloc.Padding
	if padding <= 0 {
		padding = defaultPadding
	}
	out := alloc.Format
	out = strings.ReplaceAll(out, "{PREFIX}", alloc.Prefix)
	out = strings.ReplaceAll(out, "{AAAA}", fmt.Sprintf("%04d", now.Year()))
	out = strings.ReplaceAll(out, "{AA}", now.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", fmt.Sprintf("%02d", int(now.Month())))
	out = strings.ReplaceAll(out, "{SEQ}", fmt.Sprintf("%0*d", padding, alloc.Sequence))
	return out
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
