package reports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
)

// openingEpoch bounds "since inception" queries: the balance sheet needs all
// validated movement from the first posting through the as-of date.
var openingEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrInvalidRange indicates an end date before the start date.
var ErrInvalidRange = errors.New("reports: end date before start date")

// ActivityRepository provides the raw per-account aggregates.
type ActivityRepository interface {
	AccountActivity(ctx context.Context, start, end time.Time) ([]AccountActivity, error)
}

// PeriodResolver locates the fiscal period covering a date.
type PeriodResolver interface {
	ResolveForDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// Service builds reports from validated postings, with cache-aware lookups.
// Concurrent requests for the same uncached report collapse to one build.
type Service struct {
	repo    ActivityRepository
	cache   *Cache
	periods PeriodResolver
	group   singleflight.Group
}

// NewService wires a Repository with a Cache helper and period lookups.
func NewService(repo ActivityRepository, cache *Cache, resolver PeriodResolver) *Service {
	return &Service{repo: repo, cache: cache, periods: resolver}
}

// TrialBalance returns the balance report for [start, end].
func (s *Service) TrialBalance(ctx context.Context, start, end time.Time) (TrialBalance, error) {
	if end.Before(start) {
		return TrialBalance{}, ErrInvalidRange
	}
	var tb TrialBalance
	err := s.fetch(ctx, keyTB(start, end), &tb, func(ctx context.Context) (interface{}, error) {
		return s.buildTB(ctx, start, end)
	})
	return tb, err
}

// BalanceSheet returns the bilan as of a date, from all movement since
// inception. The as-of date must fall inside a known fiscal period.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if _, err := s.periods.ResolveForDate(ctx, asOf); err != nil {
		return BalanceSheet{}, err
	}
	var bs BalanceSheet
	err := s.fetch(ctx, keyBS(asOf), &bs, func(ctx context.Context) (interface{}, error) {
		tb, err := s.buildTB(ctx, openingEpoch, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(asOf, tb, StatementDecimals), nil
	})
	return bs, err
}

// IncomeStatement returns the compte de résultat for [start, end].
func (s *Service) IncomeStatement(ctx context.Context, start, end time.Time) (IncomeStatement, error) {
	if end.Before(start) {
		return IncomeStatement{}, ErrInvalidRange
	}
	var is IncomeStatement
	err := s.fetch(ctx, keyPL(start, end), &is, func(ctx context.Context) (interface{}, error) {
		tb, err := s.buildTB(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return BuildIncomeStatement(start, end, tb, StatementDecimals), nil
	})
	return is, err
}

// TVA returns the VAT summary for [start, end], rounded to whole units.
func (s *Service) TVA(ctx context.Context, start, end time.Time) (TVASummary, error) {
	if end.Before(start) {
		return TVASummary{}, ErrInvalidRange
	}
	var summary TVASummary
	err := s.fetch(ctx, keyTVA(start, end), &summary, func(ctx context.Context) (interface{}, error) {
		tb, err := s.buildTB(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return BuildTVASummary(start, end, tb, FiscalDecimals), nil
	})
	return summary, err
}

// Invalidate retires every cached report. Posting paths call this after a
// successful write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) buildTB(ctx context.Context, start, end time.Time) (TrialBalance, error) {
	activity, err := s.repo.AccountActivity(ctx, start, end)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(start, end, activity, StatementDecimals), nil
}

func (s *Service) fetch(ctx context.Context, keyBase string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return err
	}
	ch := s.group.DoChan(key, func() (interface{}, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
