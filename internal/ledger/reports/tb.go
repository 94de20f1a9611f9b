package reports

import (
	"sort"
	"time"
)

// AccountActivity is the per-account raw aggregate materialized by the
// repository in a single pass over validated entries: sums strictly before
// the range start and sums within the range.
type AccountActivity struct {
	Numero        string
	Libelle       string
	OpeningDebit  float64
	OpeningCredit float64
	PeriodDebit   float64
	PeriodCredit  float64
}

// TrialBalanceLine is one account row with balances split into columns.
type TrialBalanceLine struct {
	Numero        string  `json:"numero"`
	Libelle       string  `json:"libelle"`
	OpeningDebit  float64 `json:"openingDebit"`
	OpeningCredit float64 `json:"openingCredit"`
	PeriodDebit   float64 `json:"periodDebit"`
	PeriodCredit  float64 `json:"periodCredit"`
	ClosingDebit  float64 `json:"closingDebit"`
	ClosingCredit float64 `json:"closingCredit"`
}

// TrialBalanceTotals holds the column-wise sums of the reported rows.
type TrialBalanceTotals struct {
	OpeningDebit  float64 `json:"openingDebit"`
	OpeningCredit float64 `json:"openingCredit"`
	PeriodDebit   float64 `json:"periodDebit"`
	PeriodCredit  float64 `json:"periodCredit"`
	ClosingDebit  float64 `json:"closingDebit"`
	ClosingCredit float64 `json:"closingCredit"`
}

// TrialBalance is the aggregated balance report for a date range.
// Sum of closing debits equals sum of closing credits when every posted
// entry balances; a mismatch is an upstream posting defect.
type TrialBalance struct {
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
	Lines     []TrialBalanceLine `json:"lines"`
	Totals    TrialBalanceTotals `json:"totals"`
}

// BuildTrialBalance converts raw account activity into the trial balance.
// Accounts whose four raw aggregates are all zero are dropped; rows sort by
// account numero ascending.
func BuildTrialBalance(start, end time.Time, activity []AccountActivity, decimals int) TrialBalance {
	tb := TrialBalance{StartDate: start, EndDate: end}
	for _, acc := range activity {
		if acc.OpeningDebit == 0 && acc.OpeningCredit == 0 && acc.PeriodDebit == 0 && acc.PeriodCredit == 0 {
			continue
		}
		line := TrialBalanceLine{
			Numero:       acc.Numero,
			Libelle:      acc.Libelle,
			PeriodDebit:  Round(acc.PeriodDebit, decimals),
			PeriodCredit: Round(acc.PeriodCredit, decimals),
		}
		openingNet := acc.OpeningDebit - acc.OpeningCredit
		if openingNet > 0 {
			line.OpeningDebit = Round(openingNet, decimals)
		} else {
			line.OpeningCredit = Round(-openingNet, decimals)
		}
		closingNet := openingNet + acc.PeriodDebit - acc.PeriodCredit
		if closingNet > 0 {
			line.ClosingDebit = Round(closingNet, decimals)
		} else {
			line.ClosingCredit = Round(-closingNet, decimals)
		}
		tb.Lines = append(tb.Lines, line)
	}
	sort.Slice(tb.Lines, func(i, j int) bool { return tb.Lines[i].Numero < tb.Lines[j].Numero })
	for _, line := range tb.Lines {
		tb.Totals.OpeningDebit += line.OpeningDebit
		tb.Totals.OpeningCredit += line.OpeningCredit
		tb.Totals.PeriodDebit += line.PeriodDebit
		tb.Totals.PeriodCredit += line.PeriodCredit
		tb.Totals.ClosingDebit += line.ClosingDebit
		tb.Totals.ClosingCredit += line.ClosingCredit
	}
	tb.Totals.OpeningDebit = Round(tb.Totals.OpeningDebit, decimals)
	tb.Totals.OpeningCredit = Round(tb.Totals.OpeningCredit, decimals)
	tb.Totals.PeriodDebit = Round(tb.Totals.PeriodDebit, decimals)
	tb.Totals.PeriodCredit = Round(tb.Totals.PeriodCredit, decimals)
	tb.Totals.ClosingDebit = Round(tb.Totals.ClosingDebit, decimals)
	tb.Totals.ClosingCredit = Round(tb.Totals.ClosingCredit, decimals)
	return tb
}

// Classe returns the class digit of a trial balance line, 0 when malformed.
func (l TrialBalanceLine) Classe() int {
	if l.Numero == "" {
		return 0
	}
	c := l.Numero[0]
	if c < '1' || c > '9' {
		return 0
	}
	return int(c - '0')
}
