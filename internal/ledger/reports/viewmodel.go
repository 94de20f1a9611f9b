package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var frPrinter = message.NewPrinter(language.French)

// FormatAmount renders an amount with French digit grouping and two
// decimals, e.g. 1234567.8 -> "1 234 567,80".
func FormatAmount(v float64) string {
	return frPrinter.Sprintf("%.2f", v)
}

// FormatFiscal renders a whole-unit fiscal amount, e.g. "1 234 568".
func FormatFiscal(v float64) string {
	return frPrinter.Sprintf("%.0f", v)
}

// TrialBalanceView pairs a trial balance with display strings for exports.
type TrialBalanceView struct {
	TrialBalance
	Display []TrialBalanceLineView `json:"display,omitempty"`
}

// TrialBalanceLineView carries formatted columns for one account row.
type TrialBalanceLineView struct {
	Numero        string `json:"numero"`
	Libelle       string `json:"libelle"`
	OpeningDebit  string `json:"openingDebit"`
	OpeningCredit string `json:"openingCredit"`
	PeriodDebit   string `json:"periodDebit"`
	PeriodCredit  string `json:"periodCredit"`
	ClosingDebit  string `json:"closingDebit"`
	ClosingCredit string `json:"closingCredit"`
}

// NewTrialBalanceView formats every line of the report.
func NewTrialBalanceView(tb TrialBalance) TrialBalanceView {
	view := TrialBalanceView{TrialBalance: tb}
	for _, line := range tb.Lines {
		view.Display = append(view.Display, TrialBalanceLineView{
			Numero:        line.Numero,
			Libelle:       line.Libelle,
			OpeningDebit:  FormatAmount(line.OpeningDebit),
			OpeningCredit: FormatAmount(line.OpeningCredit),
			PeriodDebit:   FormatAmount(line.PeriodDebit),
			PeriodCredit:  FormatAmount(line.PeriodCredit),
			ClosingDebit:  FormatAmount(line.ClosingDebit),
			ClosingCredit: FormatAmount(line.ClosingCredit),
		})
	}
	return view
}
