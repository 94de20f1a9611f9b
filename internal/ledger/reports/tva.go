package reports

import (
	"strings"
	"time"
)

// Account prefixes for the TVA summary: 443 collected on sales, 445
// deductible on purchases.
const (
	prefixTVACollectee  = "443"
	prefixTVADeductible = "445"
)

// TVASummary is the declaration-oriented VAT position over a range.
// Figures round to whole units, unlike the 2-decimal statements.
type TVASummary struct {
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	TVACollectee  float64   `json:"tvaCollectee"`
	TVADeductible float64   `json:"tvaDeductible"`
	TVADue        float64   `json:"tvaDue"`
}

// BuildTVASummary nets period movement on the TVA accounts.
func BuildTVASummary(start, end time.Time, tb TrialBalance, decimals int) TVASummary {
	summary := TVASummary{StartDate: start, EndDate: end}
	for _, line := range tb.Lines {
		switch {
		case strings.HasPrefix(line.Numero, prefixTVACollectee):
			summary.TVACollectee += line.PeriodCredit - line.PeriodDebit
		case strings.HasPrefix(line.Numero, prefixTVADeductible):
			summary.TVADeductible += line.PeriodDebit - line.PeriodCredit
		}
	}
	summary.TVACollectee = Round(summary.TVACollectee, decimals)
	summary.TVADeductible = Round(summary.TVADeductible, decimals)
	summary.TVADue = Round(summary.TVACollectee-summary.TVADeductible, decimals)
	return summary
}
