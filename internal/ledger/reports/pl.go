package reports

import (
	"sort"
	"time"
)

// IncomeLine is one produit or charge row.
type IncomeLine struct {
	Numero  string  `json:"numero"`
	Libelle string  `json:"libelle"`
	Montant float64 `json:"montant"`
}

// IncomeStatement is the compte de résultat over a date range, built from
// period movement only (opening balances do not participate).
type IncomeStatement struct {
	StartDate     time.Time    `json:"startDate"`
	EndDate       time.Time    `json:"endDate"`
	Produits      []IncomeLine `json:"produits"`
	Charges       []IncomeLine `json:"charges"`
	TotalProduits float64      `json:"totalProduits"`
	TotalCharges  float64      `json:"totalCharges"`
	ResultatNet   float64      `json:"resultatNet"`
}

// BuildIncomeStatement buckets class-7 period net credit as produits and
// class-6 period net debit as charges.
func BuildIncomeStatement(start, end time.Time, tb TrialBalance, decimals int) IncomeStatement {
	is := IncomeStatement{StartDate: start, EndDate: end}
	for _, line := range tb.Lines {
		switch line.Classe() {
		case 7:
			montant := Round(line.PeriodCredit-line.PeriodDebit, decimals)
			if montant == 0 {
				continue
			}
			is.Produits = append(is.Produits, IncomeLine{Numero: line.Numero, Libelle: line.Libelle, Montant: montant})
		case 6:
			montant := Round(line.PeriodDebit-line.PeriodCredit, decimals)
			if montant == 0 {
				continue
			}
			is.Charges = append(is.Charges, IncomeLine{Numero: line.Numero, Libelle: line.Libelle, Montant: montant})
		}
	}
	sort.Slice(is.Produits, func(i, j int) bool { return is.Produits[i].Numero < is.Produits[j].Numero })
	sort.Slice(is.Charges, func(i, j int) bool { return is.Charges[i].Numero < is.Charges[j].Numero })
	for _, row := range is.Produits {
		is.TotalProduits += row.Montant
	}
	for _, row := range is.Charges {
		is.TotalCharges += row.Montant
	}
	is.TotalProduits = Round(is.TotalProduits, decimals)
	is.TotalCharges = Round(is.TotalCharges, decimals)
	is.ResultatNet = Round(is.TotalProduits-is.TotalCharges, decimals)
	return is
}
