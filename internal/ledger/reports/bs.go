package reports

import (
	"math"
	"sort"
	"time"
)

// Conventional numeros for the injected result line: 120 when the exercise
// is a profit, 129 when it is a loss.
const (
	resultatNumero = "120"
	perteNumero    = "129"
)

// BalanceSheetLine is one row of the actif or passif column.
type BalanceSheetLine struct {
	Numero  string  `json:"numero"`
	Libelle string  `json:"libelle"`
	Montant float64 `json:"montant"`
}

// BalanceSheet is the bilan as of a date. Equilibre reports whether actif
// and passif totals match within tolerance; a mismatch signals an upstream
// posting defect and is never corrected here.
type BalanceSheet struct {
	AsOf             time.Time          `json:"asOf"`
	Actif            []BalanceSheetLine `json:"actif"`
	Passif           []BalanceSheetLine `json:"passif"`
	TotalActif       float64            `json:"totalActif"`
	TotalPassif      float64            `json:"totalPassif"`
	ResultatExercice float64            `json:"resultatExercice"`
	Equilibre        bool               `json:"equilibre"`
}

// BuildBalanceSheet classifies closing balances into actif and passif.
// Classes 1-5 form the body; classes 6 and 7 feed only the period result,
// which is injected as an extra line (passif when profit, actif when loss).
func BuildBalanceSheet(asOf time.Time, tb TrialBalance, decimals int) BalanceSheet {
	bs := BalanceSheet{AsOf: asOf}
	var produits, charges float64
	for _, line := range tb.Lines {
		switch classe := line.Classe(); classe {
		case 6:
			charges += line.ClosingDebit - line.ClosingCredit
		case 7:
			produits += line.ClosingCredit - line.ClosingDebit
		case 1, 2, 3, 4, 5:
			net := line.ClosingDebit - line.ClosingCredit
			row := BalanceSheetLine{Numero: line.Numero, Libelle: line.Libelle}
			if net > 0 {
				row.Montant = Round(net, decimals)
				bs.Actif = append(bs.Actif, row)
			} else {
				row.Montant = Round(-net, decimals)
				bs.Passif = append(bs.Passif, row)
			}
		}
	}
	bs.ResultatExercice = Round(produits-charges, decimals)
	sort.Slice(bs.Actif, func(i, j int) bool { return bs.Actif[i].Numero < bs.Actif[j].Numero })
	sort.Slice(bs.Passif, func(i, j int) bool { return bs.Passif[i].Numero < bs.Passif[j].Numero })
	if bs.ResultatExercice >= 0 {
		bs.Passif = append(bs.Passif, BalanceSheetLine{
			Numero:  resultatNumero,
			Libelle: "Résultat de l'exercice",
			Montant: bs.ResultatExercice,
		})
	} else {
		bs.Actif = append(bs.Actif, BalanceSheetLine{
			Numero:  perteNumero,
			Libelle: "Perte de l'exercice",
			Montant: -bs.ResultatExercice,
		})
	}
	for _, row := range bs.Actif {
		bs.TotalActif += row.Montant
	}
	for _, row := range bs.Passif {
		bs.TotalPassif += row.Montant
	}
	bs.TotalActif = Round(bs.TotalActif, decimals)
	bs.TotalPassif = Round(bs.TotalPassif, decimals)
	bs.Equilibre = math.Abs(bs.TotalActif-bs.TotalPassif) < 0.01
	return bs
}
