package reports

import "math"

// Statement figures round to 2 decimals; fiscal (TVA) figures round to 0.
// The precision is always an explicit argument, never a hidden constant.
const (
	StatementDecimals = 2
	FiscalDecimals    = 0
)

// Round rounds v half-away-from-zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
