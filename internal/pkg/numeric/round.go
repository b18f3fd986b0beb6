package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision policy: every tCO2e figure (results, totals, reductions, deltas) is
// rounded to EmissionsPlaces; percentages shown to users use PercentPlaces.
const (
	EmissionsPlaces = 4
	PercentPlaces   = 2
)

// Round rounds half away from zero at the given number of decimal places.
// Decimal arithmetic avoids float artefacts such as 0.355 rounding to 0.3549.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Emissions rounds a tCO2e figure.
func Emissions(v float64) float64 {
	return Round(v, EmissionsPlaces)
}

// Percent rounds a percentage for display.
func Percent(v float64) float64 {
	return Round(v, PercentPlaces)
}

// NonNegative clamps v at zero.
func NonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// FormatPercent renders a percentage without trailing zeros, e.g. 12.5 or 10.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).Round(PercentPlaces).String()
}
