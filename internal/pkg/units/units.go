// Package units converts activity quantities between units of the same
// physical dimension. Conversions are fixed multiplicative factors; units in
// different families, or units that are not recognized, cannot be converted.
package units

import (
	"math"
	"strings"
	"unicode"
)

// Family is a physical dimension that groups convertible units.
type Family string

const (
	Energy   Family = "energy"
	Mass     Family = "mass"
	Distance Family = "distance"
	Freight  Family = "freight"
	Currency Family = "currency"
	Volume   Family = "volume"
)

type unitDef struct {
	family Family
	toBase float64 // multiplier to the family base unit
}

// Base units: kWh, kg, km, tkm, USD, m3.
var table = map[string]unitDef{
	"wh":    {Energy, 0.001},
	"kwh":   {Energy, 1},
	"mwh":   {Energy, 1e3},
	"gwh":   {Energy, 1e6},
	"mj":    {Energy, 1 / 3.6},
	"gj":    {Energy, 1e3 / 3.6},
	"tj":    {Energy, 1e6 / 3.6},
	"therm": {Energy, 29.3071},

	"g":         {Mass, 0.001},
	"kg":        {Mass, 1},
	"t":         {Mass, 1e3},
	"ton":       {Mass, 1e3},
	"tonne":     {Mass, 1e3},
	"tonelada":  {Mass, 1e3},
	"toneladas": {Mass, 1e3},
	"lb":        {Mass, 0.45359237},

	"m":  {Distance, 0.001},
	"km": {Distance, 1},
	"mi": {Distance, 1.609344},

	"tkm":     {Freight, 1},
	"tonkm":   {Freight, 1},
	"tonnekm": {Freight, 1},

	"usd":  {Currency, 1},
	"kusd": {Currency, 1e3},
	"musd": {Currency, 1e6},

	"l":      {Volume, 0.001},
	"litro":  {Volume, 0.001},
	"litros": {Volume, 0.001},
	"m3":     {Volume, 1},
}

// Canonical lowercases a unit and drops every non-alphanumeric rune, so
// "ton-km", "Ton km" and "TONKM" compare equal.
func Canonical(unit string) string {
	var b strings.Builder
	b.Grow(len(unit))
	for _, r := range strings.ToLower(unit) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Same reports whether two unit spellings denote the same unit.
func Same(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// FamilyOf returns the family of a unit and whether the unit is known.
func FamilyOf(unit string) (Family, bool) {
	d, ok := table[Canonical(unit)]
	return d.family, ok
}

// Known reports whether the unit belongs to a recognized family.
func Known(unit string) bool {
	_, ok := table[Canonical(unit)]
	return ok
}

// Normalize converts value from one unit to another. The boolean is false
// when the conversion is impossible (unknown unit or different families);
// callers must surface that rather than coerce the value.
func Normalize(value float64, from, to string) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	f, t := Canonical(from), Canonical(to)
	if f == t {
		return value, true
	}
	df, ok := table[f]
	if !ok {
		return 0, false
	}
	dt, ok := table[t]
	if !ok || df.family != dt.family {
		return 0, false
	}
	return value * df.toBase / dt.toBase, true
}
