package footprint

import (
	"fmt"
	"math"
	"sort"

	"ghg-footprint-backend/internal/domain"
	"ghg-footprint-backend/internal/pkg/numeric"
	"ghg-footprint-backend/internal/pkg/units"
)

const (
	noteMissingFactor = "missing factor"
	noteAdjustment    = "adjustment to align with reported emissions"

	// reconcileThreshold is the smallest gap between reported and computed
	// scope totals that triggers an adjustment line.
	reconcileThreshold = 0.01
)

// BreakdownResult is the output of ComputeBreakdown.
type BreakdownResult struct {
	Items  []domain.BreakdownItem `json:"breakdown"`
	Totals Totals                 `json:"totals"`
	Notes  []string               `json:"notes"`
}

// ComputeBreakdown turns activity bundles into per-category emissions and
// reconciles each scope against the company's reported totals. Items are
// ordered by scope and then by category name.
func ComputeBreakdown(activities Activities, factors FactorMap, direct DirectEmissions) BreakdownResult {
	res := BreakdownResult{Items: []domain.BreakdownItem{}, Notes: []string{}}
	var totals Totals

	for _, scope := range domain.Scopes {
		bundles := activities[scope]
		categories := make([]string, 0, len(bundles))
		for c := range bundles {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		computed := 0.0
		for _, c := range categories {
			item, note := breakdownItem(bundles[c], factors)
			if note != "" {
				res.Notes = append(res.Notes, note)
			}
			computed += item.Result
			res.Items = append(res.Items, item)
		}
		computed = numeric.Emissions(computed)
		totals.set(scope, computed)

		reported := direct.For(scope)
		if reported == nil {
			continue
		}
		gap := *reported - computed
		if numeric.Round(math.Abs(gap), 6) < reconcileThreshold {
			continue
		}
		note := noteAdjustment
		res.Items = append(res.Items, domain.BreakdownItem{
			Scope:    scope,
			Category: AdjustmentCategory,
			Unit:     domain.ResultUnit,
			Result:   numeric.Emissions(gap),
			Source:   SourceReported,
			Notes:    &note,
		})
		totals.set(scope, *reported)
	}

	for _, scope := range domain.Scopes {
		totals.set(scope, numeric.Emissions(numeric.NonNegative(totals.Get(scope))))
	}
	totals.Total = numeric.Emissions(totals.Scope1 + totals.Scope2 + totals.Scope3)
	res.Totals = totals

	for i := range res.Items {
		res.Items[i].Position = i
	}
	return res
}

func breakdownItem(b ActivityBundle, factors FactorMap) (domain.BreakdownItem, string) {
	activity := b.Activity
	item := domain.BreakdownItem{
		Scope:    b.Scope,
		Category: b.Category,
		Activity: &activity,
		Unit:     b.Unit,
		Source:   b.Source,
	}

	f, ok := factors.Lookup(b.Scope, b.Category)
	if !ok {
		note := noteMissingFactor
		item.Notes = &note
		return item, fmt.Sprintf("%s: no emission factor, excluded from totals", metadataKey(b.Scope, b.Category))
	}

	converted, ok := units.Normalize(b.Activity, b.Unit, f.ActivityUnit)
	if !ok {
		note := fmt.Sprintf("cannot convert %s to %s", b.Unit, f.ActivityUnit)
		item.Notes = &note
		return item, fmt.Sprintf("%s: %s", metadataKey(b.Scope, b.Category), note)
	}

	value := f.Value
	item.Activity = &converted
	item.Unit = f.ActivityUnit
	item.Factor = &value
	item.Result = numeric.Emissions(converted * value)
	return item, ""
}
