package footprint

import (
	"fmt"
	"strings"

	"ghg-footprint-backend/internal/domain"
	"ghg-footprint-backend/internal/pkg/numeric"
)

// DefaultScenarios are evaluated when a calculation requests none.
func DefaultScenarios() []ScenarioInput {
	return []ScenarioInput{
		{
			Name:             "Eficiencia energética",
			Description:      "Reducir 10% el consumo eléctrico (alcance 2)",
			Scope:            domain.Scope2,
			Category:         "electricidad",
			ReductionPercent: 10,
		},
		{
			Name:             "Optimización logística",
			Description:      "Reducir 15% las emisiones de transporte de carga (alcance 3)",
			Scope:            domain.Scope3,
			Category:         "logistica",
			ReductionPercent: 15,
		},
	}
}

// ProjectScenario applies a percentage reduction to the matching part of a
// breakdown. Scope and category accept the "all" wildcard.
func ProjectScenario(totals Totals, items []domain.BreakdownItem, in ScenarioInput) domain.ScenarioRecord {
	scope := normalizeFilter(in.Scope)
	category := normalizeFilter(in.Category)
	pct := in.ReductionPercent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	scopeTotal := totals.Get(scope)
	baseline := scopeTotal
	if category != Wildcard {
		baseline = 0
		for _, it := range items {
			if (scope == Wildcard || it.Scope == scope) && it.Category == category {
				baseline += it.Result
			}
		}
		baseline = numeric.Emissions(baseline)
	}

	reduction := numeric.Emissions(baseline * pct / 100)
	projected := numeric.NonNegative(numeric.Emissions(scopeTotal - reduction))

	name := in.Name
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Reducción %s%% %s", numeric.FormatPercent(pct), describeFilter(scope, category))
	}
	description := in.Description
	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("Reducir %s%% de las emisiones de %s", numeric.FormatPercent(pct), describeFilter(scope, category))
	}

	return domain.ScenarioRecord{
		Name:             name,
		Description:      description,
		Scope:            scope,
		Category:         category,
		ReductionPercent: pct,
		Baseline:         baseline,
		Reduction:        reduction,
		Projected:        projected,
		Delta:            numeric.Emissions(projected - scopeTotal),
	}
}

// ProjectScenarios evaluates each input, or the defaults when there are none.
func ProjectScenarios(totals Totals, items []domain.BreakdownItem, in []ScenarioInput) []domain.ScenarioRecord {
	if len(in) == 0 {
		in = DefaultScenarios()
	}
	out := make([]domain.ScenarioRecord, 0, len(in))
	for i, s := range in {
		rec := ProjectScenario(totals, items, s)
		rec.Position = i
		out = append(out, rec)
	}
	return out
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, Wildcard) {
		return Wildcard
	}
	return v
}

func describeFilter(scope, category string) string {
	switch {
	case scope == Wildcard && category == Wildcard:
		return "todos los alcances"
	case category == Wildcard:
		return scope
	case scope == Wildcard:
		return category
	}
	return scope + "/" + category
}
