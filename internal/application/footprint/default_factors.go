package footprint

import "ghg-footprint-backend/internal/domain"

// DefaultFactor is a global factor seeded when the store has none for a year.
type DefaultFactor struct {
	Scope        string
	Category     string
	Value        float64
	ActivityUnit string
	Source       string
}

// defaultFactors covers every category of the embedded activity mapping.
var defaultFactors = []DefaultFactor{
	{domain.Scope1, "combustion_estacionaria", 0.0561, "GJ", "IPCC 2006 Vol.2 Table 2.2 (natural gas, 56.1 kgCO2/GJ)"},
	{domain.Scope1, "combustion_movil", 0.000171, "km", "DEFRA 2023 average car, unknown fuel"},
	{domain.Scope1, "refrigerantes", 1.43, "kg", "IPCC AR4 GWP100 HFC-134a"},
	{domain.Scope2, "electricidad", 0.000436, "kWh", "IEA 2022 world average grid intensity"},
	{domain.Scope3, "logistica", 0.000107, "tkm", "DEFRA 2023 HGV all diesel, average laden"},
	{domain.Scope3, "viajes_negocio", 0.000151, "km", "DEFRA 2023 short-haul flight, economy"},
	{domain.Scope3, "residuos", 0.467, "t", "DEFRA 2023 commercial waste to landfill"},
	{domain.Scope3, "agua", 0.000149, "m3", "DEFRA 2023 water supply"},
	{domain.Scope3, "compras", 0.00031, "USD", "US EEIO v2 economy-wide average"},
}

// DefaultFactorSet returns the built-in global factors for a year.
func DefaultFactorSet(year int) []domain.EmissionFactor {
	out := make([]domain.EmissionFactor, 0, len(defaultFactors))
	for _, d := range defaultFactors {
		out = append(out, domain.EmissionFactor{
			Scope:        d.Scope,
			Category:     d.Category,
			Year:         year,
			Value:        d.Value,
			ActivityUnit: d.ActivityUnit,
			ResultUnit:   domain.ResultUnit,
			Source:       d.Source,
		})
	}
	return out
}
