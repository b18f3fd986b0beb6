package footprint

import (
	"testing"

	"ghg-footprint-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_IngestionTakesPrecedence(t *testing.T) {
	a := NewAggregator(nil)
	metrics := Metrics{"environmental.energiaKwh": 999}
	items := []domain.IngestionItem{
		{Indicator: "Energía eléctrica planta", Value: 1, Unit: "MWh"},
		{Indicator: "Electricidad oficinas", Value: 500, Unit: "kWh"},
	}

	ext := a.Extract(metrics, items)

	b, ok := ext.Activities[domain.Scope2]["electricidad"]
	require.True(t, ok)
	assert.InDelta(t, 1500, b.Activity, 1e-9)
	assert.Equal(t, "kWh", b.Unit)
	assert.Equal(t, SourceIngestion, b.Source)
	assert.ElementsMatch(t, []string{"Energía eléctrica planta", "Electricidad oficinas"}, ext.Metadata["scope2.electricidad"].Indicators)
}

func TestExtract_LegacyFallback(t *testing.T) {
	a := NewAggregator(nil)
	ext := a.Extract(Metrics{"environmental.residuosKg": 2500}, nil)

	b, ok := ext.Activities[domain.Scope3]["residuos"]
	require.True(t, ok)
	assert.InDelta(t, 2.5, b.Activity, 1e-9)
	assert.Equal(t, "t", b.Unit)
	assert.Equal(t, SourceMetricas, b.Source)
	assert.Equal(t, "environmental.residuosKg", ext.Metadata["scope3.residuos"].MetricField)
}

func TestExtract_OmitsCategoriesWithoutData(t *testing.T) {
	a := NewAggregator(nil)
	ext := a.Extract(Metrics{"environmental.energiaKwh": 100}, nil)

	assert.Len(t, ext.Activities, 1)
	assert.Len(t, ext.Activities[domain.Scope2], 1)
	_, ok := ext.Activities[domain.Scope3]["logistica"]
	assert.False(t, ok)
}

func TestExtract_UnconvertibleItemSkipped(t *testing.T) {
	a := NewAggregator(nil)
	items := []domain.IngestionItem{
		{Indicator: "Electricidad", Value: 10, Unit: "litros"},
	}
	ext := a.Extract(Metrics{"environmental.energiaKwh": 250}, items)

	b := ext.Activities[domain.Scope2]["electricidad"]
	assert.Equal(t, SourceMetricas, b.Source)
	assert.InDelta(t, 250, b.Activity, 1e-9)
	require.Len(t, ext.Notes, 1)
	assert.Contains(t, ext.Notes[0], "cannot convert")
	assert.Equal(t, []string{"Electricidad"}, ext.Metadata["scope2.electricidad"].Skipped)
}

func TestExtract_ItemCountsOnce(t *testing.T) {
	a := NewAggregator(nil)
	items := []domain.IngestionItem{
		{Indicator: "Consumo energético de combustible", Value: 40, Unit: "kWh"},
	}
	ext := a.Extract(nil, items)

	total := 0
	for _, cats := range ext.Activities {
		total += len(cats)
	}
	assert.Equal(t, 1, total)
}

func TestExtract_DirectEmissions(t *testing.T) {
	a := NewAggregator(nil)
	ext := a.Extract(Metrics{
		"environmental.emisionesAlcance1": 12.5,
		"environmental.emisionesAlcance3": 0,
	}, nil)

	require.NotNil(t, ext.DirectEmissions.Scope1)
	assert.Equal(t, 12.5, *ext.DirectEmissions.Scope1)
	assert.Nil(t, ext.DirectEmissions.Scope2)
	require.NotNil(t, ext.DirectEmissions.Scope3)
	assert.Equal(t, 0.0, *ext.DirectEmissions.Scope3)
}
