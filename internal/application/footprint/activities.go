package footprint

import (
	"fmt"

	"ghg-footprint-backend/internal/domain"
	"ghg-footprint-backend/internal/pkg/units"
)

// Aggregator fuses ingestion items and legacy metrics into activity bundles.
type Aggregator struct {
	Mapping *ActivityMapping
}

// NewAggregator returns an aggregator over the given mapping, or the
// embedded one when m is nil.
func NewAggregator(m *ActivityMapping) *Aggregator {
	if m == nil {
		m = DefaultMapping()
	}
	return &Aggregator{Mapping: m}
}

// Extract builds one bundle per category that has data. Ingestion items take
// precedence over the category's legacy metric field; categories with neither
// are omitted.
func (a *Aggregator) Extract(metrics Metrics, items []domain.IngestionItem) Extraction {
	out := Extraction{
		Activities: Activities{},
		Metadata:   map[string]CategoryMetadata{},
		Notes:      []string{},
	}

	matched := make([][]domain.IngestionItem, len(a.Mapping.Categories))
	for _, it := range items {
		if i := a.Mapping.Match(it.Indicator); i >= 0 {
			matched[i] = append(matched[i], it)
		}
	}

	for i, c := range a.Mapping.Categories {
		key := metadataKey(c.Scope, c.Category)
		meta := CategoryMetadata{}
		sum, converted := 0.0, 0
		for _, it := range matched[i] {
			v, ok := units.Normalize(it.Value, it.Unit, c.Unit)
			if !ok {
				meta.Skipped = append(meta.Skipped, it.Indicator)
				out.Notes = append(out.Notes, fmt.Sprintf("ingestion item %q: cannot convert %s to %s for %s", it.Indicator, it.Unit, c.Unit, key))
				continue
			}
			sum += v
			converted++
			meta.Indicators = append(meta.Indicators, it.Indicator)
		}

		if converted > 0 {
			meta.Source = SourceIngestion
			out.Activities.add(ActivityBundle{Scope: c.Scope, Category: c.Category, Activity: sum, Unit: c.Unit, Source: SourceIngestion})
			out.Metadata[key] = meta
			continue
		}

		if c.Legacy == nil {
			if len(meta.Skipped) > 0 {
				out.Metadata[key] = meta
			}
			continue
		}
		raw, ok := metrics[c.Legacy.Field]
		if !ok {
			if len(meta.Skipped) > 0 {
				out.Metadata[key] = meta
			}
			continue
		}
		v, ok := units.Normalize(raw, c.Legacy.Unit, c.Unit)
		if !ok {
			out.Notes = append(out.Notes, fmt.Sprintf("metric %s: cannot convert %s to %s for %s", c.Legacy.Field, c.Legacy.Unit, c.Unit, key))
			continue
		}
		meta.Source = SourceMetricas
		meta.MetricField = c.Legacy.Field
		out.Activities.add(ActivityBundle{Scope: c.Scope, Category: c.Category, Activity: v, Unit: c.Unit, Source: SourceMetricas})
		out.Metadata[key] = meta
	}

	out.DirectEmissions = a.directEmissions(metrics)
	return out
}

func (a *Aggregator) directEmissions(metrics Metrics) DirectEmissions {
	var d DirectEmissions
	lookup := func(scope string) *float64 {
		field, ok := a.Mapping.DirectEmissions[scope]
		if !ok {
			return nil
		}
		v, ok := metrics[field]
		if !ok {
			return nil
		}
		return &v
	}
	d.Scope1 = lookup(domain.Scope1)
	d.Scope2 = lookup(domain.Scope2)
	d.Scope3 = lookup(domain.Scope3)
	return d
}
