package footprint

import (
	"encoding/json"
	"time"

	"ghg-footprint-backend/internal/domain"

	"github.com/google/uuid"
)

// Activity bundle sources.
const (
	SourceIngestion = "ingestion"
	SourceMetricas  = "metricas"
	SourceReported  = "reportado"
)

const (
	// Wildcard matches any scope or category in a scenario filter.
	Wildcard = "all"
	// AdjustmentCategory labels the line that aligns a scope with reported emissions.
	AdjustmentCategory = "ajuste_reportado"
	// DefaultHistoryLimit is the number of periods returned by ListHistory.
	DefaultHistoryLimit = 12
)

// Metrics is a flattened view of a company's self-reported indicators keyed
// by dotted path, e.g. "environmental.energiaKwh". A nil Metrics means no
// metrics record exists for the period.
type Metrics map[string]float64

// ActivityBundle is the aggregated activity of one scope/category.
type ActivityBundle struct {
	Scope    string  `json:"scope"`
	Category string  `json:"category"`
	Activity float64 `json:"activity"`
	Unit     string  `json:"unit"`
	Source   string  `json:"source"`
}

// Activities groups bundles by scope, then category.
type Activities map[string]map[string]ActivityBundle

func (a Activities) add(b ActivityBundle) {
	if a[b.Scope] == nil {
		a[b.Scope] = map[string]ActivityBundle{}
	}
	a[b.Scope][b.Category] = b
}

// DirectEmissions are scope totals the company reported itself, in tCO2e.
// A nil field means nothing was reported for that scope.
type DirectEmissions struct {
	Scope1 *float64 `json:"scope1"`
	Scope2 *float64 `json:"scope2"`
	Scope3 *float64 `json:"scope3"`
}

// For returns the reported value for a scope.
func (d DirectEmissions) For(scope string) *float64 {
	switch scope {
	case domain.Scope1:
		return d.Scope1
	case domain.Scope2:
		return d.Scope2
	case domain.Scope3:
		return d.Scope3
	}
	return nil
}

// CategoryMetadata records where a bundle came from.
type CategoryMetadata struct {
	Source      string   `json:"source"`
	Indicators  []string `json:"indicators,omitempty"`
	Skipped     []string `json:"skipped,omitempty"`
	MetricField string   `json:"metricField,omitempty"`
}

// Extraction is the output of the activity aggregator.
type Extraction struct {
	Activities      Activities                  `json:"activities"`
	DirectEmissions DirectEmissions             `json:"directEmissions"`
	Metadata        map[string]CategoryMetadata `json:"activityMetadata"`
	Notes           []string                    `json:"notes"`
}

// Totals are per-scope and grand totals in tCO2e.
type Totals struct {
	Scope1 float64 `json:"scope1"`
	Scope2 float64 `json:"scope2"`
	Scope3 float64 `json:"scope3"`
	Total  float64 `json:"total"`
}

// Get returns the total of a scope, or the grand total for the wildcard.
func (t Totals) Get(scope string) float64 {
	switch scope {
	case domain.Scope1:
		return t.Scope1
	case domain.Scope2:
		return t.Scope2
	case domain.Scope3:
		return t.Scope3
	}
	return t.Total
}

func (t *Totals) set(scope string, v float64) {
	switch scope {
	case domain.Scope1:
		t.Scope1 = v
	case domain.Scope2:
		t.Scope2 = v
	case domain.Scope3:
		t.Scope3 = v
	}
}

// TotalsOf reads the totals stored on a snapshot.
func TotalsOf(s *domain.FootprintSnapshot) Totals {
	return Totals{Scope1: s.Scope1, Scope2: s.Scope2, Scope3: s.Scope3, Total: s.Total}
}

// ScenarioInput describes a hypothetical reduction.
type ScenarioInput struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Scope            string  `json:"scope" validate:"required,oneof=scope1 scope2 scope3 all"`
	Category         string  `json:"category"`
	ReductionPercent float64 `json:"reductionPercent" validate:"gte=0,lte=100"`
}

// RawFactor is an emission factor as supplied to SyncFactors.
type RawFactor struct {
	Scope        string  `json:"scope" validate:"required,oneof=scope1 scope2 scope3"`
	Category     string  `json:"category" validate:"required"`
	Year         *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	CountryCode  *string `json:"countryCode" validate:"omitempty,len=2"`
	Value        float64 `json:"value" validate:"gte=0"`
	ActivityUnit string  `json:"activityUnit" validate:"required"`
	Source       string  `json:"source"`
}

// TimelineEntry is one period of a company's emissions history.
type TimelineEntry struct {
	Period        string   `json:"period"`
	Scope1        float64  `json:"scope1"`
	Scope2        float64  `json:"scope2"`
	Scope3        float64  `json:"scope3"`
	Total         float64  `json:"total"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
}

// SnapshotMetadata is stored in the snapshot metadata column.
type SnapshotMetadata struct {
	MappingVersion   int                         `json:"mappingVersion"`
	Activities       Activities                  `json:"activities"`
	DirectEmissions  DirectEmissions             `json:"directEmissions"`
	ActivityMetadata map[string]CategoryMetadata `json:"activityMetadata"`
	Notes            []string                    `json:"notes"`
}

// SnapshotNotes returns the engine notes stored with a snapshot.
func SnapshotNotes(s *domain.FootprintSnapshot) []string {
	var meta SnapshotMetadata
	if s == nil || len(s.Metadata) == 0 || json.Unmarshal(s.Metadata, &meta) != nil {
		return nil
	}
	return meta.Notes
}

// ComputeInput are the arguments of ComputeFootprint.
type ComputeInput struct {
	CompanyID   uuid.UUID
	Period      string
	CountryCode *string
	Scenarios   []ScenarioInput
	Persist     bool
}

// ComputeResult is returned by ComputeFootprint.
type ComputeResult struct {
	Snapshot  *domain.FootprintSnapshot `json:"snapshot"`
	Breakdown []domain.BreakdownItem    `json:"breakdown"`
	Scenarios []domain.ScenarioRecord   `json:"scenarios"`
	History   []TimelineEntry           `json:"history"`
	Notes     []string                  `json:"notes"`
	Persisted bool                      `json:"persisted"`
}

// SimulationResult is returned by SimulateScenario.
type SimulationResult struct {
	Snapshot *domain.FootprintSnapshot `json:"snapshot"`
	Scenario domain.ScenarioRecord     `json:"scenario"`
}

func metadataKey(scope, category string) string {
	return scope + "." + category
}

func nowOr(f func() time.Time) time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}
