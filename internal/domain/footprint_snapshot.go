package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FootprintSnapshot is the persisted result of one footprint calculation.
// Exactly one row exists per (company_id, period); Version increments on
// every recalculation and tags the child rows that belong to it.
type FootprintSnapshot struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID       uuid.UUID        `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_snapshot_company_period" json:"companyId"`
	Period          string           `gorm:"column:period;type:varchar(20);not null;uniqueIndex:idx_snapshot_company_period" json:"period"`
	Scope1          float64          `gorm:"column:scope1;not null;default:0" json:"scope1"`
	Scope2          float64          `gorm:"column:scope2;not null;default:0" json:"scope2"`
	Scope3          float64          `gorm:"column:scope3;not null;default:0" json:"scope3"`
	Total           float64          `gorm:"column:total;not null;default:0" json:"total"`
	FactorsMetadata datatypes.JSON   `gorm:"column:factors_metadata" json:"factors"`
	Metadata        datatypes.JSON   `gorm:"column:metadata" json:"metadata"`
	Version         int              `gorm:"column:version;not null;default:1" json:"version"`
	CalculatedAt    time.Time        `gorm:"column:calculatedAt;not null" json:"calculatedAt"`
	CreatedAt       time.Time        `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"column:updatedAt" json:"updatedAt"`
	Breakdown       []BreakdownItem  `gorm:"-" json:"breakdown"`
	Scenarios       []ScenarioRecord `gorm:"-" json:"scenarios"`
}

func (FootprintSnapshot) TableName() string {
	return "FootprintSnapshots"
}

func (s *FootprintSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BreakdownItem is one category line of a snapshot. Activity and Factor are
// nil on adjustment lines and on lines that could not be computed.
type BreakdownItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"-"`
	SnapshotID      uuid.UUID `gorm:"column:snapshot_id;type:uuid;not null;index:idx_breakdown_snapshot" json:"-"`
	SnapshotVersion int       `gorm:"column:snapshot_version;not null;index:idx_breakdown_snapshot" json:"-"`
	Position        int       `gorm:"column:position;not null" json:"-"`
	Scope           string    `gorm:"column:scope;type:varchar(10);not null" json:"scope"`
	Category        string    `gorm:"column:category;type:varchar(80);not null" json:"category"`
	Activity        *float64  `gorm:"column:activity" json:"activity"`
	Unit            string    `gorm:"column:unit;type:varchar(20)" json:"unit"`
	Factor          *float64  `gorm:"column:factor" json:"factor"`
	Result          float64   `gorm:"column:result;not null;default:0" json:"result"`
	Source          string    `gorm:"column:source;type:varchar(20)" json:"source"`
	Notes           *string   `gorm:"column:notes" json:"notes"`
}

func (BreakdownItem) TableName() string {
	return "FootprintBreakdownItems"
}

func (b *BreakdownItem) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ScenarioRecord is a reduction scenario evaluated against a snapshot.
type ScenarioRecord struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"-"`
	SnapshotID       uuid.UUID `gorm:"column:snapshot_id;type:uuid;not null;index:idx_scenario_snapshot" json:"-"`
	SnapshotVersion  int       `gorm:"column:snapshot_version;not null;index:idx_scenario_snapshot" json:"-"`
	Position         int       `gorm:"column:position;not null" json:"-"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	Description      string    `gorm:"column:description" json:"description"`
	Scope            string    `gorm:"column:scope;type:varchar(10);not null" json:"scope"`
	Category         string    `gorm:"column:category;type:varchar(80);not null" json:"category"`
	ReductionPercent float64   `gorm:"column:reduction_percent;not null" json:"reductionPercent"`
	Baseline         float64   `gorm:"column:baseline;not null" json:"baseline"`
	Reduction        float64   `gorm:"column:reduction;not null" json:"reduction"`
	Projected        float64   `gorm:"column:projected;not null" json:"projected"`
	Delta            float64   `gorm:"column:delta;not null" json:"delta"`
}

func (ScenarioRecord) TableName() string {
	return "FootprintScenarios"
}

func (s *ScenarioRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
