package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MetricsSnapshot holds the self-reported indicators of a company for a
// period, grouped in sections, e.g. {"environmental": {"energiaKwh": 1200}}.
type MetricsSnapshot struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID      `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_metrics_company_period" json:"companyId"`
	Period    string         `gorm:"column:period;type:varchar(20);not null;uniqueIndex:idx_metrics_company_period" json:"period"`
	Data      datatypes.JSON `gorm:"column:data" json:"data"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (MetricsSnapshot) TableName() string {
	return "MetricsSnapshots"
}

func (m *MetricsSnapshot) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IngestionItem is one activity value extracted from an ingested document.
type IngestionItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID  uuid.UUID `gorm:"column:company_id;type:uuid;not null;index:idx_ingestion_company_period" json:"companyId"`
	Period     string    `gorm:"column:period;type:varchar(20);not null;index:idx_ingestion_company_period" json:"period"`
	Indicator  string    `gorm:"column:indicator;not null" json:"indicator"`
	Value      float64   `gorm:"column:value;not null" json:"value"`
	Unit       string    `gorm:"column:unit;type:varchar(20)" json:"unit"`
	Source     string    `gorm:"column:source" json:"source"`
	RecordedAt time.Time `gorm:"column:recordedAt" json:"recordedAt"`
	CreatedAt  time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (IngestionItem) TableName() string {
	return "IngestionItems"
}

func (i *IngestionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
