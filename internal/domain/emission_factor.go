package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GHG Protocol scopes.
const (
	Scope1 = "scope1"
	Scope2 = "scope2"
	Scope3 = "scope3"
)

// Scopes lists the scopes in reporting order.
var Scopes = []string{Scope1, Scope2, Scope3}

// ResultUnit is the unit every factor yields.
const ResultUnit = "tCO2e"

// EmissionFactor converts one activity unit into tCO2e for a scope/category,
// optionally specific to a country. CountryKey mirrors CountryCode ("" for
// global) so the unique index also holds for global rows.
type EmissionFactor struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Scope        string    `gorm:"column:scope;type:varchar(10);not null;uniqueIndex:idx_factor_key" json:"scope"`
	Category     string    `gorm:"column:category;type:varchar(80);not null;uniqueIndex:idx_factor_key" json:"category"`
	Year         int       `gorm:"column:year;not null;uniqueIndex:idx_factor_key" json:"year"`
	CountryKey   string    `gorm:"column:country_key;type:varchar(2);not null;default:'';uniqueIndex:idx_factor_key" json:"-"`
	CountryCode  *string   `gorm:"column:country_code;type:varchar(2)" json:"countryCode"`
	Value        float64   `gorm:"column:value;not null" json:"value"`
	ActivityUnit string    `gorm:"column:activity_unit;type:varchar(20);not null" json:"activityUnit"`
	ResultUnit   string    `gorm:"column:result_unit;type:varchar(10);not null;default:'tCO2e'" json:"resultUnit"`
	Source       string    `gorm:"column:source" json:"source"`
	CreatedAt    time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (EmissionFactor) TableName() string {
	return "EmissionFactors"
}

// BeforeSave keeps CountryKey and ResultUnit consistent with the exported fields.
func (f *EmissionFactor) BeforeSave(tx *gorm.DB) error {
	f.CountryKey = ""
	if f.CountryCode != nil {
		f.CountryKey = *f.CountryCode
	}
	if f.ResultUnit == "" {
		f.ResultUnit = ResultUnit
	}
	return nil
}

func (f *EmissionFactor) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// IsValidScope reports whether s is one of scope1, scope2, scope3.
func IsValidScope(s string) bool {
	return s == Scope1 || s == Scope2 || s == Scope3
}
