package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ghg-footprint-backend/internal/application/footprint"
	"ghg-footprint-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestFactorStore_UpsertAndFind(t *testing.T) {
	db := setupDB(t)
	store := &FactorStore{DB: db}
	ctx := context.Background()

	saved, err := store.UpsertFactors(ctx, []domain.EmissionFactor{
		{Scope: domain.Scope2, Category: "electricidad", Year: 2024, CountryCode: strPtr("MX"), Value: 0.000423, ActivityUnit: "kWh"},
		{Scope: domain.Scope2, Category: "electricidad", Year: 2024, Value: 0.000436, ActivityUnit: "kWh"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	_, err = store.UpsertFactors(ctx, []domain.EmissionFactor{
		{Scope: domain.Scope2, Category: "electricidad", Year: 2024, CountryCode: strPtr("MX"), Value: 0.0004, ActivityUnit: "kWh", Source: "SEMARNAT"},
	})
	require.NoError(t, err)

	mx, err := store.FindFactors(ctx, strPtr("MX"), 2024)
	require.NoError(t, err)
	require.Len(t, mx, 1)
	assert.Equal(t, 0.0004, mx[0].Value)
	assert.Equal(t, "SEMARNAT", mx[0].Source)
	assert.Equal(t, domain.ResultUnit, mx[0].ResultUnit)

	global, err := store.FindFactors(ctx, nil, 2024)
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Nil(t, global[0].CountryCode)

	var count int64
	require.NoError(t, db.Model(&domain.EmissionFactor{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestFactorStore_DuplicateKeysInBatch(t *testing.T) {
	store := &FactorStore{DB: setupDB(t)}

	saved, err := store.UpsertFactors(context.Background(), []domain.EmissionFactor{
		{Scope: domain.Scope1, Category: "refrigerantes", Year: 2024, Value: 1, ActivityUnit: "kg"},
		{Scope: domain.Scope1, Category: "refrigerantes", Year: 2024, Value: 2, ActivityUnit: "kg"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 2.0, saved[0].Value)
}

func TestFactorStore_FactorYears(t *testing.T) {
	store := &FactorStore{DB: setupDB(t)}
	ctx := context.Background()
	for _, y := range []int{2022, 2020, 2022} {
		_, err := store.UpsertFactors(ctx, []domain.EmissionFactor{
			{Scope: domain.Scope2, Category: "electricidad", Year: y, CountryCode: strPtr("CL"), Value: 0.0003, ActivityUnit: "kWh"},
		})
		require.NoError(t, err)
	}

	years, err := store.FactorYears(ctx, "CL")
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2022}, years)

	years, err = store.FactorYears(ctx, "AR")
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestFactorResolver_SeedsThroughStore(t *testing.T) {
	r := &footprint.FactorResolver{Store: &FactorStore{DB: setupDB(t)}}

	set, err := r.ResolveFactorSet(context.Background(), strPtr("ZZ"), 2024)
	require.NoError(t, err)
	assert.Nil(t, set.CountryCode)
	assert.Len(t, set.Factors, len(footprint.DefaultFactorSet(2024)))

	again, err := r.ResolveFactorSet(context.Background(), nil, 2024)
	require.NoError(t, err)
	assert.Len(t, again.Factors, len(set.Factors))
}

func sampleSnapshot(company uuid.UUID, period string, total float64) *domain.FootprintSnapshot {
	return &domain.FootprintSnapshot{
		CompanyID:       company,
		Period:          period,
		Scope2:          total,
		Total:           total,
		FactorsMetadata: datatypes.JSON(`{"year":2024}`),
		Metadata:        datatypes.JSON(`{}`),
		CalculatedAt:    time.Now().UTC(),
		Breakdown: []domain.BreakdownItem{
			{Scope: domain.Scope2, Category: "electricidad", Unit: "kWh", Result: total, Source: footprint.SourceIngestion},
		},
		Scenarios: []domain.ScenarioRecord{
			{Name: "a", Scope: domain.Scope2, Category: "electricidad", ReductionPercent: 10},
			{Name: "b", Scope: domain.Scope3, Category: "logistica", ReductionPercent: 15},
		},
	}
}

func TestSnapshotStore_SaveReplacesChildren(t *testing.T) {
	db := setupDB(t)
	store := &SnapshotStore{DB: db}
	ctx := context.Background()
	company := uuid.New()

	first := sampleSnapshot(company, "2024-Q1", 1.5)
	require.NoError(t, store.SaveSnapshot(ctx, first))
	assert.Equal(t, 1, first.Version)

	second := sampleSnapshot(company, "2024-Q1", 2.5)
	second.Breakdown = append(second.Breakdown, domain.BreakdownItem{
		Scope: domain.Scope2, Category: footprint.AdjustmentCategory, Unit: domain.ResultUnit, Source: footprint.SourceReported,
	})
	require.NoError(t, store.SaveSnapshot(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)

	got, err := store.FindSnapshot(ctx, company, "2024-Q1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2.5, got.Total)
	assert.Equal(t, 2, got.Version)
	require.Len(t, got.Breakdown, 2)
	assert.Equal(t, footprint.AdjustmentCategory, got.Breakdown[1].Category)
	assert.Len(t, got.Scenarios, 2)
	assert.Equal(t, "a", got.Scenarios[0].Name)

	var items, scenarios int64
	require.NoError(t, db.Model(&domain.BreakdownItem{}).Count(&items).Error)
	require.NoError(t, db.Model(&domain.ScenarioRecord{}).Count(&scenarios).Error)
	assert.Equal(t, int64(2), items)
	assert.Equal(t, int64(2), scenarios)
}

func TestSnapshotStore_StaleVersionRejected(t *testing.T) {
	db := setupDB(t)
	store := &SnapshotStore{DB: db}
	ctx := context.Background()
	company := uuid.New()

	require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot(company, "2024", 1)))
	cur, err := store.FindSnapshot(ctx, company, "2024")
	require.NoError(t, err)

	// A competing save bumps the version after cur was read.
	require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot(company, "2024", 2)))

	err = db.Transaction(func(tx *gorm.DB) error {
		return replaceSnapshot(tx, cur, sampleSnapshot(company, "2024", 3))
	})
	assert.ErrorIs(t, err, footprint.ErrCalculationInProgress)

	got, err := store.FindSnapshot(ctx, company, "2024")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Total)
	assert.Len(t, got.Breakdown, 1)
}

func TestSnapshotStore_FindMissing(t *testing.T) {
	store := &SnapshotStore{DB: setupDB(t)}

	got, err := store.FindSnapshot(context.Background(), uuid.New(), "2024")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotStore_ListSnapshots(t *testing.T) {
	store := &SnapshotStore{DB: setupDB(t)}
	ctx := context.Background()
	company := uuid.New()
	for _, p := range []string{"2024-Q2", "2023-Q4", "2024-Q1"} {
		require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot(company, p, 1)))
	}
	require.NoError(t, store.SaveSnapshot(ctx, sampleSnapshot(uuid.New(), "2024-Q1", 1)))

	snaps, err := store.ListSnapshots(ctx, company)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "2023-Q4", snaps[0].Period)
}

func TestMetricsStore_FindMetrics(t *testing.T) {
	db := setupDB(t)
	store := &MetricsStore{DB: db}
	company := uuid.New()
	require.NoError(t, db.Create(&domain.MetricsSnapshot{
		CompanyID: company,
		Period:    "2024",
		Data: datatypes.JSON(`{
			"environmental": {"energiaKwh": 1200, "aguaM3": "35.5", "comentario": "n/a", "nested": {"x": 1}},
			"social": {"empleados": 40}
		}`),
	}).Error)

	m, err := store.FindMetrics(context.Background(), company, "2024")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, m["environmental.energiaKwh"])
	assert.Equal(t, 35.5, m["environmental.aguaM3"])
	assert.Equal(t, 1.0, m["environmental.nested.x"])
	assert.Equal(t, 40.0, m["social.empleados"])
	_, ok := m["environmental.comentario"]
	assert.False(t, ok)

	none, err := store.FindMetrics(context.Background(), company, "2019")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIngestionStore_FindItems(t *testing.T) {
	db := setupDB(t)
	store := &IngestionStore{DB: db}
	company := uuid.New()
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]domain.IngestionItem{
		{CompanyID: company, Period: "2024-Q1", Indicator: "Electricidad marzo", Value: 300, Unit: "kWh", RecordedAt: base.AddDate(0, 1, 0)},
		{CompanyID: company, Period: "2024-Q1", Indicator: "Electricidad enero", Value: 100, Unit: "kWh", RecordedAt: base.AddDate(0, -1, 0)},
		{CompanyID: company, Period: "2024-Q2", Indicator: "Electricidad abril", Value: 50, Unit: "kWh", RecordedAt: base},
	}).Error)

	items, err := store.FindItems(context.Background(), company, "2024-Q1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Electricidad enero", items[0].Indicator)
}
