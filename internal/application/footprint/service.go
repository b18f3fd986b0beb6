package footprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ghg-footprint-backend/internal/domain"
	"ghg-footprint-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MetricsStore returns a company's self-reported indicators for a period.
// It returns nil Metrics and no error when the period has no record.
type MetricsStore interface {
	FindMetrics(ctx context.Context, companyID uuid.UUID, period string) (Metrics, error)
}

// IngestionStore returns the ingested activity items of a period.
type IngestionStore interface {
	FindItems(ctx context.Context, companyID uuid.UUID, period string) ([]domain.IngestionItem, error)
}

// SnapshotStore persists snapshots together with their breakdown and
// scenarios. SaveSnapshot must replace the children atomically and return
// ErrCalculationInProgress when a concurrent save wins. FindSnapshot returns
// nil and no error when nothing is stored.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *domain.FootprintSnapshot) error
	FindSnapshot(ctx context.Context, companyID uuid.UUID, period string) (*domain.FootprintSnapshot, error)
	ListSnapshots(ctx context.Context, companyID uuid.UUID) ([]domain.FootprintSnapshot, error)
}

// ErrLockNotObtained is returned by a Locker when the key is held elsewhere.
var ErrLockNotObtained = errors.New("lock not obtained")

// Locker serializes writes per key. Obtain returns a release function.
type Locker interface {
	Obtain(ctx context.Context, key string) (func(context.Context) error, error)
}

// Service computes, stores and queries footprints.
type Service struct {
	Metrics    MetricsStore
	Ingestion  IngestionStore
	Snapshots  SnapshotStore
	Resolver   *FactorResolver
	Aggregator *Aggregator
	Locker     Locker
	// DefaultCountry is used when a calculation does not name a country.
	DefaultCountry string
	Now            func() time.Time
}

var defaultAggregator = NewAggregator(nil)

// NewService wires a service over its stores. mapping may be nil for the
// embedded activity mapping.
func NewService(metrics MetricsStore, ingestion IngestionStore, snapshots SnapshotStore, factors FactorStore, cache FactorCache, locker Locker, mapping *ActivityMapping) *Service {
	return &Service{
		Metrics:    metrics,
		Ingestion:  ingestion,
		Snapshots:  snapshots,
		Resolver:   &FactorResolver{Store: factors, Cache: cache},
		Aggregator: NewAggregator(mapping),
		Locker:     locker,
	}
}

// ComputeFootprint calculates the footprint of a company for a period and,
// when in.Persist is set, stores it as the period's snapshot.
func (s *Service) ComputeFootprint(ctx context.Context, in ComputeInput) (*ComputeResult, error) {
	in.Period = strings.TrimSpace(in.Period)
	if in.CompanyID == uuid.Nil || in.Period == "" {
		return nil, fmt.Errorf("%w: company_id and period are required", ErrInvalidInput)
	}
	for i := range in.Scenarios {
		if err := validation.Struct(in.Scenarios[i]); err != nil {
			return nil, fmt.Errorf("%w: scenario %d: %v", ErrInvalidInput, i, err)
		}
	}

	now := nowOr(s.Now)
	country := NormalizeCountry(in.CountryCode)
	if country == nil && s.DefaultCountry != "" {
		country = NormalizeCountry(&s.DefaultCountry)
	}
	year := YearOf(in.Period, now)

	var (
		metrics   Metrics
		items     []domain.IngestionItem
		factors   *FactorSet
		factorErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.Metrics.FindMetrics(gctx, in.CompanyID, in.Period)
		if err != nil {
			return fmt.Errorf("load metrics: %w", err)
		}
		metrics = m
		return nil
	})
	g.Go(func() error {
		it, err := s.Ingestion.FindItems(gctx, in.CompanyID, in.Period)
		if err != nil {
			return fmt.Errorf("load ingestion items: %w", err)
		}
		items = it
		return nil
	})
	g.Go(func() error {
		// Kept apart from the group error so a missing source wins over a
		// factor failure.
		factors, factorErr = s.Resolver.ResolveFactorSet(gctx, country, year)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if metrics == nil && len(items) == 0 {
		return nil, fmt.Errorf("%w: company=%s period=%s", ErrNoSourceData, in.CompanyID, in.Period)
	}
	if factorErr != nil {
		return nil, factorErr
	}

	ext := s.aggregator().Extract(metrics, items)
	bd := ComputeBreakdown(ext.Activities, factors.Map(), ext.DirectEmissions)
	scenarios := ProjectScenarios(bd.Totals, bd.Items, in.Scenarios)
	notes := append(append([]string{}, ext.Notes...), bd.Notes...)

	snap, err := s.buildSnapshot(in, now, factors, ext, bd, scenarios, notes)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("company_id", in.CompanyID.String()).
		Str("period", in.Period).
		Float64("total", snap.Total).
		Int("items", len(bd.Items)).
		Int("notes", len(notes)).
		Msg("footprint computed")

	res := &ComputeResult{
		Snapshot:  snap,
		Breakdown: bd.Items,
		Scenarios: scenarios,
		Notes:     notes,
	}

	if in.Persist {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.save(context.WithoutCancel(ctx), snap); err != nil {
			return nil, err
		}
		res.Persisted = true
	}

	history, err := s.history(context.WithoutCancel(ctx), in.CompanyID, snap)
	if err != nil {
		return nil, err
	}
	res.History = history
	return res, nil
}

func (s *Service) buildSnapshot(in ComputeInput, now time.Time, factors *FactorSet, ext Extraction, bd BreakdownResult, scenarios []domain.ScenarioRecord, notes []string) (*domain.FootprintSnapshot, error) {
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return nil, fmt.Errorf("encode factors: %w", err)
	}
	metaJSON, err := json.Marshal(SnapshotMetadata{
		MappingVersion:   s.aggregator().Mapping.Version,
		Activities:       ext.Activities,
		DirectEmissions:  ext.DirectEmissions,
		ActivityMetadata: ext.Metadata,
		Notes:            notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return &domain.FootprintSnapshot{
		CompanyID:       in.CompanyID,
		Period:          in.Period,
		Scope1:          bd.Totals.Scope1,
		Scope2:          bd.Totals.Scope2,
		Scope3:          bd.Totals.Scope3,
		Total:           bd.Totals.Total,
		FactorsMetadata: factorsJSON,
		Metadata:        metaJSON,
		CalculatedAt:    now,
		Breakdown:       bd.Items,
		Scenarios:       scenarios,
	}, nil
}

func (s *Service) save(ctx context.Context, snap *domain.FootprintSnapshot) error {
	if s.Locker != nil {
		key := fmt.Sprintf("footprint:%s:%s", snap.CompanyID, snap.Period)
		release, err := s.Locker.Obtain(ctx, key)
		if errors.Is(err, ErrLockNotObtained) {
			log.Warn().Str("key", key).Msg("footprint write lock busy")
			return fmt.Errorf("%w: company=%s period=%s", ErrCalculationInProgress, snap.CompanyID, snap.Period)
		}
		if err != nil {
			return fmt.Errorf("obtain lock: %w", err)
		}
		defer func() {
			if err := release(ctx); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("release footprint write lock")
			}
		}()
	}
	if err := s.Snapshots.SaveSnapshot(ctx, snap); err != nil {
		if errors.Is(err, ErrCalculationInProgress) {
			log.Warn().Str("company_id", snap.CompanyID.String()).Str("period", snap.Period).Msg("concurrent footprint save")
			return err
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// history returns the company timeline with current replacing any stored
// snapshot of the same period.
func (s *Service) history(ctx context.Context, companyID uuid.UUID, current *domain.FootprintSnapshot) ([]TimelineEntry, error) {
	stored, err := s.Snapshots.ListSnapshots(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	merged := make([]domain.FootprintSnapshot, 0, len(stored)+1)
	for _, snap := range stored {
		if snap.Period != current.Period {
			merged = append(merged, snap)
		}
	}
	merged = append(merged, *current)
	return lastEntries(BuildTimeline(merged), DefaultHistoryLimit), nil
}

// GetSnapshot returns the stored snapshot of a period, or nil when there is none.
func (s *Service) GetSnapshot(ctx context.Context, companyID uuid.UUID, period string) (*domain.FootprintSnapshot, error) {
	period = strings.TrimSpace(period)
	if companyID == uuid.Nil || period == "" {
		return nil, fmt.Errorf("%w: company_id and period are required", ErrInvalidInput)
	}
	return s.Snapshots.FindSnapshot(ctx, companyID, period)
}

// ListHistory returns the most recent limit periods of a company, oldest
// first. A non-positive limit means DefaultHistoryLimit.
func (s *Service) ListHistory(ctx context.Context, companyID uuid.UUID, limit int) ([]TimelineEntry, error) {
	if companyID == uuid.Nil {
		return nil, fmt.Errorf("%w: company_id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	stored, err := s.Snapshots.ListSnapshots(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return lastEntries(BuildTimeline(stored), limit), nil
}

// SimulateScenario evaluates a scenario against a stored snapshot without
// changing it.
func (s *Service) SimulateScenario(ctx context.Context, companyID uuid.UUID, period string, in ScenarioInput) (*SimulationResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	snap, err := s.GetSnapshot(ctx, companyID, period)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: company=%s period=%s", ErrSnapshotNotFound, companyID, period)
	}
	return &SimulationResult{
		Snapshot: snap,
		Scenario: ProjectScenario(TotalsOf(snap), snap.Breakdown, in),
	}, nil
}

// SyncFactors upserts factors. With no factors it reseeds the built-in
// dataset for year; a nil year means the current year.
func (s *Service) SyncFactors(ctx context.Context, raw []RawFactor, year *int) ([]domain.EmissionFactor, error) {
	for i := range raw {
		if err := validation.Struct(raw[i]); err != nil {
			return nil, fmt.Errorf("%w: factor %d: %v", ErrInvalidInput, i, err)
		}
	}
	y := nowOr(s.Now).Year()
	if year != nil {
		y = *year
	}
	saved, err := s.Resolver.Sync(ctx, raw, y)
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(saved)).Int("year", y).Msg("emission factors synced")
	return saved, nil
}

// ResolveFactors exposes the factor set a calculation would use.
func (s *Service) ResolveFactors(ctx context.Context, countryCode *string, year int) (*FactorSet, error) {
	if year <= 0 {
		year = nowOr(s.Now).Year()
	}
	return s.Resolver.ResolveFactorSet(ctx, countryCode, year)
}

func (s *Service) aggregator() *Aggregator {
	if s.Aggregator == nil {
		return defaultAggregator
	}
	return s.Aggregator
}

func lastEntries(entries []TimelineEntry, n int) []TimelineEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
