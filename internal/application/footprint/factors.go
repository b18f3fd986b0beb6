package footprint

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ghg-footprint-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

// FactorStore persists emission factors. countryCode nil means global.
type FactorStore interface {
	FindFactors(ctx context.Context, countryCode *string, year int) ([]domain.EmissionFactor, error)
	FactorYears(ctx context.Context, countryCode string) ([]int, error)
	UpsertFactors(ctx context.Context, factors []domain.EmissionFactor) ([]domain.EmissionFactor, error)
}

// FactorCache caches resolved factor sets. Implementations must drop every
// cached set on Invalidate.
type FactorCache interface {
	Get(ctx context.Context, countryCode *string, year int) (*FactorSet, bool, error)
	Set(ctx context.Context, countryCode *string, year int, set *FactorSet) error
	Invalidate(ctx context.Context) error
}

// FactorSet is the set of factors used for one calculation.
type FactorSet struct {
	CountryCode *string                 `json:"countryCode"`
	CountryName string                  `json:"countryName"`
	Year        int                     `json:"year"`
	Factors     []domain.EmissionFactor `json:"factors"`
}

// FactorMap indexes factors by scope and category.
type FactorMap map[string]domain.EmissionFactor

// Map indexes the set. If a category appears twice the first factor wins.
func (s *FactorSet) Map() FactorMap {
	m := FactorMap{}
	if s == nil {
		return m
	}
	for _, f := range s.Factors {
		k := metadataKey(f.Scope, f.Category)
		if _, ok := m[k]; !ok {
			m[k] = f
		}
	}
	return m
}

// Lookup returns the factor for a scope/category.
func (m FactorMap) Lookup(scope, category string) (domain.EmissionFactor, bool) {
	f, ok := m[metadataKey(scope, category)]
	return f, ok
}

// FactorResolver picks the factor set for a country and year, falling back
// to earlier years, then to a global set seeded from the built-in defaults.
type FactorResolver struct {
	Store FactorStore
	Cache FactorCache
}

// ResolveFactorSet returns the best available factor set or ErrFactorResolution.
func (r *FactorResolver) ResolveFactorSet(ctx context.Context, countryCode *string, year int) (*FactorSet, error) {
	countryCode = NormalizeCountry(countryCode)
	if r.Cache != nil {
		if set, ok, err := r.Cache.Get(ctx, countryCode, year); err != nil {
			log.Warn().Err(err).Msg("factor cache read failed")
		} else if ok {
			return set, nil
		}
	}

	set, err := r.resolve(ctx, countryCode, year)
	if err != nil {
		return nil, err
	}
	if r.Cache != nil {
		if err := r.Cache.Set(ctx, countryCode, year, set); err != nil {
			log.Warn().Err(err).Msg("factor cache write failed")
		}
	}
	return set, nil
}

func (r *FactorResolver) resolve(ctx context.Context, countryCode *string, year int) (*FactorSet, error) {
	factors, err := r.Store.FindFactors(ctx, countryCode, year)
	if err != nil {
		return nil, fmt.Errorf("find factors: %w", err)
	}
	resolvedYear := year

	if len(factors) == 0 && countryCode != nil {
		years, err := r.Store.FactorYears(ctx, *countryCode)
		if err != nil {
			return nil, fmt.Errorf("factor years: %w", err)
		}
		if y, ok := nearestYear(years, year); ok {
			log.Info().Str("country", *countryCode).Int("requested_year", year).Int("year", y).Msg("using nearest factor year")
			if factors, err = r.Store.FindFactors(ctx, countryCode, y); err != nil {
				return nil, fmt.Errorf("find factors: %w", err)
			}
			resolvedYear = y
		}
	}

	if len(factors) == 0 {
		resolvedYear = year
		if factors, err = r.Store.FindFactors(ctx, nil, year); err != nil {
			return nil, fmt.Errorf("find global factors: %w", err)
		}
		if len(factors) == 0 {
			log.Info().Int("year", year).Msg("seeding default emission factors")
			if _, err := r.seed(ctx, year); err != nil {
				return nil, err
			}
			if factors, err = r.Store.FindFactors(ctx, nil, year); err != nil {
				return nil, fmt.Errorf("find global factors: %w", err)
			}
		}
	}

	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: country=%s year=%d", ErrFactorResolution, countryLabel(countryCode), year)
	}

	if countryCode != nil && !anyForCountry(factors, *countryCode) {
		countryCode = nil
	}
	return &FactorSet{
		CountryCode: countryCode,
		CountryName: CountryName(countryCode),
		Year:        resolvedYear,
		Factors:     factors,
	}, nil
}

// Sync upserts factors and drops cached sets. An empty input reseeds the
// built-in defaults for year.
func (r *FactorResolver) Sync(ctx context.Context, raw []RawFactor, year int) ([]domain.EmissionFactor, error) {
	if len(raw) == 0 {
		return r.seed(ctx, year)
	}
	factors := make([]domain.EmissionFactor, 0, len(raw))
	for _, f := range raw {
		y := year
		if f.Year != nil {
			y = *f.Year
		}
		factors = append(factors, domain.EmissionFactor{
			Scope:        f.Scope,
			Category:     strings.TrimSpace(f.Category),
			Year:         y,
			CountryCode:  NormalizeCountry(f.CountryCode),
			Value:        f.Value,
			ActivityUnit: f.ActivityUnit,
			ResultUnit:   domain.ResultUnit,
			Source:       f.Source,
		})
	}
	return r.upsert(ctx, factors)
}

func (r *FactorResolver) seed(ctx context.Context, year int) ([]domain.EmissionFactor, error) {
	return r.upsert(ctx, DefaultFactorSet(year))
}

func (r *FactorResolver) upsert(ctx context.Context, factors []domain.EmissionFactor) ([]domain.EmissionFactor, error) {
	saved, err := r.Store.UpsertFactors(ctx, factors)
	if err != nil {
		return nil, fmt.Errorf("upsert factors: %w", err)
	}
	if r.Cache != nil {
		if err := r.Cache.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("factor cache invalidation failed")
		}
	}
	return saved, nil
}

// nearestYear returns the latest year <= target, else the latest year overall.
func nearestYear(years []int, target int) (int, bool) {
	if len(years) == 0 {
		return 0, false
	}
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)
	best, found := 0, false
	for _, y := range sorted {
		if y <= target {
			best, found = y, true
		}
	}
	if found {
		return best, true
	}
	return sorted[len(sorted)-1], true
}

func anyForCountry(factors []domain.EmissionFactor, code string) bool {
	for _, f := range factors {
		if f.CountryCode != nil && strings.EqualFold(*f.CountryCode, code) {
			return true
		}
	}
	return false
}

// NormalizeCountry upper-cases a country code; blank codes become nil (global).
func NormalizeCountry(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*code))
	if c == "" {
		return nil
	}
	return &c
}

var countryNames = map[string]string{
	"AR": "Argentina",
	"BO": "Bolivia",
	"BR": "Brasil",
	"CL": "Chile",
	"CO": "Colombia",
	"CR": "Costa Rica",
	"EC": "Ecuador",
	"ES": "España",
	"GT": "Guatemala",
	"MX": "México",
	"PA": "Panamá",
	"PE": "Perú",
	"PY": "Paraguay",
	"US": "United States",
	"UY": "Uruguay",
}

// CountryName returns a display name; nil is "Global".
func CountryName(code *string) string {
	if code == nil {
		return "Global"
	}
	if n, ok := countryNames[*code]; ok {
		return n
	}
	return *code
}

func countryLabel(code *string) string {
	if code == nil {
		return "global"
	}
	return *code
}
