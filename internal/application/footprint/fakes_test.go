package footprint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ghg-footprint-backend/internal/domain"

	"github.com/google/uuid"
)

type memFactorStore struct {
	mu      sync.Mutex
	factors []domain.EmissionFactor
	upserts int
}

func factorKey(f domain.EmissionFactor) string {
	cc := ""
	if f.CountryCode != nil {
		cc = *f.CountryCode
	}
	return fmt.Sprintf("%s|%s|%d", metadataKey(f.Scope, f.Category), cc, f.Year)
}

func (m *memFactorStore) FindFactors(_ context.Context, cc *string, year int) ([]domain.EmissionFactor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EmissionFactor
	for _, f := range m.factors {
		if f.Year != year {
			continue
		}
		if (cc == nil) != (f.CountryCode == nil) {
			continue
		}
		if cc != nil && *cc != *f.CountryCode {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m *memFactorStore) FactorYears(_ context.Context, cc string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, f := range m.factors {
		if f.CountryCode != nil && *f.CountryCode == cc && !seen[f.Year] {
			seen[f.Year] = true
			out = append(out, f.Year)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (m *memFactorStore) UpsertFactors(_ context.Context, in []domain.EmissionFactor) ([]domain.EmissionFactor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	for _, f := range in {
		replaced := false
		for i, cur := range m.factors {
			if factorKey(cur) == factorKey(f) {
				m.factors[i] = f
				replaced = true
			}
		}
		if !replaced {
			m.factors = append(m.factors, f)
		}
	}
	return in, nil
}

type memFactorCache struct {
	sets        map[string]*FactorSet
	invalidated int
}

func cacheKey(cc *string, year int) string {
	return fmt.Sprintf("%s:%d", countryLabel(cc), year)
}

func (c *memFactorCache) Get(_ context.Context, cc *string, year int) (*FactorSet, bool, error) {
	s, ok := c.sets[cacheKey(cc, year)]
	return s, ok, nil
}

func (c *memFactorCache) Set(_ context.Context, cc *string, year int, s *FactorSet) error {
	if c.sets == nil {
		c.sets = map[string]*FactorSet{}
	}
	c.sets[cacheKey(cc, year)] = s
	return nil
}

func (c *memFactorCache) Invalidate(context.Context) error {
	c.sets = nil
	c.invalidated++
	return nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, *string, int) (*FactorSet, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, *string, int, *FactorSet) error {
	return errors.New("cache down")
}

func (failingCache) Invalidate(context.Context) error { return errors.New("cache down") }

type memMetricsStore map[string]Metrics

func (m memMetricsStore) FindMetrics(_ context.Context, companyID uuid.UUID, period string) (Metrics, error) {
	return m[companyID.String()+"/"+period], nil
}

type memIngestionStore map[string][]domain.IngestionItem

func (m memIngestionStore) FindItems(_ context.Context, companyID uuid.UUID, period string) ([]domain.IngestionItem, error) {
	return m[companyID.String()+"/"+period], nil
}

type memSnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]domain.FootprintSnapshot
	saves int
}

func (m *memSnapshotStore) SaveSnapshot(_ context.Context, s *domain.FootprintSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snaps == nil {
		m.snaps = map[string]domain.FootprintSnapshot{}
	}
	key := s.CompanyID.String() + "/" + s.Period
	if cur, ok := m.snaps[key]; ok {
		s.ID = cur.ID
		s.Version = cur.Version + 1
	} else {
		s.ID = uuid.New()
		s.Version = 1
	}
	m.snaps[key] = *s
	m.saves++
	return nil
}

func (m *memSnapshotStore) FindSnapshot(_ context.Context, companyID uuid.UUID, period string) (*domain.FootprintSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[companyID.String()+"/"+period]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSnapshotStore) ListSnapshots(_ context.Context, companyID uuid.UUID) ([]domain.FootprintSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FootprintSnapshot
	for _, s := range m.snaps {
		if s.CompanyID == companyID {
			out = append(out, s)
		}
	}
	return out, nil
}

type busyLocker struct{}

func (busyLocker) Obtain(context.Context, string) (func(context.Context) error, error) {
	return nil, ErrLockNotObtained
}
