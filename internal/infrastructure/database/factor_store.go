package database

import (
	"context"
	"fmt"

	"ghg-footprint-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FactorStore reads and upserts emission factors.
type FactorStore struct {
	DB *gorm.DB
}

func countryKey(code *string) string {
	if code == nil {
		return ""
	}
	return *code
}

func (s *FactorStore) FindFactors(ctx context.Context, countryCode *string, year int) ([]domain.EmissionFactor, error) {
	var factors []domain.EmissionFactor
	err := s.DB.WithContext(ctx).
		Where("year = ? AND country_key = ?", year, countryKey(countryCode)).
		Order("scope ASC, category ASC").
		Find(&factors).Error
	return factors, err
}

func (s *FactorStore) FactorYears(ctx context.Context, countryCode string) ([]int, error) {
	var years []int
	err := s.DB.WithContext(ctx).Model(&domain.EmissionFactor{}).
		Where("country_key = ?", countryCode).
		Distinct("year").
		Order("year ASC").
		Pluck("year", &years).Error
	return years, err
}

// UpsertFactors inserts factors, replacing the value of any row with the same
// scope, category, year and country. It returns the stored rows.
func (s *FactorStore) UpsertFactors(ctx context.Context, factors []domain.EmissionFactor) ([]domain.EmissionFactor, error) {
	if len(factors) == 0 {
		return []domain.EmissionFactor{}, nil
	}
	rows := dedupeFactors(factors)
	var saved []domain.EmissionFactor
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}, {Name: "category"}, {Name: "year"}, {Name: "country_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value", "activity_unit", "result_unit", "source", "country_code", "updatedAt",
			}),
		}).Create(&rows).Error
		if err != nil {
			return err
		}

		type group struct {
			year int
			key  string
		}
		wanted := map[group]map[string]bool{}
		var order []group
		for _, f := range rows {
			g := group{f.Year, f.CountryKey}
			if wanted[g] == nil {
				wanted[g] = map[string]bool{}
				order = append(order, g)
			}
			wanted[g][f.Scope+"."+f.Category] = true
		}
		for _, g := range order {
			var found []domain.EmissionFactor
			if err := tx.Where("year = ? AND country_key = ?", g.year, g.key).
				Order("scope ASC, category ASC").
				Find(&found).Error; err != nil {
				return err
			}
			for _, f := range found {
				if wanted[g][f.Scope+"."+f.Category] {
					saved = append(saved, f)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// dedupeFactors keeps the last factor per unique key; a single upsert
// statement may not touch the same row twice.
func dedupeFactors(in []domain.EmissionFactor) []domain.EmissionFactor {
	idx := map[string]int{}
	out := make([]domain.EmissionFactor, 0, len(in))
	for _, f := range in {
		k := fmt.Sprintf("%s|%s|%d|%s", f.Scope, f.Category, f.Year, countryKey(f.CountryCode))
		if i, ok := idx[k]; ok {
			out[i] = f
			continue
		}
		idx[k] = len(out)
		out = append(out, f)
	}
	return out
}
