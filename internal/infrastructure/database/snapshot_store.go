package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ghg-footprint-backend/internal/application/footprint"
	"ghg-footprint-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// readAttempts bounds how often FindSnapshot re-reads when a save moves the
// version between loading the snapshot and its children.
const readAttempts = 3

// SnapshotStore persists footprint snapshots. Each save writes the new
// breakdown and scenarios tagged with the next version, bumps the snapshot
// version with a compare-and-swap and drops the previous children, all in one
// transaction.
type SnapshotStore struct {
	DB *gorm.DB
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap *domain.FootprintSnapshot) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur domain.FootprintSnapshot
		err := tx.Where("company_id = ? AND period = ?", snap.CompanyID, snap.Period).Take(&cur).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return insertSnapshot(tx, snap)
		case err != nil:
			return err
		}
		return replaceSnapshot(tx, &cur, snap)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: company=%s period=%s", footprint.ErrCalculationInProgress, snap.CompanyID, snap.Period)
	}
	return err
}

func insertSnapshot(tx *gorm.DB, snap *domain.FootprintSnapshot) error {
	snap.ID = uuid.New()
	snap.Version = 1
	if err := tx.Create(snap).Error; err != nil {
		return err
	}
	return insertChildren(tx, snap)
}

func replaceSnapshot(tx *gorm.DB, cur, snap *domain.FootprintSnapshot) error {
	snap.ID = cur.ID
	snap.CreatedAt = cur.CreatedAt
	snap.Version = cur.Version + 1
	if err := insertChildren(tx, snap); err != nil {
		return err
	}

	res := tx.Model(&domain.FootprintSnapshot{}).
		Where("id = ? AND version = ?", cur.ID, cur.Version).
		Updates(map[string]interface{}{
			"scope1":           snap.Scope1,
			"scope2":           snap.Scope2,
			"scope3":           snap.Scope3,
			"total":            snap.Total,
			"factors_metadata": snap.FactorsMetadata,
			"metadata":         snap.Metadata,
			"version":          snap.Version,
			"calculatedAt":     snap.CalculatedAt,
			"updatedAt":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Warn().Str("snapshot_id", cur.ID.String()).Int("version", cur.Version).Msg("snapshot version moved during save")
		return fmt.Errorf("%w: company=%s period=%s", footprint.ErrCalculationInProgress, snap.CompanyID, snap.Period)
	}

	if err := tx.Where("snapshot_id = ? AND snapshot_version < ?", snap.ID, snap.Version).
		Delete(&domain.BreakdownItem{}).Error; err != nil {
		return err
	}
	return tx.Where("snapshot_id = ? AND snapshot_version < ?", snap.ID, snap.Version).
		Delete(&domain.ScenarioRecord{}).Error
}

func insertChildren(tx *gorm.DB, snap *domain.FootprintSnapshot) error {
	for i := range snap.Breakdown {
		b := &snap.Breakdown[i]
		b.ID = uuid.Nil
		b.SnapshotID = snap.ID
		b.SnapshotVersion = snap.Version
		b.Position = i
	}
	for i := range snap.Scenarios {
		sc := &snap.Scenarios[i]
		sc.ID = uuid.Nil
		sc.SnapshotID = snap.ID
		sc.SnapshotVersion = snap.Version
		sc.Position = i
	}
	if len(snap.Breakdown) > 0 {
		if err := tx.Create(&snap.Breakdown).Error; err != nil {
			return err
		}
	}
	if len(snap.Scenarios) > 0 {
		if err := tx.Create(&snap.Scenarios).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindSnapshot loads a snapshot with the children of its current version.
func (s *SnapshotStore) FindSnapshot(ctx context.Context, companyID uuid.UUID, period string) (*domain.FootprintSnapshot, error) {
	db := s.DB.WithContext(ctx)
	for attempt := 0; attempt < readAttempts; attempt++ {
		var snap domain.FootprintSnapshot
		err := db.Where("company_id = ? AND period = ?", companyID, period).Take(&snap).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := db.Where("snapshot_id = ? AND snapshot_version = ?", snap.ID, snap.Version).
			Order("position ASC").Find(&snap.Breakdown).Error; err != nil {
			return nil, err
		}
		if err := db.Where("snapshot_id = ? AND snapshot_version = ?", snap.ID, snap.Version).
			Order("position ASC").Find(&snap.Scenarios).Error; err != nil {
			return nil, err
		}

		var version int
		if err := db.Model(&domain.FootprintSnapshot{}).Where("id = ?", snap.ID).
			Select("version").Scan(&version).Error; err != nil {
			return nil, err
		}
		if version == snap.Version {
			return &snap, nil
		}
		log.Debug().Str("snapshot_id", snap.ID.String()).Int("attempt", attempt+1).Msg("snapshot changed while reading, retrying")
	}
	return nil, fmt.Errorf("%w: company=%s period=%s", footprint.ErrCalculationInProgress, companyID, period)
}

// ListSnapshots returns a company's snapshots without children.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, companyID uuid.UUID) ([]domain.FootprintSnapshot, error) {
	var snaps []domain.FootprintSnapshot
	err := s.DB.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("period ASC").
		Find(&snaps).Error
	return snaps, err
}
