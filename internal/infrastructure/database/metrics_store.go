package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ghg-footprint-backend/internal/application/footprint"
	"ghg-footprint-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetricsStore reads self-reported indicators from MetricsSnapshots.
type MetricsStore struct {
	DB *gorm.DB
}

// FindMetrics returns the period's indicators flattened to dotted paths, or
// nil when no record exists. Non-numeric values are dropped.
func (s *MetricsStore) FindMetrics(ctx context.Context, companyID uuid.UUID, period string) (footprint.Metrics, error) {
	var rec domain.MetricsSnapshot
	err := s.DB.WithContext(ctx).Where("company_id = ? AND period = ?", companyID, period).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return FlattenMetrics(rec.Data)
}

// FlattenMetrics turns nested JSON into dotted keys with float values.
// Numeric strings such as "1.200,5" are not accepted; "1200.5" is.
func FlattenMetrics(data []byte) (footprint.Metrics, error) {
	out := footprint.Metrics{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root map[string]interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	flatten("", root, out)
	return out, nil
}

func flatten(prefix string, v interface{}, out footprint.Metrics) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			out[prefix] = f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out[prefix] = f
		}
	}
}

// IngestionStore reads ingested activity items.
type IngestionStore struct {
	DB *gorm.DB
}

func (s *IngestionStore) FindItems(ctx context.Context, companyID uuid.UUID, period string) ([]domain.IngestionItem, error) {
	var items []domain.IngestionItem
	err := s.DB.WithContext(ctx).
		Where("company_id = ? AND period = ?", companyID, period).
		Order(`"recordedAt" ASC, "createdAt" ASC`).
		Find(&items).Error
	return items, err
}
