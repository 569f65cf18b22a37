// Package upkeep — журнал обслуживания активов.
package upkeep

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/maintenance"
)

type Journal interface {
	Create(ctx context.Context, rec *maintenance.Record) error
	ListByAsset(ctx context.Context, assetID int64) ([]maintenance.Record, error)
}

type Assets interface {
	Get(ctx context.Context, id int64) (*assets.Asset, error)
}

type Service struct {
	journal Journal
	assets  Assets
	now     func() time.Time
	log     *slog.Logger
}

func New(j Journal, a Assets, log *slog.Logger) *Service {
	return &Service{journal: j, assets: a, now: time.Now, log: log}
}

// Log добавляет запись. По умолчанию тип repair и сегодняшняя дата.
func (s *Service) Log(ctx context.Context, rec maintenance.Record) (*maintenance.Record, error) {
	rec.Description = strings.TrimSpace(rec.Description)
	if rec.Type == "" {
		rec.Type = maintenance.TypeRepair
	}
	if !rec.Type.Valid() {
		return nil, apperr.Validation("bad_maintenance_type", "unknown maintenance type %q", rec.Type)
	}
	if rec.Description == "" {
		return nil, apperr.Validation("description_required", "maintenance description is required")
	}
	if rec.Cost.IsNegative() {
		return nil, apperr.Validation("negative_cost", "maintenance cost cannot be negative")
	}
	if rec.Date.IsZero() {
		rec.Date = s.now().UTC().Truncate(24 * time.Hour)
	}
	if _, err := s.assets.Get(ctx, rec.AssetID); err != nil {
		return nil, err
	}
	if err := s.journal.Create(ctx, &rec); err != nil {
		return nil, err
	}
	s.log.Info("maintenance logged", "asset_id", rec.AssetID, "type", rec.Type, "cost", rec.Cost.String())
	return &rec, nil
}

func (s *Service) List(ctx context.Context, assetID int64) ([]maintenance.Record, error) {
	if _, err := s.assets.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.journal.ListByAsset(ctx, assetID)
}
