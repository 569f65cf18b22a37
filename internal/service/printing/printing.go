// Package printing ведёт показания счётчиков принтеров.
package printing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/service/stockmove"
)

type Readings interface {
	Create(ctx context.Context, rd *printers.Reading) error
	Previous(ctx context.Context, assetID int64, date time.Time) (*printers.Reading, error)
	ListByAsset(ctx context.Context, assetID int64) ([]printers.Reading, error)
}

type Assets interface {
	Get(ctx context.Context, id int64) (*assets.Asset, error)
	GetForUpdate(ctx context.Context, ids []int64) ([]assets.Asset, error)
}

type Categories interface {
	GetCategory(ctx context.Context, id int64) (*catalog.Category, error)
}

type Service struct {
	tx       stockmove.TxRunner
	readings Readings
	assets   Assets
	cats     Categories
	category string // подстрока имени категории принтеров
	now      func() time.Time
	log      *slog.Logger
}

func New(tx stockmove.TxRunner, r Readings, a Assets, c Categories, printerCategory string, log *slog.Logger) *Service {
	return &Service{tx: tx, readings: r, assets: a, cats: c, category: printerCategory, now: time.Now, log: log}
}

// Record сохраняет показание. Общий счётчик не может быть меньше предыдущего показания.
func (s *Service) Record(ctx context.Context, rd printers.Reading) (*printers.Usage, error) {
	if rd.ColorPages < 0 || rd.BWPages < 0 {
		return nil, apperr.Validation("negative_counter", "page counters cannot be negative")
	}
	if rd.Date.IsZero() {
		rd.Date = s.now().UTC().Truncate(24 * time.Hour)
	}
	// блокировка строки актива выстраивает показания одного принтера в очередь
	var prev *printers.Reading
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.assets.GetForUpdate(ctx, []int64{rd.AssetID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return apperr.NotFound("asset_not_found", "asset %d not found", rd.AssetID)
		}
		if err := s.checkPrinter(ctx, locked[0]); err != nil {
			return err
		}

		prev, err = s.readings.Previous(ctx, rd.AssetID, rd.Date)
		if err != nil {
			return err
		}
		if err := printers.CheckMonotonic(prev, rd); err != nil {
			if errors.Is(err, printers.ErrCounterDecreased) {
				return apperr.Validation("counter_decreased",
					"counter value cannot be less than the previous reading (%d pages)", prev.Total()).Wrap(err)
			}
			return err
		}
		return s.readings.Create(ctx, &rd)
	})
	if err != nil {
		return nil, err
	}

	u := printers.Usage{Reading: rd}
	if prev != nil {
		u = printers.WithDiffs([]printers.Reading{rd, *prev})[0]
	}
	s.log.Info("printer reading recorded", "asset_id", rd.AssetID, "total", rd.Total(), "diff", u.PagesDiff)
	return &u, nil
}

// List — показания принтера, новые сверху, с приростами.
func (s *Service) List(ctx context.Context, assetID int64) ([]printers.Usage, error) {
	a, err := s.assets.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("asset_not_found", "asset %d not found", assetID)
	}
	rs, err := s.readings.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return printers.WithDiffs(rs), nil
}

func (s *Service) checkPrinter(ctx context.Context, a assets.Asset) error {
	if a.CategoryID != nil {
		cat, err := s.cats.GetCategory(ctx, *a.CategoryID)
		if err != nil {
			return err
		}
		if cat != nil && strings.Contains(strings.ToLower(cat.Name), strings.ToLower(s.category)) {
			return nil
		}
	}
	return apperr.Validation("not_a_printer", "asset %q is not in a printer category", a.Name)
}
