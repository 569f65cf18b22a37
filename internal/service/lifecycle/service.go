// Package lifecycle проводит создание и изменение активов через цепочку
// проверка → запись → реакция (перемещения на складе).
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/directory"
	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/Spok95/itasset/internal/infra/metrics"
	"github.com/Spok95/itasset/internal/service/stockmove"
)

type AssetStore interface {
	Get(ctx context.Context, id int64) (*assets.Asset, error)
	GetForUpdate(ctx context.Context, ids []int64) ([]assets.Asset, error)
	Insert(ctx context.Context, a *assets.Asset) error
	Update(ctx context.Context, a *assets.Asset) error
	SetSynced(ctx context.Context, id int64, synced bool) error
	FindByTag(ctx context.Context, tag string) (*assets.Asset, error)
	FindByLot(ctx context.Context, lotID int64) (*assets.Asset, error)
}

type Catalog interface {
	GetCategory(ctx context.Context, id int64) (*catalog.Category, error)
	GetUnit(ctx context.Context, id int64) (*catalog.Unit, error)
}

type Products interface {
	GetProduct(ctx context.Context, id int64) (*products.Product, error)
	GetLot(ctx context.Context, id int64) (*products.Lot, error)
}

type Directory interface {
	GetEmployee(ctx context.Context, id int64) (*directory.Employee, error)
}

type StockChecker interface {
	Check(ctx context.Context, productID int64, lotID *int64) error
}

type Mover interface {
	Transfer(ctx context.Context, req stockmove.Request) (*stock.Transfer, error)
}

type Deps struct {
	Tx        stockmove.TxRunner
	Assets    AssetStore
	Catalog   Catalog
	Products  Products
	Directory Directory
	Checker   StockChecker
	Mover     Mover
	Locations stockmove.Locations
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

type Service struct {
	tx        stockmove.TxRunner
	assets    AssetStore
	catalog   Catalog
	products  Products
	people    Directory
	checker   StockChecker
	mover     Mover
	locs      stockmove.Locations
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func New(d Deps) *Service {
	return &Service{
		tx: d.Tx, assets: d.Assets, catalog: d.Catalog, products: d.Products, people: d.Directory,
		checker: d.Checker, mover: d.Mover, locs: d.Locations, metrics: d.Metrics, log: d.Log,
	}
}

// Create вставляет пачку активов. Пачка атомарна: ошибка в любой записи отменяет все.
func (s *Service) Create(ctx context.Context, batch []assets.Changes) ([]assets.Asset, error) {
	out := make([]assets.Asset, 0, len(batch))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i, ch := range batch {
			a, err := s.createOne(ctx, ch)
			if err != nil {
				return withIndex(err, i)
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}
	return out, nil
}

// Update применяет одно изменение ко всем ids. Либо меняются все, либо ни один.
func (s *Service) Update(ctx context.Context, ids []int64, ch assets.Changes) ([]assets.Asset, error) {
	ids = distinct(ids)
	var out []assets.Asset
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.assets.GetForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(cur) != len(ids) {
			return apperr.NotFound("asset_not_found", "some of assets %v not found", ids)
		}
		for _, a := range cur {
			if err := assets.GuardRetired(a, ch); err != nil {
				return err
			}
		}
		out = make([]assets.Asset, 0, len(cur))
		for _, a := range cur {
			next, err := s.updateOne(ctx, a, ch)
			if err != nil {
				return err
			}
			out = append(out, next)
		}
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}
	return out, nil
}

func (s *Service) createOne(ctx context.Context, ch assets.Changes) (assets.Asset, error) {
	prev := assets.Blank()
	p, err := s.validate(ctx, prev, ch, true)
	if err != nil {
		return assets.Asset{}, err
	}
	next := p.next
	if err := s.assets.Insert(ctx, &next); err != nil {
		return assets.Asset{}, err
	}
	s.log.Info("asset created", "asset_id", next.ID, "name", next.Name, "state", next.State)
	return s.react(ctx, prev, next, p.product)
}

func (s *Service) updateOne(ctx context.Context, prev assets.Asset, ch assets.Changes) (assets.Asset, error) {
	p, err := s.validate(ctx, prev, ch, false)
	if err != nil {
		return assets.Asset{}, err
	}
	next := p.next
	if err := s.assets.Update(ctx, &next); err != nil {
		return assets.Asset{}, err
	}
	s.log.Info("asset updated", "asset_id", next.ID, "state", next.State, "prev_state", prev.State)
	return s.react(ctx, prev, next, p.product)
}

func (s *Service) reject(err error) {
	kind := apperr.KindOf(err)
	s.metrics.Rejected(string(kind))
	if kind == "" {
		s.log.Error("asset write failed", "err", err)
		return
	}
	s.log.Warn("asset write rejected", "kind", kind, "err", err)
}

// distinct убирает повторы, сохраняя порядок: один актив — одно изменение и одно перемещение.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// withIndex уточняет, какая запись пачки не прошла.
func withIndex(err error, i int) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		cp := *ae
		cp.Message = fmt.Sprintf("asset #%d: %s", i+1, ae.Message)
		return &cp
	}
	return fmt.Errorf("asset #%d: %w", i+1, err)
}

func (s *Service) Get(ctx context.Context, id int64) (*assets.Asset, error) {
	a, err := s.assets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("asset_not_found", "asset %d not found", id)
	}
	return a, nil
}
