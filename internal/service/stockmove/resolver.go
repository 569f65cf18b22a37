package stockmove

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/settings"
	"github.com/Spok95/itasset/internal/domain/stock"
)

// TxRunner — граница транзакции. Вложенные вызовы присоединяются к внешней.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type LocationStore interface {
	GetLocation(ctx context.Context, id int64) (*stock.Location, error)
	FindLocation(ctx context.Context, parentID *int64, name string) (*stock.Location, error)
	CreateLocation(ctx context.Context, name string, parentID *int64, usage stock.Usage) (*stock.Location, error)
}

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Kind string

const (
	KindPool  Kind = "pool"
	KindInUse Kind = "in_use"
)

// Locations — служебные локации, найденные при старте.
type Locations struct {
	Pool  stock.Location
	InUse stock.Location
}

type ResolverConfig struct {
	WarehouseRoot string
	PoolName      string
	InUseName     string
}

type Resolver struct {
	tx       TxRunner
	locs     LocationStore
	settings SettingsStore
	cfg      ResolverConfig
	log      *slog.Logger
}

func NewResolver(tx TxRunner, locs LocationStore, st SettingsStore, cfg ResolverConfig, log *slog.Logger) *Resolver {
	return &Resolver{tx: tx, locs: locs, settings: st, cfg: cfg, log: log}
}

func (r *Resolver) target(kind Kind) (key, name string, err error) {
	switch kind {
	case KindPool:
		return settings.KeyPoolLocation, r.cfg.PoolName, nil
	case KindInUse:
		return settings.KeyInUseLocation, r.cfg.InUseName, nil
	}
	return "", "", fmt.Errorf("unknown location kind %q", kind)
}

// Resolve находит служебную локацию: сначала по сохранённому id, затем по имени под корнем склада.
// Отсутствующую локацию создаёт. Повторный вызов возвращает ту же запись.
func (r *Resolver) Resolve(ctx context.Context, kind Kind) (*stock.Location, error) {
	key, name, err := r.target(kind)
	if err != nil {
		return nil, err
	}

	if v, ok, err := r.settings.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			loc, err := r.locs.GetLocation(ctx, id)
			if err != nil {
				return nil, err
			}
			if loc != nil {
				return loc, nil
			}
		}
		r.log.Warn("stored location is missing, resolving by name", "kind", kind, "value", v)
	}

	root, err := r.locs.FindLocation(ctx, nil, r.cfg.WarehouseRoot)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, apperr.Configuration("warehouse_root_missing", "warehouse root location %q not found", r.cfg.WarehouseRoot)
	}

	loc, err := r.locs.FindLocation(ctx, &root.ID, name)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		if loc, err = r.locs.CreateLocation(ctx, name, &root.ID, stock.UsageInternal); err != nil {
			return nil, err
		}
		r.log.Info("stock location created", "kind", kind, "location_id", loc.ID, "name", loc.Name)
	}

	if err := r.settings.Set(ctx, key, strconv.FormatInt(loc.ID, 10)); err != nil {
		return nil, err
	}
	return loc, nil
}

// Bootstrap выполняется один раз при старте; результат передаётся сервисам явно.
func (r *Resolver) Bootstrap(ctx context.Context) (Locations, error) {
	var out Locations
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		pool, err := r.Resolve(ctx, KindPool)
		if err != nil {
			return err
		}
		inUse, err := r.Resolve(ctx, KindInUse)
		if err != nil {
			return err
		}
		out = Locations{Pool: *pool, InUse: *inUse}
		return nil
	})
	return out, err
}
