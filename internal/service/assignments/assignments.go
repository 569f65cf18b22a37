// Package assignments ведёт выдачу активов сотрудникам и установку на технику.
package assignments

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/history"
	"github.com/Spok95/itasset/internal/service/stockmove"
)

type History interface {
	Create(ctx context.Context, rec *history.Record) error
	Get(ctx context.Context, k history.Kind, id int64) (*history.Record, error)
	Close(ctx context.Context, k history.Kind, id int64, end time.Time) error
	List(ctx context.Context, k history.Kind, assetID int64) ([]history.Record, error)
}

// Assets — контроллер жизненного цикла: держатель меняется только через него.
type Assets interface {
	Get(ctx context.Context, id int64) (*assets.Asset, error)
	Update(ctx context.Context, ids []int64, ch assets.Changes) ([]assets.Asset, error)
}

type Input struct {
	AssetID  int64
	HolderID int64
	Date     time.Time
	Notes    string
}

type Service struct {
	tx      stockmove.TxRunner
	history History
	assets  Assets
	now     func() time.Time
	log     *slog.Logger
}

func New(tx stockmove.TxRunner, h History, a Assets, log *slog.Logger) *Service {
	return &Service{tx: tx, history: h, assets: a, now: time.Now, log: log}
}

// Assign выдаёт актив сотруднику. Расходники не выдаются.
func (s *Service) Assign(ctx context.Context, in Input) (*history.Record, error) {
	return s.open(ctx, history.KindAssignment, in)
}

// Swap устанавливает актив на единицу техники.
func (s *Service) Swap(ctx context.Context, in Input) (*history.Record, error) {
	return s.open(ctx, history.KindSwap, in)
}

func (s *Service) open(ctx context.Context, k history.Kind, in Input) (*history.Record, error) {
	if in.Date.IsZero() {
		in.Date = s.today()
	}
	rec := &history.Record{Kind: k, AssetID: in.AssetID, HolderID: in.HolderID, StartDate: in.Date, Notes: in.Notes}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.assets.Get(ctx, in.AssetID)
		if err != nil {
			return err
		}
		if a.IsConsumable {
			return apperr.Validation("consumable_not_assignable", "consumable asset %q cannot be assigned", a.Name)
		}
		if err := s.closeActive(ctx, in.AssetID, in.Date); err != nil {
			return err
		}

		holder := ptr(in.HolderID)
		ch := assets.Changes{EmployeeID: assets.Set(holder), UnitID: assets.Set[*int64](nil)}
		if k == history.KindSwap {
			ch = assets.Changes{UnitID: assets.Set(holder), EmployeeID: assets.Set[*int64](nil)}
		}
		if _, err := s.assets.Update(ctx, []int64{in.AssetID}, ch); err != nil {
			return err
		}
		return s.history.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("asset handed out", "kind", k, "asset_id", rec.AssetID, "holder_id", rec.HolderID, "record_id", rec.ID)
	return rec, nil
}

// closeActive закрывает открытые записи обоих видов: у актива один держатель.
func (s *Service) closeActive(ctx context.Context, assetID int64, end time.Time) error {
	for _, k := range []history.Kind{history.KindAssignment, history.KindSwap} {
		recs, err := s.history.List(ctx, k, assetID)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if r.State != history.StatusActive {
				continue
			}
			if err := s.history.Close(ctx, k, r.ID, end); err != nil {
				return err
			}
		}
	}
	return nil
}

// Return закрывает запись сегодняшним днём. Если актив всё ещё у этого держателя,
// держатель снимается (и единица возвращается в пул).
func (s *Service) Return(ctx context.Context, k history.Kind, id int64) (*history.Record, error) {
	var out *history.Record
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.history.Get(ctx, k, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperr.NotFound("record_not_found", "%s %d not found", k, id)
		}
		if rec.State != history.StatusActive {
			return apperr.Validation("already_returned", "%s %d is already returned", k, id)
		}
		today := s.today()
		if err := s.history.Close(ctx, k, id, today); err != nil {
			return err
		}

		a, err := s.assets.Get(ctx, rec.AssetID)
		if err != nil {
			return err
		}
		if heldBy(*a, k, rec.HolderID) {
			ch := assets.Changes{EmployeeID: assets.Set[*int64](nil)}
			if k == history.KindSwap {
				ch = assets.Changes{UnitID: assets.Set[*int64](nil)}
			}
			if _, err := s.assets.Update(ctx, []int64{a.ID}, ch); err != nil {
				return err
			}
		}
		rec.State, rec.EndDate = history.StatusReturned, &today
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("asset returned", "kind", k, "asset_id", out.AssetID, "record_id", out.ID)
	return out, nil
}

func (s *Service) List(ctx context.Context, k history.Kind, assetID int64) ([]history.Record, error) {
	return s.history.List(ctx, k, assetID)
}

func heldBy(a assets.Asset, k history.Kind, holderID int64) bool {
	h := a.EmployeeID
	if k == history.KindSwap {
		h = a.UnitID
	}
	return h != nil && *h == holderID
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
