package stockmove

import (
	"context"
	"log/slog"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/shopspring/decimal"
)

type TransferStore interface {
	stock.Store
	GetTransferType(ctx context.Context, code string) (*stock.TransferType, error)
	CreateTransfer(ctx context.Context, t *stock.Transfer) error
}

type Sequencer interface {
	Next(ctx context.Context, code string) (string, error)
}

// Request — перемещение одной единицы товара.
type Request struct {
	Source    stock.Location
	Dest      stock.Location
	ProductID int64
	LotID     *int64
	Label     string // попадает в origin заявки
}

type Orchestrator struct {
	tx       TxRunner
	store    TransferStore
	seq      Sequencer
	engine   *stock.Engine
	typeCode string
	log      *slog.Logger
}

func NewOrchestrator(tx TxRunner, store TransferStore, seq Sequencer, typeCode string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		tx: tx, store: store, seq: seq,
		engine:   stock.NewEngine(store),
		typeCode: typeCode,
		log:      log,
	}
}

// Transfer создаёт, резервирует и проводит перемещение. Либо перемещение проведено,
// либо от заявки не остаётся следа.
func (o *Orchestrator) Transfer(ctx context.Context, req Request) (*stock.Transfer, error) {
	var out *stock.Transfer
	err := o.tx.WithinTx(ctx, func(ctx context.Context) error {
		tt, err := o.store.GetTransferType(ctx, o.typeCode)
		if err != nil {
			return err
		}
		if tt == nil {
			return apperr.Configuration("transfer_type_missing", "stock transfer type %q is not configured", o.typeCode)
		}

		name, err := o.seq.Next(ctx, tt.SequenceCode)
		if err != nil {
			return err
		}
		t := &stock.Transfer{
			Name:      name,
			TypeID:    tt.ID,
			SourceID:  req.Source.ID,
			DestID:    req.Dest.ID,
			Origin:    req.Label,
			State:     stock.StateDraft,
			ProductID: req.ProductID,
			LotID:     req.LotID,
			Quantity:  decimal.NewFromInt(1),
		}
		if err := o.store.CreateTransfer(ctx, t); err != nil {
			return err
		}

		if err := o.engine.Confirm(ctx, t); err != nil {
			return err
		}
		if err := o.engine.Reserve(ctx, t); err != nil {
			return err
		}

		if t.State != stock.StateAssigned {
			if err := o.engine.Cancel(ctx, t); err != nil {
				return err
			}
			if err := o.engine.Delete(ctx, t); err != nil {
				return err
			}
			o.log.Warn("stock reservation failed", "transfer", t.Name, "source", req.Source.Name, "product_id", req.ProductID)
			return apperr.StockReservation("stock_unavailable",
				"no free stock of the product at %q, try again later", req.Source.Name)
		}

		t.LotID = req.LotID
		t.Quantity = decimal.NewFromInt(1)
		t.Picked = true
		if err := o.engine.Validate(ctx, t); err != nil {
			return err
		}
		o.log.Info("stock transfer done", "transfer", t.Name, "from", req.Source.Name, "to", req.Dest.Name, "origin", req.Label)
		out = t
		return nil
	})
	return out, err
}
