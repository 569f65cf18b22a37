package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Store — то, что движку нужно от хранилища. Все вызовы идут внутри одной транзакции вызывающего.
type Store interface {
	GetLocation(ctx context.Context, id int64) (*Location, error)
	GetQuant(ctx context.Context, id int64) (*Quant, error)
	UpdateTransfer(ctx context.Context, t *Transfer) error
	DeleteTransfer(ctx context.Context, id int64) error
	// ReserveQuant блокирует и резервирует qty в первом подходящем кванте поддерева root.
	// Возвращает nil, если свободного остатка нет.
	ReserveQuant(ctx context.Context, productID int64, lotID *int64, root Location, qty decimal.Decimal) (*Quant, error)
	ReleaseQuant(ctx context.Context, quantID int64, qty decimal.Decimal) error
	// TakeQuant списывает qty из кванта вместе с резервом.
	TakeQuant(ctx context.Context, quantID int64, qty decimal.Decimal) error
	AddQuant(ctx context.Context, productID int64, lotID *int64, locationID int64, qty decimal.Decimal) error
	LogMovement(ctx context.Context, m Movement) error
}

// Engine проводит заявку по шагам confirm → reserve → validate (или cancel).
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(s Store) *Engine { return &Engine{store: s, now: time.Now} }

func (e *Engine) Confirm(ctx context.Context, t *Transfer) error {
	if t.State != StateDraft {
		return fmt.Errorf("confirm %s: %w", t.Name, ErrInvalidState)
	}
	t.State = StateConfirmed
	return e.store.UpdateTransfer(ctx, t)
}

// Reserve пытается зарезервировать товар в локации-источнике.
// Если остатка нет, заявка остаётся confirmed — это не ошибка движка.
func (e *Engine) Reserve(ctx context.Context, t *Transfer) error {
	switch t.State {
	case StateAssigned:
		return nil
	case StateConfirmed:
	default:
		return fmt.Errorf("reserve %s: %w", t.Name, ErrInvalidState)
	}

	src, err := e.store.GetLocation(ctx, t.SourceID)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("reserve %s: %w", t.Name, ErrLocationNotFound)
	}

	q, err := e.store.ReserveQuant(ctx, t.ProductID, t.LotID, *src, t.Quantity)
	if err != nil {
		return err
	}
	if q == nil {
		return nil
	}
	t.ReservedQuantID = &q.ID
	t.State = StateAssigned
	return e.store.UpdateTransfer(ctx, t)
}

// Validate проводит зарезервированную и собранную заявку: остаток уходит из источника в приёмник.
func (e *Engine) Validate(ctx context.Context, t *Transfer) error {
	if t.State != StateAssigned || t.ReservedQuantID == nil {
		return fmt.Errorf("validate %s: %w", t.Name, ErrInvalidState)
	}
	if !t.Picked {
		return fmt.Errorf("validate %s: %w", t.Name, ErrNotPicked)
	}

	q, err := e.store.GetQuant(ctx, *t.ReservedQuantID)
	if err != nil {
		return err
	}
	if q == nil {
		return fmt.Errorf("validate %s: %w", t.Name, ErrQuantNotFound)
	}
	if t.LotID != nil && (q.LotID == nil || *q.LotID != *t.LotID) {
		return fmt.Errorf("validate %s: %w", t.Name, ErrLotMismatch)
	}

	if err := e.store.TakeQuant(ctx, q.ID, t.Quantity); err != nil {
		return err
	}
	if err := e.store.AddQuant(ctx, t.ProductID, q.LotID, t.DestID, t.Quantity); err != nil {
		return err
	}

	id := t.ID
	if err := e.store.LogMovement(ctx, Movement{
		TransferID: &id, LocationID: q.LocationID, ProductID: t.ProductID, LotID: q.LotID,
		Qty: t.Quantity.Neg(), Type: MoveOut, Note: t.Origin,
	}); err != nil {
		return err
	}
	if err := e.store.LogMovement(ctx, Movement{
		TransferID: &id, LocationID: t.DestID, ProductID: t.ProductID, LotID: q.LotID,
		Qty: t.Quantity, Type: MoveIn, Note: t.Origin,
	}); err != nil {
		return err
	}

	done := e.now()
	t.State = StateDone
	t.DoneAt = &done
	return e.store.UpdateTransfer(ctx, t)
}

// Cancel снимает резерв и отменяет заявку.
func (e *Engine) Cancel(ctx context.Context, t *Transfer) error {
	if t.State == StateDone {
		return fmt.Errorf("cancel %s: %w", t.Name, ErrInvalidState)
	}
	if t.ReservedQuantID != nil {
		if err := e.store.ReleaseQuant(ctx, *t.ReservedQuantID, t.Quantity); err != nil {
			return err
		}
		t.ReservedQuantID = nil
	}
	t.State = StateCancel
	return e.store.UpdateTransfer(ctx, t)
}

// Delete удаляет непроведённую заявку.
func (e *Engine) Delete(ctx context.Context, t *Transfer) error {
	if t.State == StateDone {
		return fmt.Errorf("delete %s: %w", t.Name, ErrInvalidState)
	}
	return e.store.DeleteTransfer(ctx, t.ID)
}
