package lifecycle

import (
	"context"
	"fmt"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/service/stockmove"
)

// plan — результат проверки: итоговая запись и её товар.
type plan struct {
	next    assets.Asset
	product *products.Product
}

// validate ничего не пишет: выводит итоговую запись и проверяет её.
func (s *Service) validate(ctx context.Context, prev assets.Asset, ch assets.Changes, creating bool) (plan, error) {
	derived := assets.Derive(prev, ch)
	next := derived.Apply(prev)
	next.Tag = assets.NormalizeTag(next.Tag)

	next.IsConsumable = false
	if next.CategoryID != nil {
		cat, err := s.catalog.GetCategory(ctx, *next.CategoryID)
		if err != nil {
			return plan{}, err
		}
		if cat == nil {
			return plan{}, apperr.Validation("category_not_found", "category %d not found", *next.CategoryID)
		}
		next.IsConsumable = cat.IsConsumable
	}

	if err := assets.Validate(next); err != nil {
		return plan{}, err
	}
	if err := s.checkRefs(ctx, next); err != nil {
		return plan{}, err
	}

	var product *products.Product
	if next.ProductID != nil {
		p, err := s.products.GetProduct(ctx, *next.ProductID)
		if err != nil {
			return plan{}, err
		}
		if p == nil {
			return plan{}, apperr.Validation("product_not_found", "product %d not found", *next.ProductID)
		}
		product = p
	}
	if next.LotID != nil {
		lot, err := s.products.GetLot(ctx, *next.LotID)
		if err != nil {
			return plan{}, err
		}
		if lot == nil {
			return plan{}, apperr.Validation("serial_not_found", "serial number %d not found", *next.LotID)
		}
		if lot.ProductID != *next.ProductID {
			return plan{}, apperr.Validation("serial_product_mismatch",
				"serial number %q belongs to another product", lot.Name)
		}
	}

	// единица уже лежит в «выданных» под старым товаром: сначала вернуть, потом менять
	if !creating && prev.HasHolder() && prev.Synced && next.HasHolder() && !assets.SameStock(prev, next) {
		return plan{}, apperr.Validation("held_stock_change",
			"asset %q is held: return it before changing its product or serial number", prev.Name)
	}

	if s.needsPreflight(prev, next, derived, product, creating) {
		if err := s.checker.Check(ctx, product.ID, next.LotID); err != nil {
			return plan{}, err
		}
	}
	return plan{next: next, product: product}, nil
}

// needsPreflight: остаток в пуле проверяется для складируемого товара, который не уходит
// в ремонт или списание и у которого меняется товар, серийник или состояние.
// Единица, уже выданная держателю с подтверждённым перемещением, лежит не в пуле: пока товар
// и серийник те же, её не проверяем.
func (s *Service) needsPreflight(prev, next assets.Asset, derived assets.Changes, p *products.Product, creating bool) bool {
	if p == nil || !p.Trackable() || next.IsConsumable || next.State.Terminal() {
		return false
	}
	if creating {
		return true
	}
	if prev.HasHolder() && prev.Synced && assets.SameStock(prev, next) {
		return false
	}
	return assets.StockChanged(prev, derived)
}

func (s *Service) checkRefs(ctx context.Context, a assets.Asset) error {
	if a.EmployeeID != nil {
		e, err := s.people.GetEmployee(ctx, *a.EmployeeID)
		if err != nil {
			return err
		}
		if e == nil {
			return apperr.Validation("employee_not_found", "employee %d not found", *a.EmployeeID)
		}
	}
	if a.UnitID != nil {
		u, err := s.catalog.GetUnit(ctx, *a.UnitID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Validation("unit_not_found", "unit %d not found", *a.UnitID)
		}
	}

	// заранее, чтобы ответить понятнее, чем ограничение в базе
	if a.Tag != nil {
		ex, err := s.assets.FindByTag(ctx, *a.Tag)
		if err != nil {
			return err
		}
		if ex != nil && ex.ID != a.ID {
			return apperr.Validation("tag_taken", "tag %q is already used by asset %q", *a.Tag, ex.Name)
		}
	}
	if a.LotID != nil {
		ex, err := s.assets.FindByLot(ctx, *a.LotID)
		if err != nil {
			return err
		}
		if ex != nil && ex.ID != a.ID {
			return apperr.Validation("serial_taken", "serial number is already linked to asset %q", ex.Name)
		}
	}
	return nil
}

// react двигает склад вслед за сменой держателя. Вызывается после записи, в той же транзакции.
func (s *Service) react(ctx context.Context, prev, next assets.Asset, product *products.Product) (assets.Asset, error) {
	switch {
	case !prev.HasHolder() && next.HasHolder():
		if product == nil || !product.Trackable() || next.IsConsumable || next.State != assets.StateInUse {
			return next, nil
		}
		_, err := s.mover.Transfer(ctx, stockmove.Request{
			Source: s.locs.Pool, Dest: s.locs.InUse,
			ProductID: product.ID, LotID: next.LotID,
			Label: fmt.Sprintf("Assign: %s -> %s", next.Name, s.holderName(ctx, next)),
		})
		s.metrics.Transfer("assign", err)
		if err != nil {
			return assets.Asset{}, err
		}

	case prev.HasHolder() && !next.HasHolder():
		if prev.Synced && prev.ProductID != nil && !prev.IsConsumable {
			p, err := s.products.GetProduct(ctx, *prev.ProductID)
			if err != nil {
				return assets.Asset{}, err
			}
			if p != nil && p.Trackable() {
				_, err = s.mover.Transfer(ctx, stockmove.Request{
					Source: s.locs.InUse, Dest: s.locs.Pool,
					ProductID: p.ID, LotID: prev.LotID,
					Label: fmt.Sprintf("Return: %s <- %s", prev.Name, s.holderName(ctx, prev)),
				})
				s.metrics.Transfer("return", err)
				if err != nil {
					return assets.Asset{}, err
				}
			}
		}
		// прямая запись флага, без повторного прохода через Update
		if err := s.assets.SetSynced(ctx, next.ID, false); err != nil {
			return assets.Asset{}, err
		}
		next.Synced = false
	}
	return next, nil
}

func (s *Service) holderName(ctx context.Context, a assets.Asset) string {
	switch {
	case a.EmployeeID != nil:
		if e, err := s.people.GetEmployee(ctx, *a.EmployeeID); err == nil && e != nil {
			return e.Name
		}
		return fmt.Sprintf("employee #%d", *a.EmployeeID)
	case a.UnitID != nil:
		if u, err := s.catalog.GetUnit(ctx, *a.UnitID); err == nil && u != nil {
			return u.Name
		}
		return fmt.Sprintf("unit #%d", *a.UnitID)
	}
	return ""
}
