package stockmove

import (
	"context"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/Spok95/itasset/internal/infra/metrics"
	"github.com/shopspring/decimal"
)

type QuantStore interface {
	ListQuants(ctx context.Context, productID int64, lotID *int64, root stock.Location) ([]stock.Quant, error)
}

// Preflight — предварительная проверка остатка в пуле. Ничего не блокирует:
// окончательно наличие подтверждает только резерв.
type Preflight struct {
	quants  QuantStore
	pool    stock.Location
	metrics *metrics.Metrics
}

func NewPreflight(q QuantStore, pool stock.Location, m *metrics.Metrics) *Preflight {
	return &Preflight{quants: q, pool: pool, metrics: m}
}

func (p *Preflight) Check(ctx context.Context, productID int64, lotID *int64) error {
	qs, err := p.quants.ListQuants(ctx, productID, lotID, p.pool)
	if err != nil {
		return err
	}
	if len(qs) == 0 {
		p.metrics.PreflightFailed()
		return apperr.Validation("stock_not_found", "no stock of the product found at %q", p.pool.Name)
	}

	free := decimal.Zero
	for _, q := range qs {
		free = free.Add(q.Free())
	}
	if !free.IsPositive() {
		p.metrics.PreflightFailed()
		return apperr.Validation("stock_reserved", "stock at %q is reserved by another operation", p.pool.Name)
	}
	return nil
}
