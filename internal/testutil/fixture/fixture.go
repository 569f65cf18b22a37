// Package fixture собирает контроллер жизненного цикла поверх memstore для тестов сервисов.
package fixture

import (
	"context"
	"testing"

	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/directory"
	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/service/lifecycle"
	"github.com/Spok95/itasset/internal/service/stockmove"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type Env struct {
	Store     *memstore.Store
	Locations stockmove.Locations
	Lifecycle *lifecycle.Service

	Laptops  *catalog.Category
	Printers *catalog.Category
	Cables   *catalog.Category
	Product  *products.Product
	Ivan     *directory.Employee
	Olga     *directory.Employee
	Truck    *catalog.Unit
}

// New: склад WH с пулом и локацией выданных, три категории, один складируемый товар,
// два сотрудника и одна единица техники.
func New(t *testing.T) *Env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	log := logger.Discard()

	locs, err := stockmove.NewResolver(st, st.Stock, st.Settings,
		stockmove.ResolverConfig{WarehouseRoot: "WH", PoolName: "IT Pool", InUseName: "IT In Use"}, log).Bootstrap(ctx)
	require.NoError(t, err)

	e := &Env{Store: st, Locations: locs}
	e.Laptops, err = st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Laptop"})
	require.NoError(t, err)
	e.Printers, err = st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Printer"})
	require.NoError(t, err)
	e.Cables, err = st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Cables", IsConsumable: true})
	require.NoError(t, err)
	e.Product, err = st.Products.Create(ctx, "ThinkPad T14", products.TypeStorable, products.UoMPcs)
	require.NoError(t, err)
	e.Ivan, err = st.Directory.CreateEmployee(ctx, "Ivan", nil)
	require.NoError(t, err)
	e.Olga, err = st.Directory.CreateEmployee(ctx, "Olga", nil)
	require.NoError(t, err)
	e.Truck, err = st.Catalog.CreateUnit(ctx, catalog.Unit{Name: "DT-05"})
	require.NoError(t, err)

	e.Lifecycle = lifecycle.New(lifecycle.Deps{
		Tx:        st,
		Assets:    st.Assets,
		Catalog:   st.Catalog,
		Products:  st.Products,
		Directory: st.Directory,
		Checker:   stockmove.NewPreflight(st.Stock, locs.Pool, nil),
		Mover:     stockmove.NewOrchestrator(st, st.Stock, st.Sequences, stock.TypeInternal, log),
		Locations: locs,
		Log:       log,
	})
	return e
}

// StockUp кладёт n единиц товара в пул.
func (e *Env) StockUp(t *testing.T, n int64) {
	t.Helper()
	require.NoError(t, e.Store.Stock.Receive(context.Background(), e.Product.ID, nil, e.Locations.Pool.ID, decimal.NewFromInt(n), "init"))
}

func (e *Env) OnHand(loc stock.Location) decimal.Decimal {
	return e.Store.Stock.OnHand(loc, e.Product.ID)
}
