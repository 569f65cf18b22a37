package stockmove_test

import (
	"context"
	"testing"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/domain/settings"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/service/stockmove"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = stockmove.ResolverConfig{WarehouseRoot: "WH", PoolName: "IT Pool", InUseName: "IT In Use"}

func newResolver(st *memstore.Store) *stockmove.Resolver {
	return stockmove.NewResolver(st, st.Stock, st.Settings, cfg, logger.Discard())
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	r := newResolver(st)

	first, err := r.Resolve(ctx, stockmove.KindPool)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, stockmove.KindPool)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, st.Stock.CountLocations("IT Pool"))

	v, ok, err := st.Settings.Get(ctx, settings.KeyPoolLocation)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, v)
}

func TestResolve_StoredLocationMissing(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	r := newResolver(st)

	first, err := r.Resolve(ctx, stockmove.KindInUse)
	require.NoError(t, err)
	st.Stock.DeleteLocation(first.ID)

	again, err := r.Resolve(ctx, stockmove.KindInUse)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
	assert.Equal(t, "IT In Use", again.Name)
}

func TestResolve_RootMissing(t *testing.T) {
	st := memstore.New()
	r := stockmove.NewResolver(st, st.Stock, st.Settings,
		stockmove.ResolverConfig{WarehouseRoot: "NOPE", PoolName: "IT Pool", InUseName: "IT In Use"}, logger.Discard())

	_, err := r.Resolve(context.Background(), stockmove.KindPool)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestBootstrap(t *testing.T) {
	st := memstore.New()
	locs, err := newResolver(st).Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "IT Pool", locs.Pool.Name)
	assert.Equal(t, "IT In Use", locs.InUse.Name)
	assert.NotEqual(t, locs.Pool.ID, locs.InUse.ID)
}

type fixture struct {
	st      *memstore.Store
	locs    stockmove.Locations
	orch    *stockmove.Orchestrator
	product *products.Product
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	locs, err := newResolver(st).Bootstrap(ctx)
	require.NoError(t, err)
	p, err := st.Products.Create(ctx, "ThinkPad T14", products.TypeStorable, products.UoMPcs)
	require.NoError(t, err)
	return &fixture{
		st:      st,
		locs:    locs,
		orch:    stockmove.NewOrchestrator(st, st.Stock, st.Sequences, stock.TypeInternal, logger.Discard()),
		product: p,
	}
}

func TestTransfer_Success(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	lot, err := f.st.Products.CreateLot(ctx, f.product.ID, "SN-1")
	require.NoError(t, err)
	require.NoError(t, f.st.Stock.Receive(ctx, f.product.ID, &lot.ID, f.locs.Pool.ID, decimal.NewFromInt(1), "init"))

	tr, err := f.orch.Transfer(ctx, stockmove.Request{
		Source: f.locs.Pool, Dest: f.locs.InUse, ProductID: f.product.ID, LotID: &lot.ID, Label: "assign: laptop -> Ivan",
	})
	require.NoError(t, err)

	assert.Equal(t, stock.StateDone, tr.State)
	assert.True(t, tr.Picked)
	assert.Equal(t, "WH/INT/00001", tr.Name)
	assert.Equal(t, "assign: laptop -> Ivan", tr.Origin)
	require.NotNil(t, tr.LotID)
	assert.Equal(t, lot.ID, *tr.LotID)
	assert.True(t, tr.Quantity.Equal(decimal.NewFromInt(1)))

	assert.True(t, f.st.Stock.OnHand(f.locs.Pool, f.product.ID).IsZero())
	assert.True(t, f.st.Stock.OnHand(f.locs.InUse, f.product.ID).Equal(decimal.NewFromInt(1)))

	moves, err := f.st.Stock.ListMovements(ctx, f.product.ID, 0)
	require.NoError(t, err)
	assert.Len(t, moves, 3) // приход + расход + приход
}

func TestTransfer_NoStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.orch.Transfer(ctx, stockmove.Request{Source: f.locs.Pool, Dest: f.locs.InUse, ProductID: f.product.ID})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStockReservation))
	assert.True(t, apperr.Retryable(err))
	assert.Contains(t, err.Error(), "IT Pool")

	left, err := f.st.Stock.ListTransfers(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestTransfer_NoTransferType(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.st.Stock.RemoveTransferType(stock.TypeInternal)

	_, err := f.orch.Transfer(ctx, stockmove.Request{Source: f.locs.Pool, Dest: f.locs.InUse, ProductID: f.product.ID})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestTransfer_StockInChildLocation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	shelf, err := f.st.Stock.CreateLocation(ctx, "Shelf A", &f.locs.Pool.ID, stock.UsageInternal)
	require.NoError(t, err)
	require.NoError(t, f.st.Stock.Receive(ctx, f.product.ID, nil, shelf.ID, decimal.NewFromInt(2), "init"))

	_, err = f.orch.Transfer(ctx, stockmove.Request{Source: f.locs.Pool, Dest: f.locs.InUse, ProductID: f.product.ID})
	require.NoError(t, err)
	assert.True(t, f.st.Stock.OnHand(f.locs.Pool, f.product.ID).Equal(decimal.NewFromInt(1)))
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	check := stockmove.NewPreflight(f.st.Stock, f.locs.Pool, nil)

	err := check.Check(ctx, f.product.ID, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "no stock")

	require.NoError(t, f.st.Stock.Receive(ctx, f.product.ID, nil, f.locs.Pool.ID, decimal.NewFromInt(1), "init"))
	require.NoError(t, check.Check(ctx, f.product.ID, nil))

	_, err = f.st.Stock.ReserveQuant(ctx, f.product.ID, nil, f.locs.Pool, decimal.NewFromInt(1))
	require.NoError(t, err)
	err = check.Check(ctx, f.product.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved by another operation")
}

func TestPreflight_Serial(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a, _ := f.st.Products.CreateLot(ctx, f.product.ID, "SN-A")
	b, _ := f.st.Products.CreateLot(ctx, f.product.ID, "SN-B")
	require.NoError(t, f.st.Stock.Receive(ctx, f.product.ID, &a.ID, f.locs.Pool.ID, decimal.NewFromInt(1), "init"))

	check := stockmove.NewPreflight(f.st.Stock, f.locs.Pool, nil)
	assert.NoError(t, check.Check(ctx, f.product.ID, &a.ID))
	assert.Error(t, check.Check(ctx, f.product.ID, &b.ID))
}
