package stock_test

import (
	"context"
	"testing"

	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	st       *memstore.Store
	eng      *stock.Engine
	src, dst *stock.Location
	product  int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	root, err := st.Stock.FindLocation(ctx, nil, "WH")
	require.NoError(t, err)
	src, err := st.Stock.CreateLocation(ctx, "Src", &root.ID, stock.UsageInternal)
	require.NoError(t, err)
	dst, err := st.Stock.CreateLocation(ctx, "Dst", &root.ID, stock.UsageInternal)
	require.NoError(t, err)
	p, err := st.Products.Create(ctx, "Monitor", products.TypeStorable, products.UoMPcs)
	require.NoError(t, err)
	return &env{st: st, eng: stock.NewEngine(st.Stock), src: src, dst: dst, product: p.ID}
}

func (e *env) draft(t *testing.T) *stock.Transfer {
	t.Helper()
	tr := &stock.Transfer{
		Name: "T1", SourceID: e.src.ID, DestID: e.dst.ID, ProductID: e.product, Quantity: decimal.NewFromInt(1),
	}
	require.NoError(t, e.st.Stock.CreateTransfer(context.Background(), tr))
	return tr
}

func TestEngine_FullCycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.st.Stock.Receive(ctx, e.product, nil, e.src.ID, decimal.NewFromInt(1), ""))

	tr := e.draft(t)
	require.NoError(t, e.eng.Confirm(ctx, tr))
	require.NoError(t, e.eng.Reserve(ctx, tr))
	assert.Equal(t, stock.StateAssigned, tr.State)

	err := e.eng.Validate(ctx, tr)
	assert.ErrorIs(t, err, stock.ErrNotPicked)

	tr.Picked = true
	require.NoError(t, e.eng.Validate(ctx, tr))
	assert.Equal(t, stock.StateDone, tr.State)
	assert.NotNil(t, tr.DoneAt)
	assert.True(t, e.st.Stock.OnHand(*e.dst, e.product).Equal(decimal.NewFromInt(1)))

	assert.ErrorIs(t, e.eng.Cancel(ctx, tr), stock.ErrInvalidState)
	assert.ErrorIs(t, e.eng.Delete(ctx, tr), stock.ErrInvalidState)
}

func TestEngine_ReserveWithoutStock(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	tr := e.draft(t)
	require.NoError(t, e.eng.Confirm(ctx, tr))
	require.NoError(t, e.eng.Reserve(ctx, tr))
	assert.Equal(t, stock.StateConfirmed, tr.State)
	assert.Nil(t, tr.ReservedQuantID)

	require.NoError(t, e.eng.Cancel(ctx, tr))
	assert.Equal(t, stock.StateCancel, tr.State)
}

func TestEngine_CancelReleasesReservation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.st.Stock.Receive(ctx, e.product, nil, e.src.ID, decimal.NewFromInt(1), ""))

	tr := e.draft(t)
	require.NoError(t, e.eng.Confirm(ctx, tr))
	require.NoError(t, e.eng.Reserve(ctx, tr))
	quantID := *tr.ReservedQuantID

	require.NoError(t, e.eng.Cancel(ctx, tr))
	q, err := e.st.Stock.GetQuant(ctx, quantID)
	require.NoError(t, err)
	assert.True(t, q.Reserved.IsZero())
	assert.True(t, q.Free().Equal(decimal.NewFromInt(1)))
}

func TestEngine_LotMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a, _ := e.st.Products.CreateLot(ctx, e.product, "A")
	b, _ := e.st.Products.CreateLot(ctx, e.product, "B")
	require.NoError(t, e.st.Stock.Receive(ctx, e.product, &a.ID, e.src.ID, decimal.NewFromInt(1), ""))

	tr := e.draft(t)
	require.NoError(t, e.eng.Confirm(ctx, tr))
	require.NoError(t, e.eng.Reserve(ctx, tr))
	tr.LotID = &b.ID
	tr.Picked = true
	assert.ErrorIs(t, e.eng.Validate(ctx, tr), stock.ErrLotMismatch)
}

func TestEngine_ConfirmTwice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.draft(t)
	require.NoError(t, e.eng.Confirm(ctx, tr))
	assert.ErrorIs(t, e.eng.Confirm(ctx, tr), stock.ErrInvalidState)
}

func TestLocationContains(t *testing.T) {
	root := stock.Location{ID: 1, ParentPath: "1/"}
	child := stock.Location{ID: 5, ParentPath: "1/5/"}
	other := stock.Location{ID: 11, ParentPath: "11/"}

	assert.True(t, root.Contains(child))
	assert.True(t, root.Contains(root))
	assert.False(t, child.Contains(root))
	assert.False(t, root.Contains(other))
}
