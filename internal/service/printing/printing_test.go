package printing_test

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/service/printing"
	"github.com/Spok95/itasset/internal/testutil/fixture"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func date(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func create(t *testing.T, e *fixture.Env, name string, categoryID int64) int64 {
	t.Helper()
	out, err := e.Lifecycle.Create(context.Background(), []assets.Changes{{
		Name:       assets.Set(name),
		Tag:        assets.Set(ptr(name)),
		CategoryID: assets.Set(ptr(categoryID)),
	}})
	require.NoError(t, err)
	return out[0].ID
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	e := fixture.New(t)
	svc := printing.New(e.Store, e.Store.Printers, e.Store.Assets, e.Store.Catalog, "printer", logger.Discard())
	printer := create(t, e, "HP-1", e.Printers.ID)

	u, err := svc.Record(ctx, printers.Reading{AssetID: printer, Date: date(1), BWPages: 100, ColorPages: 10})
	require.NoError(t, err)
	assert.Zero(t, u.PagesDiff)

	u, err = svc.Record(ctx, printers.Reading{AssetID: printer, Date: date(5), BWPages: 150, ColorPages: 12})
	require.NoError(t, err)
	assert.Equal(t, 52, u.PagesDiff)
	assert.Equal(t, 50, u.BWDiff)
	assert.Equal(t, 2, u.ColorDiff)

	_, err = svc.Record(ctx, printers.Reading{AssetID: printer, Date: date(6), BWPages: 120})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "counter_decreased", ae.Code)
	assert.ErrorIs(t, err, printers.ErrCounterDecreased)

	// показание задним числом сравнивается с тем, что было на ту дату
	_, err = svc.Record(ctx, printers.Reading{AssetID: printer, Date: date(3), BWPages: 120, ColorPages: 10})
	require.NoError(t, err)

	list, err := svc.List(ctx, printer)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, date(5), list[0].Date)
	assert.Equal(t, 42, list[0].PagesDiff)
	assert.Equal(t, 10, list[1].PagesDiff)
	assert.Zero(t, list[2].PagesDiff)
}

func TestRecord_Rejections(t *testing.T) {
	ctx := context.Background()
	e := fixture.New(t)
	svc := printing.New(e.Store, e.Store.Printers, e.Store.Assets, e.Store.Catalog, "Printer", logger.Discard())
	laptop := create(t, e, "NB-1", e.Laptops.ID)

	tests := []struct {
		name string
		rd   printers.Reading
		kind apperr.Kind
	}{
		{"not a printer", printers.Reading{AssetID: laptop, BWPages: 1}, apperr.KindValidation},
		{"negative", printers.Reading{AssetID: laptop, BWPages: -1}, apperr.KindValidation},
		{"unknown asset", printers.Reading{AssetID: 4242}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(ctx, tt.rd)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}
}

type txSpy struct {
	*memstore.Store
	open int
}

func (s *txSpy) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.open++
	defer func() { s.open-- }()
	return s.Store.WithinTx(ctx, fn)
}

type lockSpy struct {
	*memstore.AssetRepo
	tx     *txSpy
	locked []int64
}

func (l *lockSpy) GetForUpdate(ctx context.Context, ids []int64) ([]assets.Asset, error) {
	if l.tx.open > 0 {
		l.locked = append(l.locked, ids...)
	}
	return l.AssetRepo.GetForUpdate(ctx, ids)
}

func TestRecord_LocksPrinterInsideTx(t *testing.T) {
	ctx := context.Background()
	e := fixture.New(t)
	tx := &txSpy{Store: e.Store}
	locks := &lockSpy{AssetRepo: e.Store.Assets, tx: tx}
	svc := printing.New(tx, e.Store.Printers, locks, e.Store.Catalog, "Printer", logger.Discard())
	printer := create(t, e, "HP-2", e.Printers.ID)

	_, err := svc.Record(ctx, printers.Reading{AssetID: printer, Date: date(1), BWPages: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{printer}, locks.locked)

	// отказ по монотонности ничего не пишет
	_, err = svc.Record(ctx, printers.Reading{AssetID: printer, Date: date(2), BWPages: 5})
	require.Error(t, err)
	list, err := svc.List(ctx, printer)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
