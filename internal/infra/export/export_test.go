package export_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/infra/export"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWrite(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	cat, err := st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Printer"})
	require.NoError(t, err)
	tag := "PR-1"
	a := assets.Asset{Name: "HP LaserJet", Tag: &tag, CategoryID: &cat.ID, State: assets.StateInUse, Condition: assets.ConditionGood, Kind: assets.KindIT}
	require.NoError(t, st.Assets.Insert(ctx, &a))
	for i, bw := range []int{100, 180} {
		rd := printers.Reading{AssetID: a.ID, Date: time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC), BWPages: bw}
		require.NoError(t, st.Printers.Create(ctx, &rd))
	}

	var buf bytes.Buffer
	require.NoError(t, export.New(st.Assets, st.Catalog, st.Printers, "printer").Write(ctx, &buf, assets.Filter{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(export.SheetAssets)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "HP LaserJet", rows[1][1])
	assert.Equal(t, "PR-1", rows[1][2])
	assert.Equal(t, "Printer", rows[1][3])
	assert.Equal(t, "in_use", rows[1][5])

	rows, err = f.GetRows(export.SheetPrinters)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-03-02", rows[1][2])
	assert.Equal(t, "80", rows[1][6])
	assert.Equal(t, "0", rows[2][6])
}
