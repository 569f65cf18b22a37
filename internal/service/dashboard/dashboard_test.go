package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/infra/metrics"
	"github.com/Spok95/itasset/internal/service/dashboard"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = dashboard.Config{LaptopCategory: "laptop", PrinterCategory: "Printer"}

func newService(st *memstore.Store) *dashboard.Service {
	return dashboard.New(st.Assets, st.Catalog, st.Printers, cfg, nil, logger.Discard())
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStats_Empty(t *testing.T) {
	st := memstore.New()
	stats, err := newService(st).Stats(context.Background(), dashboard.Query{})
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
	require.Len(t, stats.ByState, 4)
	for _, s := range stats.ByState {
		assert.Zero(t, s.Count)
		assert.Zero(t, s.Percent)
		assert.NotEmpty(t, s.Color)
	}
	require.Len(t, stats.ByCondition, 3)
	assert.Empty(t, stats.ByCategory)
	assert.Nil(t, stats.Laptops)
	assert.Zero(t, stats.PrinterPages)
}

type seed struct {
	st       *memstore.Store
	laptop   *catalog.Category
	printer  *catalog.Category
	phone    *catalog.Category
	printerA int64
}

func seeded(t *testing.T) seed {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	s := seed{st: st}
	var err error
	s.laptop, err = st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Laptop"})
	require.NoError(t, err)
	s.printer, err = st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Printer"})
	require.NoError(t, err)
	s.phone, err = st.Catalog.CreateCategory(ctx, catalog.Category{Name: "Phone"})
	require.NoError(t, err)

	add := func(cat int64, state assets.State, cond assets.Condition, created string) int64 {
		st.SetNow(func() time.Time { return day(created) })
		a := assets.Asset{Name: "a", CategoryID: &cat, State: state, Condition: cond, Kind: assets.KindIT}
		require.NoError(t, st.Assets.Insert(ctx, &a))
		return a.ID
	}
	add(s.laptop.ID, assets.StateInUse, assets.ConditionGood, "2024-01-10")
	add(s.laptop.ID, assets.StateAvailable, assets.ConditionGood, "2024-02-10")
	add(s.laptop.ID, assets.StateMaintenance, assets.ConditionBroken, "2024-03-10")
	s.printerA = add(s.printer.ID, assets.StateInUse, assets.ConditionDegraded, "2024-01-05")

	for _, r := range []printers.Reading{
		{AssetID: s.printerA, Date: day("2024-01-01"), BWPages: 100},
		{AssetID: s.printerA, Date: day("2024-02-01"), BWPages: 150, ColorPages: 10},
		{AssetID: s.printerA, Date: day("2024-03-01"), BWPages: 220, ColorPages: 20},
	} {
		require.NoError(t, st.Printers.Create(ctx, &r))
	}
	return s
}

func TestStats_Totals(t *testing.T) {
	s := seeded(t)
	stats, err := newService(s.st).Stats(context.Background(), dashboard.Query{})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	byKey := map[string]dashboard.Slice{}
	for _, sl := range stats.ByState {
		byKey[sl.Key] = sl
	}
	assert.Equal(t, 2, byKey["in_use"].Count)
	assert.Equal(t, 50.0, byKey["in_use"].Percent)
	assert.Equal(t, 25.0, byKey["retired"].Percent+byKey["available"].Percent)

	// пустые категории тоже показываются
	require.Len(t, stats.ByCategory, 3)
	assert.Equal(t, "Laptop", stats.ByCategory[0].Name)
	assert.Equal(t, 3, stats.ByCategory[0].Count)
	assert.Equal(t, 0, stats.ByCategory[2].Count)

	require.NotNil(t, stats.Laptops)
	assert.Equal(t, 3, stats.Laptops.Total)
	assert.Equal(t, 140, stats.PrinterPages)
}

func TestStats_Filtered(t *testing.T) {
	s := seeded(t)
	from, to := day("2024-02-01"), day("2024-02-29")
	stats, err := newService(s.st).Stats(context.Background(), dashboard.Query{
		CategoryIDs: []int64{s.laptop.ID, s.phone.ID},
		From:        &from,
		To:          &to,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	require.Len(t, stats.ByCategory, 1)
	assert.Equal(t, s.laptop.ID, stats.ByCategory[0].CategoryID)
	assert.Equal(t, 1, stats.Laptops.Total)
	// от показания 01.02 до последнего не позже 29.02
	assert.Equal(t, 0, stats.PrinterPages)

	from = day("2024-02-15")
	to = day("2024-03-31")
	stats, err = newService(s.st).Stats(context.Background(), dashboard.Query{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 80, stats.PrinterPages)
}

func TestStats_ObservesLatency(t *testing.T) {
	st := memstore.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := dashboard.New(st.Assets, st.Catalog, st.Printers, cfg, m, logger.Discard())

	_, err := svc.Stats(context.Background(), dashboard.Query{})
	require.NoError(t, err)
	n, err := testutil.GatherAndCount(reg, "itasset_dashboard_query_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
