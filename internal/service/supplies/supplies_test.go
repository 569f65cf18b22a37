package supplies_test

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/consumables"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/service/supplies"
	"github.com/Spok95/itasset/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct{ texts []string }

func (c *captured) Notify(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func TestLowStock(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	n := &captured{}
	svc := supplies.New(st.Consumables, n, logger.Discard())

	toner, err := svc.Create(ctx, consumables.Item{Name: "Toner HP 85A", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, consumables.DefaultMinQuantity, toner.MinQuantity)
	_, err = svc.Create(ctx, consumables.Item{Name: "Mouse", Quantity: 10, MinQuantity: 3})
	require.NoError(t, err)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Toner HP 85A", low[0].Name)

	require.NoError(t, svc.NotifyLow(ctx))
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "Toner HP 85A — 2 (мин. 5)")

	it, err := svc.Adjust(ctx, toner.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, it.Quantity)

	require.NoError(t, svc.NotifyLow(ctx))
	assert.Len(t, n.texts, 1, "nothing low, nothing sent")
}

func TestAdjustAndCreate_Errors(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := supplies.New(st.Consumables, &captured{}, logger.Discard())

	it, err := svc.Create(ctx, consumables.Item{Name: "Cable", Quantity: 1})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, it.ID, -2)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Adjust(ctx, 999, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Create(ctx, consumables.Item{Name: "  "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestWatch_BadSchedule(t *testing.T) {
	svc := supplies.New(memstore.New().Consumables, &captured{}, logger.Discard())
	_, err := svc.Watch("every tuesday", time.Second)
	assert.Error(t, err)

	c, err := svc.Watch("0 8 * * *", time.Second)
	require.NoError(t, err)
	<-c.Stop().Done()
}
