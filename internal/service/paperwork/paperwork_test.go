package paperwork_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/forms"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/service/paperwork"
	"github.com/Spok95/itasset/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	texts []string
	err   error
}

func (c *captured) Notify(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return c.err
}

func setup(t *testing.T) (*fixture.Env, *paperwork.Service, *captured) {
	t.Helper()
	e := fixture.New(t)
	n := &captured{}
	svc := paperwork.New(paperwork.Deps{
		Tx:         e.Store,
		Store:      e.Store.Forms,
		Sequences:  e.Store.Sequences,
		Assets:     e.Lifecycle,
		People:     e.Store.Directory,
		Categories: e.Store.Catalog,
		Notifier:   n,
		Suffix:     "BA/IT",
		Log:        logger.Discard(),
	})
	return e, svc, n
}

func laptop(t *testing.T, e *fixture.Env) assets.Asset {
	t.Helper()
	tag := "NB-1"
	out, err := e.Lifecycle.Create(context.Background(), []assets.Changes{{
		Name: assets.Set("ThinkPad"), Tag: assets.Set(&tag), CategoryID: assets.Set(&e.Laptops.ID),
	}})
	require.NoError(t, err)
	return out[0]
}

func TestRequestFlow(t *testing.T) {
	ctx := context.Background()
	e, svc, _ := setup(t)

	q, err := svc.CreateRequest(ctx, forms.Request{EmployeeID: e.Ivan.ID, CategoryID: e.Laptops.ID, Reason: "new hire"})
	require.NoError(t, err)
	assert.Equal(t, "REQ/0001", q.Name)
	assert.Equal(t, forms.StateDraft, q.State)

	q2, err := svc.CreateRequest(ctx, forms.Request{EmployeeID: e.Olga.ID, CategoryID: e.Laptops.ID})
	require.NoError(t, err)
	assert.Equal(t, "REQ/0002", q2.Name)

	_, err = svc.MoveRequest(ctx, q.ID, forms.StateApproved)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "draft cannot be approved")

	for _, to := range []forms.State{forms.StateSubmitted, forms.StateApproved, forms.StateFulfilled} {
		q, err = svc.MoveRequest(ctx, q.ID, to)
		require.NoError(t, err)
		assert.Equal(t, to, q.State)
	}

	_, err = svc.MoveRequest(ctx, q2.ID, forms.StateSubmitted)
	require.NoError(t, err)
	q2, err = svc.MoveRequest(ctx, q2.ID, forms.StateRejected)
	require.NoError(t, err)
	assert.Equal(t, forms.StateRejected, q2.State)

	_, err = svc.MoveRequest(ctx, 999, forms.StateSubmitted)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.CreateRequest(ctx, forms.Request{EmployeeID: 999, CategoryID: e.Laptops.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestHandover(t *testing.T) {
	ctx := context.Background()
	e, svc, _ := setup(t)
	a := laptop(t, e)

	h, err := svc.CreateHandover(ctx, forms.Handover{AssetID: a.ID, SenderID: e.Ivan.ID, ReceiverID: e.Olga.ID})
	require.NoError(t, err)
	assert.Equal(t, "HO/0001", h.Name)

	_, err = svc.Sign(ctx, h.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	h, err = svc.Sign(ctx, h.ID, []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, forms.StateSigned, h.State)

	_, err = svc.Sign(ctx, h.ID, []byte{1})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "signed twice")
}

func TestDamageReport(t *testing.T) {
	ctx := context.Background()
	e, svc, n := setup(t)
	a := laptop(t, e)

	d, err := svc.CreateDamageReport(ctx, forms.DamageReport{
		AssetID: a.ID, EmployeeID: e.Ivan.ID, DamageType: forms.DamagePhysical,
		Description: "cracked screen", ReportDate: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "0001/III/BA/IT/2024", d.Name)

	d, err = svc.ConfirmDamage(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, forms.StateConfirmed, d.State)

	got, err := e.Lifecycle.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.ConditionBroken, got.Condition)
	assert.Equal(t, assets.StateMaintenance, got.State)
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "0001/III/BA/IT/2024")

	d, err = svc.ResolveDamage(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, forms.StateResolved, d.State)
}

func TestConfirmDamage_RetiredAssetRollsBack(t *testing.T) {
	ctx := context.Background()
	e, svc, n := setup(t)
	a := laptop(t, e)

	d, err := svc.CreateDamageReport(ctx, forms.DamageReport{
		AssetID: a.ID, EmployeeID: e.Ivan.ID, DamageType: forms.DamageLost, Description: "lost on site",
	})
	require.NoError(t, err)
	_, err = e.Lifecycle.Update(ctx, []int64{a.ID}, assets.Changes{State: assets.Set(assets.StateRetired)})
	require.NoError(t, err)

	_, err = svc.ConfirmDamage(ctx, d.ID)
	assert.True(t, apperr.Is(err, apperr.KindPolicy))
	assert.Empty(t, n.texts)

	stored, err := e.Store.Forms.GetDamageReport(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, forms.StateDraft, stored.State)
}

func TestConfirmDamage_NotifyFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	e, svc, n := setup(t)
	n.err = errors.New("telegram down")
	a := laptop(t, e)

	d, err := svc.CreateDamageReport(ctx, forms.DamageReport{
		AssetID: a.ID, EmployeeID: e.Ivan.ID, DamageType: forms.DamageSystem, Description: "no boot",
	})
	require.NoError(t, err)
	_, err = svc.ConfirmDamage(ctx, d.ID)
	require.NoError(t, err)
}

func TestCreateDamageReport_Validation(t *testing.T) {
	ctx := context.Background()
	e, svc, _ := setup(t)
	a := laptop(t, e)

	tests := []struct {
		name string
		d    forms.DamageReport
		code string
	}{
		{"bad type", forms.DamageReport{AssetID: a.ID, EmployeeID: e.Ivan.ID, DamageType: "fire", Description: "x"}, "bad_damage_type"},
		{"no description", forms.DamageReport{AssetID: a.ID, EmployeeID: e.Ivan.ID, DamageType: forms.DamageOther}, "description_required"},
		{"unknown employee", forms.DamageReport{AssetID: a.ID, EmployeeID: 404, DamageType: forms.DamageOther, Description: "x"}, "employee_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDamageReport(ctx, tt.d)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
}
