package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/infra/export"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/infra/metrics"
	"github.com/Spok95/itasset/internal/infra/notify"
	"github.com/Spok95/itasset/internal/service/assignments"
	"github.com/Spok95/itasset/internal/service/dashboard"
	"github.com/Spok95/itasset/internal/service/paperwork"
	"github.com/Spok95/itasset/internal/service/printing"
	"github.com/Spok95/itasset/internal/service/supplies"
	"github.com/Spok95/itasset/internal/service/upkeep"
	"github.com/Spok95/itasset/internal/testutil/fixture"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(e *fixture.Env) *API {
	st, log := e.Store, logger.Discard()
	return &API{
		Lifecycle:   e.Lifecycle,
		Assets:      st.Assets,
		Dashboard:   dashboard.New(st.Assets, st.Catalog, st.Printers, dashboard.Config{LaptopCategory: "Laptop", PrinterCategory: "Printer"}, nil, log),
		Maintenance: upkeep.New(st.Maintenance, e.Lifecycle, log),
		Printing:    printing.New(st, st.Printers, st.Assets, st.Catalog, "Printer", log),
		Holders:     assignments.New(st, st.History, e.Lifecycle, log),
		Paperwork: paperwork.New(paperwork.Deps{
			Tx: st, Store: st.Forms, Sequences: st.Sequences, Assets: e.Lifecycle,
			People: st.Directory, Categories: st.Catalog, Notifier: notify.Log{L: log}, Suffix: "BA/IT", Log: log,
		}),
		Categories: st.Catalog,
		Supplies:   supplies.New(st.Consumables, notify.Log{L: log}, log),
		Exporter:   export.New(st.Assets, st.Catalog, st.Printers, "Printer"),
		Log:        log,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	h := Handler(Options{}, nil)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(headerRequestID))
	assert.NoError(t, err)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Rejected("validation_error")

	rec := do(t, Handler(Options{ExposeMetrics: true, Gatherer: reg}, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "itasset_lifecycle_rejections_total")
}

func TestAssetLifecycleOverHTTP(t *testing.T) {
	e := fixture.New(t)
	h := Handler(Options{Log: logger.Discard()}, newAPI(e))

	laptop := map[string]any{
		"name": "ThinkPad", "tag": "IT-100",
		"category_id": e.Laptops.ID, "product_id": e.Product.ID,
	}

	// нет остатка в пуле
	rec := do(t, h, http.MethodPost, "/api/assets", map[string]any{"assets": []any{laptop}})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "stock_not_found", decodeBody[errorResponse](t, rec).Code)

	e.StockUp(t, 1)
	rec = do(t, h, http.MethodPost, "/api/assets", map[string]any{"assets": []any{laptop}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[[]assets.Asset](t, rec)
	require.Len(t, created, 1)
	id := created[0].ID
	assert.Equal(t, assets.StateAvailable, created[0].State)

	rec = do(t, h, http.MethodPatch, "/api/assets/"+itoa(id), map[string]any{"employee_id": e.Ivan.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[assets.Asset](t, rec)
	assert.Equal(t, assets.StateInUse, got.State)
	assert.True(t, got.Synced)

	rec = do(t, h, http.MethodPatch, "/api/assets", map[string]any{"ids": []int64{id}, "changes": map[string]any{"state": "retired"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPatch, "/api/assets/"+itoa(id), map[string]any{"name": "renamed"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "asset_retired", decodeBody[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/assets/"+itoa(id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/assets/98765", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/assets?state=retired", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]assets.Asset](t, rec), 1)
}

func TestPayloadValidation(t *testing.T) {
	e := fixture.New(t)
	h := Handler(Options{Log: logger.Discard()}, newAPI(e))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"empty batch", http.MethodPost, "/api/assets", map[string]any{"assets": []any{}}},
		{"unknown field", http.MethodPatch, "/api/assets/1", map[string]any{"synced": true}},
		{"no ids", http.MethodPatch, "/api/assets", map[string]any{"changes": map[string]any{}}},
		{"bad date", http.MethodGet, "/api/dashboard?date_start=14.03.2024", nil},
		{"bad state", http.MethodGet, "/api/assets?state=lost", nil},
		{"bad damage type", http.MethodPost, "/api/damage-reports", map[string]any{"asset_id": 1, "employee_id": 1, "damage_type": "fire", "description": "x"}},
		{"same sender and receiver", http.MethodPost, "/api/handovers", map[string]any{"asset_id": 1, "sender_id": 2, "receiver_id": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestDashboardAndExport(t *testing.T) {
	e := fixture.New(t)
	h := Handler(Options{Log: logger.Discard()}, newAPI(e))

	rec := do(t, h, http.MethodGet, "/api/dashboard?category_id="+itoa(e.Laptops.ID)+"&date_start=2024-01-01&date_end=2024-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decodeBody[dashboard.Stats](t, rec)
	assert.Zero(t, stats.Total)
	assert.Len(t, stats.ByState, 4)

	rec = do(t, h, http.MethodGet, "/api/assets/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestFormsAndAssignmentsOverHTTP(t *testing.T) {
	e := fixture.New(t)
	h := Handler(Options{Log: logger.Discard()}, newAPI(e))
	e.StockUp(t, 1)

	rec := do(t, h, http.MethodPost, "/api/assets", map[string]any{"assets": []any{map[string]any{
		"name": "ThinkPad", "tag": "IT-7", "category_id": e.Laptops.ID, "product_id": e.Product.ID,
	}}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[[]assets.Asset](t, rec)[0].ID

	rec = do(t, h, http.MethodPost, "/api/assignments", map[string]any{"asset_id": id, "employee_id": e.Ivan.ID, "date": "2024-03-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	recID := decodeBody[map[string]any](t, rec)["id"].(float64)

	rec = do(t, h, http.MethodPost, "/api/assignments/"+itoa(int64(recID))+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/requests", map[string]any{"employee_id": e.Ivan.ID, "category_id": e.Laptops.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reqID := int64(decodeBody[map[string]any](t, rec)["id"].(float64))

	rec = do(t, h, http.MethodPost, "/api/requests/"+itoa(reqID)+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/requests/"+itoa(reqID)+"/submit", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/requests/"+itoa(reqID)+"/archive", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/damage-reports", map[string]any{
		"asset_id": id, "employee_id": e.Ivan.ID, "damage_type": "physical", "description": "dropped", "report_date": "2024-03-14",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	report := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "0001/III/BA/IT/2024", report["name"])

	rec = do(t, h, http.MethodPost, "/api/damage-reports/"+itoa(int64(report["id"].(float64)))+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	a, err := e.Lifecycle.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, assets.StateMaintenance, a.State)
}

func TestConsumablesOverHTTP(t *testing.T) {
	e := fixture.New(t)
	h := Handler(Options{Log: logger.Discard()}, newAPI(e))

	rec := do(t, h, http.MethodPost, "/api/consumables", map[string]any{"name": "Toner", "quantity": 1, "min_quantity": 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/consumables/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/api/categories", map[string]any{"name": "Monitor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 4)
}

type failingLifecycle struct{ err error }

func (f failingLifecycle) Create(context.Context, []assets.Changes) ([]assets.Asset, error) {
	return nil, f.err
}

func (f failingLifecycle) Update(context.Context, []int64, assets.Changes) ([]assets.Asset, error) {
	return nil, f.err
}

func (f failingLifecycle) Get(context.Context, int64) (*assets.Asset, error) { return nil, f.err }

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.Validation("tag_required", "tag"), http.StatusBadRequest, "tag_required"},
		{"reservation", apperr.StockReservation("stock_unavailable", "try again"), http.StatusConflict, "stock_unavailable"},
		{"policy", apperr.Policy("asset_retired", "retired"), http.StatusUnprocessableEntity, "asset_retired"},
		{"not found", apperr.NotFound("asset_not_found", "nope"), http.StatusNotFound, "asset_not_found"},
		{"configuration", apperr.Configuration("transfer_type_missing", "no type"), http.StatusInternalServerError, "internal_error"},
		{"internal", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Handler(Options{}, &API{Lifecycle: failingLifecycle{tt.err}, Log: logger.Discard()})
			rec := do(t, h, http.MethodGet, "/api/assets/1", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeBody[errorResponse](t, rec).Code)
		})
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
