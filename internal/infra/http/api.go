package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/consumables"
	"github.com/Spok95/itasset/internal/domain/forms"
	"github.com/Spok95/itasset/internal/domain/history"
	"github.com/Spok95/itasset/internal/domain/maintenance"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/service/assignments"
	"github.com/Spok95/itasset/internal/service/dashboard"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type Lifecycle interface {
	Create(ctx context.Context, batch []assets.Changes) ([]assets.Asset, error)
	Update(ctx context.Context, ids []int64, ch assets.Changes) ([]assets.Asset, error)
	Get(ctx context.Context, id int64) (*assets.Asset, error)
}

type AssetLister interface {
	List(ctx context.Context, f assets.Filter) ([]assets.Asset, error)
}

type Dashboard interface {
	Stats(ctx context.Context, q dashboard.Query) (*dashboard.Stats, error)
}

type Maintenance interface {
	Log(ctx context.Context, rec maintenance.Record) (*maintenance.Record, error)
	List(ctx context.Context, assetID int64) ([]maintenance.Record, error)
}

type Printing interface {
	Record(ctx context.Context, rd printers.Reading) (*printers.Usage, error)
	List(ctx context.Context, assetID int64) ([]printers.Usage, error)
}

type Holders interface {
	Assign(ctx context.Context, in assignments.Input) (*history.Record, error)
	Swap(ctx context.Context, in assignments.Input) (*history.Record, error)
	Return(ctx context.Context, k history.Kind, id int64) (*history.Record, error)
}

type Paperwork interface {
	CreateRequest(ctx context.Context, q forms.Request) (*forms.Request, error)
	MoveRequest(ctx context.Context, id int64, to forms.State) (*forms.Request, error)
	CreateHandover(ctx context.Context, h forms.Handover) (*forms.Handover, error)
	Sign(ctx context.Context, id int64, signature []byte) (*forms.Handover, error)
	CreateDamageReport(ctx context.Context, d forms.DamageReport) (*forms.DamageReport, error)
	ConfirmDamage(ctx context.Context, id int64) (*forms.DamageReport, error)
	ResolveDamage(ctx context.Context, id int64) (*forms.DamageReport, error)
}

type Categories interface {
	CreateCategory(ctx context.Context, c catalog.Category) (*catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
}

type Supplies interface {
	Create(ctx context.Context, it consumables.Item) (*consumables.Item, error)
	Adjust(ctx context.Context, id int64, delta int) (*consumables.Item, error)
	List(ctx context.Context) ([]consumables.Item, error)
	LowStock(ctx context.Context) ([]consumables.Item, error)
}

type Exporter interface {
	Write(ctx context.Context, w io.Writer, f assets.Filter) error
}

// API — обработчики /api. Все поля обязательны.
type API struct {
	Lifecycle   Lifecycle
	Assets      AssetLister
	Dashboard   Dashboard
	Maintenance Maintenance
	Printing    Printing
	Holders     Holders
	Paperwork   Paperwork
	Categories  Categories
	Supplies    Supplies
	Exporter    Exporter
	Log         *slog.Logger
}

func (a *API) routes(r *mux.Router) {
	r.HandleFunc("/assets", a.handle(a.listAssets)).Methods(http.MethodGet)
	r.HandleFunc("/assets", a.handle(a.createAssets)).Methods(http.MethodPost)
	r.HandleFunc("/assets", a.handle(a.updateAssets)).Methods(http.MethodPatch)
	r.HandleFunc("/assets/export.xlsx", a.exportAssets).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id:[0-9]+}", a.handle(a.getAsset)).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id:[0-9]+}", a.handle(a.updateAsset)).Methods(http.MethodPatch)
	r.HandleFunc("/assets/{id:[0-9]+}/maintenance", a.handle(a.logMaintenance)).Methods(http.MethodPost)
	r.HandleFunc("/assets/{id:[0-9]+}/maintenance", a.handle(a.listMaintenance)).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id:[0-9]+}/printer-readings", a.handle(a.recordReading)).Methods(http.MethodPost)
	r.HandleFunc("/assets/{id:[0-9]+}/printer-readings", a.handle(a.listReadings)).Methods(http.MethodGet)

	r.HandleFunc("/dashboard", a.handle(a.dashboard)).Methods(http.MethodGet)

	r.HandleFunc("/assignments", a.handle(a.assign)).Methods(http.MethodPost)
	r.HandleFunc("/assignments/{id:[0-9]+}/return", a.handle(a.returnOf(history.KindAssignment))).Methods(http.MethodPost)
	r.HandleFunc("/swaps", a.handle(a.swap)).Methods(http.MethodPost)
	r.HandleFunc("/swaps/{id:[0-9]+}/return", a.handle(a.returnOf(history.KindSwap))).Methods(http.MethodPost)

	r.HandleFunc("/requests", a.handle(a.createRequest)).Methods(http.MethodPost)
	r.HandleFunc("/requests/{id:[0-9]+}/{action}", a.handle(a.moveRequest)).Methods(http.MethodPost)
	r.HandleFunc("/handovers", a.handle(a.createHandover)).Methods(http.MethodPost)
	r.HandleFunc("/handovers/{id:[0-9]+}/sign", a.handle(a.signHandover)).Methods(http.MethodPost)
	r.HandleFunc("/damage-reports", a.handle(a.createDamageReport)).Methods(http.MethodPost)
	r.HandleFunc("/damage-reports/{id:[0-9]+}/{action}", a.handle(a.moveDamageReport)).Methods(http.MethodPost)

	r.HandleFunc("/categories", a.handle(a.listCategories)).Methods(http.MethodGet)
	r.HandleFunc("/categories", a.handle(a.createCategory)).Methods(http.MethodPost)

	r.HandleFunc("/consumables", a.handle(a.listConsumables)).Methods(http.MethodGet)
	r.HandleFunc("/consumables", a.handle(a.createConsumable)).Methods(http.MethodPost)
	r.HandleFunc("/consumables/low-stock", a.handle(a.lowStock)).Methods(http.MethodGet)
	r.HandleFunc("/consumables/{id:[0-9]+}/adjust", a.handle(a.adjustConsumable)).Methods(http.MethodPost)
}

// handlerFunc возвращает статус и тело ответа либо ошибку.
type handlerFunc func(r *http.Request) (int, any, error)

func (a *API) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := h(r)
		if err != nil {
			writeError(w, r, a.Log, err)
			return
		}
		writeJSON(w, status, body)
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, apperr.Validation("bad_id", "bad id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("bad_date", "%s: expected YYYY-MM-DD, got %q", field, s)
	}
	return t, nil
}

func parseOptDate(field, s string) (*time.Time, error) {
	t, err := parseDate(field, s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

// categoryIDs: category_id можно передать несколько раз или через запятую.
func categoryIDs(r *http.Request) ([]int64, error) {
	var out []int64
	for _, raw := range r.URL.Query()["category_id"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, apperr.Validation("bad_category", "bad category_id %q", part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

/* Активы */

func (a *API) assetFilter(r *http.Request) (assets.Filter, error) {
	q := r.URL.Query()
	f := assets.Filter{State: assets.State(q.Get("state"))}
	if f.State != "" && !f.State.Valid() {
		return f, apperr.Validation("bad_state", "unknown state %q", f.State)
	}
	var err error
	if f.CategoryIDs, err = categoryIDs(r); err != nil {
		return f, err
	}
	if f.From, err = parseOptDate("date_start", q.Get("date_start")); err != nil {
		return f, err
	}
	if f.To, err = parseOptDate("date_end", q.Get("date_end")); err != nil {
		return f, err
	}
	if l := q.Get("limit"); l != "" {
		if f.Limit, err = strconv.Atoi(l); err != nil || f.Limit < 0 {
			return f, apperr.Validation("bad_limit", "bad limit %q", l)
		}
	}
	return f, nil
}

func (a *API) listAssets(r *http.Request) (int, any, error) {
	f, err := a.assetFilter(r)
	if err != nil {
		return 0, nil, err
	}
	list, err := a.Assets.List(r.Context(), f)
	if err != nil {
		return 0, nil, err
	}
	if list == nil {
		list = []assets.Asset{}
	}
	return http.StatusOK, list, nil
}

type createAssetsRequest struct {
	Assets []assets.Changes `json:"assets" validate:"required,min=1"`
}

func (a *API) createAssets(r *http.Request) (int, any, error) {
	var req createAssetsRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	out, err := a.Lifecycle.Create(r.Context(), req.Assets)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

type updateAssetsRequest struct {
	IDs     []int64        `json:"ids" validate:"required,min=1,dive,gt=0"`
	Changes assets.Changes `json:"changes"`
}

func (a *API) updateAssets(r *http.Request) (int, any, error) {
	var req updateAssetsRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	out, err := a.Lifecycle.Update(r.Context(), req.IDs, req.Changes)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

func (a *API) updateAsset(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	var ch assets.Changes
	if err := decode(r, &ch); err != nil {
		return 0, nil, err
	}
	out, err := a.Lifecycle.Update(r.Context(), []int64{id}, ch)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out[0], nil
}

func (a *API) getAsset(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Lifecycle.Get(r.Context(), id)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

func (a *API) exportAssets(w http.ResponseWriter, r *http.Request) {
	f, err := a.assetFilter(r)
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="assets_%s.xlsx"`, time.Now().Format("20060102_150405")))
	if err := a.Exporter.Write(r.Context(), w, f); err != nil {
		// заголовки уже ушли, остаётся только журнал
		a.Log.Error("export failed", "request_id", RequestID(r.Context()), "err", err)
	}
}

/* Обслуживание и принтеры */

type maintenanceRequest struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Description string          `json:"description" validate:"required"`
	Cost        decimal.Decimal `json:"cost"`
	Technician  string          `json:"technician"`
}

func (a *API) logMaintenance(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	var req maintenanceRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Maintenance.Log(r.Context(), maintenance.Record{
		AssetID: id, Date: date, Type: maintenance.Type(req.Type),
		Description: req.Description, Cost: req.Cost, Technician: req.Technician,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

func (a *API) listMaintenance(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Maintenance.List(r.Context(), id)
	if err != nil {
		return 0, nil, err
	}
	if out == nil {
		out = []maintenance.Record{}
	}
	return http.StatusOK, out, nil
}

type readingRequest struct {
	Date       string `json:"date"`
	ColorPages int    `json:"color_pages" validate:"gte=0"`
	BWPages    int    `json:"bw_pages" validate:"gte=0"`
	Remarks    string `json:"remarks"`
}

func (a *API) recordReading(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	var req readingRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Printing.Record(r.Context(), printers.Reading{
		AssetID: id, Date: date, ColorPages: req.ColorPages, BWPages: req.BWPages, Remarks: req.Remarks,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

func (a *API) listReadings(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Printing.List(r.Context(), id)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

/* Сводка */

func (a *API) dashboard(r *http.Request) (int, any, error) {
	f, err := a.assetFilter(r)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Dashboard.Stats(r.Context(), dashboard.Query{CategoryIDs: f.CategoryIDs, From: f.From, To: f.To})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

/* Выдача и установка */

type assignRequest struct {
	AssetID    int64  `json:"asset_id" validate:"required,gt=0"`
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	Date       string `json:"date"`
	Notes      string `json:"notes"`
}

func (a *API) assign(r *http.Request) (int, any, error) {
	var req assignRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Holders.Assign(r.Context(), assignments.Input{AssetID: req.AssetID, HolderID: req.EmployeeID, Date: date, Notes: req.Notes})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

type swapRequest struct {
	AssetID int64  `json:"asset_id" validate:"required,gt=0"`
	UnitID  int64  `json:"unit_id" validate:"required,gt=0"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
}

func (a *API) swap(r *http.Request) (int, any, error) {
	var req swapRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Holders.Swap(r.Context(), assignments.Input{AssetID: req.AssetID, HolderID: req.UnitID, Date: date, Notes: req.Notes})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

func (a *API) returnOf(k history.Kind) handlerFunc {
	return func(r *http.Request) (int, any, error) {
		id, err := pathID(r)
		if err != nil {
			return 0, nil, err
		}
		out, err := a.Holders.Return(r.Context(), k, id)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, out, nil
	}
}

/* Документы */

type requestForm struct {
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
	Date       string `json:"request_date"`
	Reason     string `json:"reason"`
}

func (a *API) createRequest(r *http.Request) (int, any, error) {
	var req requestForm
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("request_date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Paperwork.CreateRequest(r.Context(), forms.Request{
		EmployeeID: req.EmployeeID, CategoryID: req.CategoryID, RequestDate: date, Reason: req.Reason,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

var requestActions = map[string]forms.State{
	"submit":  forms.StateSubmitted,
	"approve": forms.StateApproved,
	"reject":  forms.StateRejected,
	"fulfill": forms.StateFulfilled,
}

func (a *API) moveRequest(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	action := mux.Vars(r)["action"]
	to, ok := requestActions[action]
	if !ok {
		return 0, nil, apperr.NotFound("unknown_action", "unknown request action %q", action)
	}
	out, err := a.Paperwork.MoveRequest(r.Context(), id, to)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

type handoverForm struct {
	AssetID    int64  `json:"asset_id" validate:"required,gt=0"`
	SenderID   int64  `json:"sender_id" validate:"required,gt=0"`
	ReceiverID int64  `json:"receiver_id" validate:"required,gt=0,nefield=SenderID"`
	Date       string `json:"handover_date"`
	Notes      string `json:"notes"`
}

func (a *API) createHandover(r *http.Request) (int, any, error) {
	var req handoverForm
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("handover_date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Paperwork.CreateHandover(r.Context(), forms.Handover{
		AssetID: req.AssetID, SenderID: req.SenderID, ReceiverID: req.ReceiverID, HandoverDate: date, Notes: req.Notes,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

type signRequest struct {
	Signature []byte `json:"signature" validate:"required"` // base64
}

func (a *API) signHandover(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	var req signRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	out, err := a.Paperwork.Sign(r.Context(), id, req.Signature)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

type damageForm struct {
	AssetID     int64  `json:"asset_id" validate:"required,gt=0"`
	EmployeeID  int64  `json:"employee_id" validate:"required,gt=0"`
	Date        string `json:"report_date"`
	DamageType  string `json:"damage_type" validate:"required,oneof=physical system lost other"`
	Description string `json:"description" validate:"required"`
	ActionTaken string `json:"action_taken"`
}

func (a *API) createDamageReport(r *http.Request) (int, any, error) {
	var req damageForm
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	date, err := parseDate("report_date", req.Date)
	if err != nil {
		return 0, nil, err
	}
	out, err := a.Paperwork.CreateDamageReport(r.Context(), forms.DamageReport{
		AssetID: req.AssetID, EmployeeID: req.EmployeeID, ReportDate: date,
		DamageType: forms.DamageType(req.DamageType), Description: req.Description, ActionTaken: req.ActionTaken,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

func (a *API) moveDamageReport(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	var out *forms.DamageReport
	switch action := mux.Vars(r)["action"]; action {
	case "confirm":
		out, err = a.Paperwork.ConfirmDamage(r.Context(), id)
	case "resolve":
		out, err = a.Paperwork.ResolveDamage(r.Context(), id)
	default:
		return 0, nil, apperr.NotFound("unknown_action", "unknown damage report action %q", action)
	}
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

/* Справочники */

func (a *API) listCategories(r *http.Request) (int, any, error) {
	out, err := a.Categories.ListCategories(r.Context())
	if err != nil {
		return 0, nil, err
	}
	if out == nil {
		out = []catalog.Category{}
	}
	return http.StatusOK, out, nil
}

type categoryForm struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	Color        int    `json:"color" validate:"gte=0,lte=11"`
	IsConsumable bool   `json:"is_consumable"`
}

func (a *API) createCategory(r *http.Request) (int, any, error) {
	var req categoryForm
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	out, err := a.Categories.CreateCategory(r.Context(), catalog.Category{
		Name: req.Name, Description: req.Description, Color: req.Color, IsConsumable: req.IsConsumable,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

/* Расходники */

func (a *API) listConsumables(r *http.Request) (int, any, error) {
	out, err := a.Supplies.List(r.Context())
	if err != nil {
		return 0, nil, err
	}
	if out == nil {
		out = []consumables.Item{}
	}
	return http.StatusOK, out, nil
}

type consumableForm struct {
	Name        string `json:"name" validate:"required"`
	ProductID   *int64 `json:"product_id"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	MinQuantity int    `json:"min_quantity" validate:"gte=0"`
	Description string `json:"description"`
}

func (a *API) createConsumable(r *http.Request) (int, any, error) {
	var req consumableForm
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	out, err := a.Supplies.Create(r.Context(), consumables.Item{
		Name: req.Name, ProductID: req.ProductID, Quantity: req.Quantity,
		MinQuantity: req.MinQuantity, Description: req.Description,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, out, nil
}

type adjustForm struct {
	Delta int `json:"delta" validate:"required"`
}

func (a *API) adjustConsumable(r *http.Request) (int, any, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	var req adjustForm
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	out, err := a.Supplies.Adjust(r.Context(), id, req.Delta)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, out, nil
}

func (a *API) lowStock(r *http.Request) (int, any, error) {
	out, err := a.Supplies.LowStock(r.Context())
	if err != nil {
		return 0, nil, err
	}
	if out == nil {
		out = []consumables.Item{}
	}
	return http.StatusOK, out, nil
}
