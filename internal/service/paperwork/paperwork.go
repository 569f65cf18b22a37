// Package paperwork — документы по активам: заявки, акты передачи и акты о повреждении.
package paperwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/directory"
	"github.com/Spok95/itasset/internal/domain/forms"
	"github.com/Spok95/itasset/internal/domain/sequences"
	"github.com/Spok95/itasset/internal/infra/notify"
	"github.com/Spok95/itasset/internal/service/stockmove"
)

type Store interface {
	CreateRequest(ctx context.Context, q *forms.Request) error
	GetRequest(ctx context.Context, id int64) (*forms.Request, error)
	SetRequestState(ctx context.Context, id int64, from, to forms.State) error
	CreateHandover(ctx context.Context, h *forms.Handover) error
	GetHandover(ctx context.Context, id int64) (*forms.Handover, error)
	SignHandover(ctx context.Context, id int64, signature []byte) error
	CreateDamageReport(ctx context.Context, d *forms.DamageReport) error
	GetDamageReport(ctx context.Context, id int64) (*forms.DamageReport, error)
	SetDamageReportState(ctx context.Context, id int64, from, to forms.State) error
}

type Assets interface {
	Get(ctx context.Context, id int64) (*assets.Asset, error)
	Update(ctx context.Context, ids []int64, ch assets.Changes) ([]assets.Asset, error)
}

type People interface {
	GetEmployee(ctx context.Context, id int64) (*directory.Employee, error)
}

type Categories interface {
	GetCategory(ctx context.Context, id int64) (*catalog.Category, error)
}

type Deps struct {
	Tx         stockmove.TxRunner
	Store      Store
	Sequences  stockmove.Sequencer
	Assets     Assets
	People     People
	Categories Categories
	Notifier   notify.Notifier
	Suffix     string // часть номера акта о повреждении: 0007/III/<suffix>/2024
	Log        *slog.Logger
}

type Service struct {
	d   Deps
	now func() time.Time
}

func New(d Deps) *Service { return &Service{d: d, now: time.Now} }

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

/* Заявки */

func (s *Service) CreateRequest(ctx context.Context, q forms.Request) (*forms.Request, error) {
	if err := s.employee(ctx, q.EmployeeID); err != nil {
		return nil, err
	}
	cat, err := s.d.Categories.GetCategory(ctx, q.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperr.Validation("category_not_found", "category %d not found", q.CategoryID)
	}
	if q.RequestDate.IsZero() {
		q.RequestDate = s.today()
	}
	q.Reason = strings.TrimSpace(q.Reason)

	err = s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if q.Name, err = s.d.Sequences.Next(ctx, sequences.CodeRequest); err != nil {
			return err
		}
		return s.d.Store.CreateRequest(ctx, &q)
	})
	if err != nil {
		return nil, err
	}
	s.d.Log.Info("asset request created", "request", q.Name, "employee_id", q.EmployeeID)
	return &q, nil
}

// MoveRequest переводит заявку: submitted, approved, rejected, fulfilled.
func (s *Service) MoveRequest(ctx context.Context, id int64, to forms.State) (*forms.Request, error) {
	q, err := s.d.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NotFound("request_not_found", "request %d not found", id)
	}
	if err := s.transition(forms.RequestFlow, q.State, to, func() error {
		return s.d.Store.SetRequestState(ctx, id, q.State, to)
	}); err != nil {
		return nil, err
	}
	s.d.Log.Info("asset request moved", "request", q.Name, "from", q.State, "to", to)
	q.State = to
	return q, nil
}

/* Акты передачи */

func (s *Service) CreateHandover(ctx context.Context, h forms.Handover) (*forms.Handover, error) {
	if _, err := s.d.Assets.Get(ctx, h.AssetID); err != nil {
		return nil, err
	}
	if err := s.employee(ctx, h.SenderID); err != nil {
		return nil, err
	}
	if err := s.employee(ctx, h.ReceiverID); err != nil {
		return nil, err
	}
	if h.HandoverDate.IsZero() {
		h.HandoverDate = s.today()
	}
	h.Signature = nil

	err := s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if h.Name, err = s.d.Sequences.Next(ctx, sequences.CodeHandover); err != nil {
			return err
		}
		return s.d.Store.CreateHandover(ctx, &h)
	})
	if err != nil {
		return nil, err
	}
	s.d.Log.Info("handover created", "handover", h.Name, "asset_id", h.AssetID)
	return &h, nil
}

// Sign подписывает акт получателем. Подпись — изображение, хранится как есть.
func (s *Service) Sign(ctx context.Context, id int64, signature []byte) (*forms.Handover, error) {
	if len(signature) == 0 {
		return nil, apperr.Validation("signature_required", "receiver signature is required")
	}
	h, err := s.d.Store.GetHandover(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("handover_not_found", "handover %d not found", id)
	}
	if err := s.transition(forms.HandoverFlow, h.State, forms.StateSigned, func() error {
		return s.d.Store.SignHandover(ctx, id, signature)
	}); err != nil {
		return nil, err
	}
	h.State, h.Signature = forms.StateSigned, signature
	s.d.Log.Info("handover signed", "handover", h.Name)
	return h, nil
}

/* Акты о повреждении */

func (s *Service) CreateDamageReport(ctx context.Context, d forms.DamageReport) (*forms.DamageReport, error) {
	d.Description = strings.TrimSpace(d.Description)
	if !d.DamageType.Valid() {
		return nil, apperr.Validation("bad_damage_type", "unknown damage type %q", d.DamageType)
	}
	if d.Description == "" {
		return nil, apperr.Validation("description_required", "damage description is required")
	}
	if _, err := s.d.Assets.Get(ctx, d.AssetID); err != nil {
		return nil, err
	}
	if err := s.employee(ctx, d.EmployeeID); err != nil {
		return nil, err
	}
	if d.ReportDate.IsZero() {
		d.ReportDate = s.today()
	}

	err := s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		seq, err := s.d.Sequences.Next(ctx, sequences.CodeDamageReport)
		if err != nil {
			return err
		}
		d.Name = forms.DamageReportName(seq, d.ReportDate, s.d.Suffix)
		return s.d.Store.CreateDamageReport(ctx, &d)
	})
	if err != nil {
		return nil, err
	}
	s.d.Log.Info("damage report created", "report", d.Name, "asset_id", d.AssetID)
	return &d, nil
}

// ConfirmDamage подтверждает акт: актив помечается сломанным (и уходит в ремонт),
// в админ-чат уходит уведомление.
func (s *Service) ConfirmDamage(ctx context.Context, id int64) (*forms.DamageReport, error) {
	var (
		d     *forms.DamageReport
		asset assets.Asset
	)
	err := s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if d, err = s.damageReport(ctx, id); err != nil {
			return err
		}
		if err := s.transition(forms.DamageFlow, d.State, forms.StateConfirmed, func() error {
			return s.d.Store.SetDamageReportState(ctx, id, d.State, forms.StateConfirmed)
		}); err != nil {
			return err
		}
		updated, err := s.d.Assets.Update(ctx, []int64{d.AssetID}, assets.Changes{Condition: assets.Set(assets.ConditionBroken)})
		if err != nil {
			return err
		}
		asset = updated[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.State = forms.StateConfirmed
	s.d.Log.Info("damage report confirmed", "report", d.Name, "asset_id", d.AssetID, "asset_state", asset.State)

	text := fmt.Sprintf("⚠️ Акт о повреждении %s\nАктив: %s\nТип: %s\n%s", d.Name, asset.Name, d.DamageType, d.Description)
	if err := s.d.Notifier.Notify(ctx, text); err != nil {
		s.d.Log.Error("damage notification failed", "report", d.Name, "err", err)
	}
	return d, nil
}

func (s *Service) ResolveDamage(ctx context.Context, id int64) (*forms.DamageReport, error) {
	d, err := s.damageReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(forms.DamageFlow, d.State, forms.StateResolved, func() error {
		return s.d.Store.SetDamageReportState(ctx, id, d.State, forms.StateResolved)
	}); err != nil {
		return nil, err
	}
	d.State = forms.StateResolved
	s.d.Log.Info("damage report resolved", "report", d.Name)
	return d, nil
}

func (s *Service) damageReport(ctx context.Context, id int64) (*forms.DamageReport, error) {
	d, err := s.d.Store.GetDamageReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("damage_report_not_found", "damage report %d not found", id)
	}
	return d, nil
}

// transition проверяет переход по схеме и выполняет запись. Гонка двух переходов
// ловится условием на текущее состояние в самой записи.
func (s *Service) transition(f forms.Flow, from, to forms.State, write func() error) error {
	if !f.Allows(from, to) {
		return apperr.Validation("bad_transition", "cannot move document from %s to %s", from, to)
	}
	if err := write(); err != nil {
		if errors.Is(err, forms.ErrBadTransition) {
			return apperr.Validation("bad_transition", "document is no longer %s", from).Wrap(err)
		}
		return err
	}
	return nil
}

func (s *Service) employee(ctx context.Context, id int64) error {
	e, err := s.d.People.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return apperr.Validation("employee_not_found", "employee %d not found", id)
	}
	return nil
}
