package forms

import (
	"context"
	"errors"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// setState двигает документ, только если он всё ещё в состоянии from.
func (r *Repo) setState(ctx context.Context, table string, id int64, from, to State) error {
	ct, err := r.db.Conn(ctx).Exec(ctx,
		`UPDATE `+table+` SET state = $3 WHERE id = $1 AND state = $2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBadTransition
	}
	return nil
}

/* Requests */

func (r *Repo) CreateRequest(ctx context.Context, q *Request) error {
	q.State = StateDraft
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO asset_requests (name, employee_id, category_id, request_date, reason, state)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, q.Name, q.EmployeeID, q.CategoryID, q.RequestDate, q.Reason, string(q.State)).Scan(&q.ID, &q.CreatedAt)
}

func (r *Repo) GetRequest(ctx context.Context, id int64) (*Request, error) {
	var q Request
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, employee_id, category_id, request_date, reason, state, created_at
		FROM asset_requests WHERE id = $1
	`, id).Scan(&q.ID, &q.Name, &q.EmployeeID, &q.CategoryID, &q.RequestDate, &q.Reason, &q.State, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repo) SetRequestState(ctx context.Context, id int64, from, to State) error {
	return r.setState(ctx, "asset_requests", id, from, to)
}

/* Handovers */

func (r *Repo) CreateHandover(ctx context.Context, h *Handover) error {
	h.State = StateDraft
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO asset_handovers (name, asset_id, sender_id, receiver_id, handover_date, notes, state)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, h.Name, h.AssetID, h.SenderID, h.ReceiverID, h.HandoverDate, h.Notes, string(h.State)).Scan(&h.ID)
}

func (r *Repo) GetHandover(ctx context.Context, id int64) (*Handover, error) {
	var h Handover
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, asset_id, sender_id, receiver_id, handover_date, notes, signature, state
		FROM asset_handovers WHERE id = $1
	`, id).Scan(&h.ID, &h.Name, &h.AssetID, &h.SenderID, &h.ReceiverID, &h.HandoverDate, &h.Notes, &h.Signature, &h.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// SignHandover сохраняет подпись получателя и закрывает акт.
func (r *Repo) SignHandover(ctx context.Context, id int64, signature []byte) error {
	ct, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE asset_handovers SET signature = $2, state = 'signed'
		WHERE id = $1 AND state = 'draft'
	`, id, signature)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBadTransition
	}
	return nil
}

/* Damage reports */

func (r *Repo) CreateDamageReport(ctx context.Context, d *DamageReport) error {
	d.State = StateDraft
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO damage_reports (name, asset_id, employee_id, report_date, damage_type, description, action_taken, state)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, d.Name, d.AssetID, d.EmployeeID, d.ReportDate, string(d.DamageType), d.Description, d.ActionTaken,
		string(d.State)).Scan(&d.ID)
}

func (r *Repo) GetDamageReport(ctx context.Context, id int64) (*DamageReport, error) {
	var d DamageReport
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, asset_id, employee_id, report_date, damage_type, description, action_taken, state
		FROM damage_reports WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.AssetID, &d.EmployeeID, &d.ReportDate, &d.DamageType, &d.Description,
		&d.ActionTaken, &d.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) SetDamageReportState(ctx context.Context, id int64, from, to State) error {
	return r.setState(ctx, "damage_reports", id, from, to)
}
