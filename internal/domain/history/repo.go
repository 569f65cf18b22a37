package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// table возвращает таблицу и колонку держателя для вида записи.
func table(k Kind) (string, string, error) {
	switch k {
	case KindAssignment:
		return "asset_assignments", "employee_id", nil
	case KindSwap:
		return "asset_swaps", "unit_id", nil
	}
	return "", "", fmt.Errorf("unknown history kind %q", k)
}

func (r *Repo) Create(ctx context.Context, rec *Record) error {
	tbl, holder, err := table(rec.Kind)
	if err != nil {
		return err
	}
	if rec.State == "" {
		rec.State = StatusActive
	}
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO `+tbl+` (asset_id, `+holder+`, start_date, notes, state)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, rec.AssetID, rec.HolderID, rec.StartDate, rec.Notes, string(rec.State)).Scan(&rec.ID)
}

func (r *Repo) Get(ctx context.Context, k Kind, id int64) (*Record, error) {
	tbl, holder, err := table(k)
	if err != nil {
		return nil, err
	}
	rec := Record{Kind: k}
	err = r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, asset_id, `+holder+`, start_date, end_date, notes, state
		FROM `+tbl+` WHERE id = $1
	`, id).Scan(&rec.ID, &rec.AssetID, &rec.HolderID, &rec.StartDate, &rec.EndDate, &rec.Notes, &rec.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close помечает запись возвращённой. Повторное закрытие ничего не меняет.
func (r *Repo) Close(ctx context.Context, k Kind, id int64, end time.Time) error {
	tbl, _, err := table(k)
	if err != nil {
		return err
	}
	_, err = r.db.Conn(ctx).Exec(ctx, `
		UPDATE `+tbl+` SET state = 'returned', end_date = $2
		WHERE id = $1 AND state = 'active'
	`, id, end)
	return err
}

func (r *Repo) List(ctx context.Context, k Kind, assetID int64) ([]Record, error) {
	tbl, holder, err := table(k)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, asset_id, `+holder+`, start_date, end_date, notes, state
		FROM `+tbl+` WHERE asset_id = $1
		ORDER BY start_date DESC, id DESC
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec := Record{Kind: k}
		if err := rows.Scan(&rec.ID, &rec.AssetID, &rec.HolderID, &rec.StartDate, &rec.EndDate, &rec.Notes, &rec.State); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
