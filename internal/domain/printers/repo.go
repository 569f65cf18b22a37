package printers

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const cols = `id, asset_id, date, color_pages, bw_pages, remarks, created_at`

func (r *Repo) Create(ctx context.Context, rd *Reading) error {
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO printer_readings (asset_id, date, color_pages, bw_pages, remarks)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, rd.AssetID, rd.Date, rd.ColorPages, rd.BWPages, rd.Remarks).Scan(&rd.ID, &rd.CreatedAt)
}

// Previous — последнее показание принтера на дату date или раньше.
func (r *Repo) Previous(ctx context.Context, assetID int64, date time.Time) (*Reading, error) {
	var rd Reading
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT `+cols+`
		FROM printer_readings
		WHERE asset_id = $1 AND date <= $2
		ORDER BY date DESC, id DESC
		LIMIT 1
	`, assetID, date).Scan(&rd.ID, &rd.AssetID, &rd.Date, &rd.ColorPages, &rd.BWPages, &rd.Remarks, &rd.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *Repo) ListByAsset(ctx context.Context, assetID int64) ([]Reading, error) {
	return r.list(ctx, `
		SELECT `+cols+`
		FROM printer_readings
		WHERE asset_id = $1
		ORDER BY date DESC, id DESC
	`, assetID)
}

// ListUpTo — показания принтеров из категорий categoryIDs (пусто — всех) до даты to включительно.
func (r *Repo) ListUpTo(ctx context.Context, categoryIDs []int64, to time.Time) ([]Reading, error) {
	var upTo *time.Time
	if !to.IsZero() {
		upTo = &to
	}
	return r.list(ctx, `
		SELECT p.id, p.asset_id, p.date, p.color_pages, p.bw_pages, p.remarks, p.created_at
		FROM printer_readings p
		JOIN assets a ON a.id = p.asset_id
		WHERE (COALESCE(cardinality($1::bigint[]), 0) = 0 OR a.category_id = ANY($1))
		  AND ($2::date IS NULL OR p.date <= $2)
		ORDER BY p.asset_id, p.date, p.id
	`, categoryIDs, upTo)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Reading, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reading
	for rows.Next() {
		var rd Reading
		if err := rows.Scan(&rd.ID, &rd.AssetID, &rd.Date, &rd.ColorPages, &rd.BWPages, &rd.Remarks, &rd.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}
