package maintenance

import (
	"context"

	"github.com/Spok95/itasset/internal/infra/db"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Create(ctx context.Context, rec *Record) error {
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO asset_maintenance (asset_id, date, type, description, cost, technician)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, rec.AssetID, rec.Date, string(rec.Type), rec.Description, rec.Cost, rec.Technician).Scan(&rec.ID)
}

func (r *Repo) ListByAsset(ctx context.Context, assetID int64) ([]Record, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, asset_id, date, type, description, cost, technician
		FROM asset_maintenance
		WHERE asset_id = $1
		ORDER BY date DESC, id DESC
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var m Record
		if err := rows.Scan(&m.ID, &m.AssetID, &m.Date, &m.Type, &m.Description, &m.Cost, &m.Technician); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
