package settings

import (
	"context"
	"errors"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

// Ключи, под которыми лежат id служебных локаций.
const (
	KeyPoolLocation  = "it_asset.pool_location_id"
	KeyInUseLocation = "it_asset.in_use_location_id"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// Get возвращает значение ключа; ok=false, если ключа нет.
func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (key) DO UPDATE SET
		  value=$2, updated_at=now()
	`, key, value)
	return err
}
