package consumables

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const cols = `id, name, product_id, quantity, min_quantity, description`

func (r *Repo) Create(ctx context.Context, it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return fmt.Errorf("consumable name is empty")
	}
	if it.MinQuantity <= 0 {
		it.MinQuantity = DefaultMinQuantity
	}
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO consumables (name, product_id, quantity, min_quantity, description)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, it.Name, it.ProductID, it.Quantity, it.MinQuantity, it.Description).Scan(&it.ID)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Item, error) {
	var it Item
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM consumables WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.ProductID, &it.Quantity, &it.MinQuantity, &it.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Adjust меняет остаток на delta. Уйти в минус нельзя.
func (r *Repo) Adjust(ctx context.Context, id int64, delta int) error {
	ct, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE consumables SET quantity = quantity + $2
		WHERE id = $1 AND quantity + $2 >= 0
	`, id, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("consumable %d: %w", id, ErrNotEnough)
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]Item, error) {
	return r.list(ctx, `SELECT `+cols+` FROM consumables ORDER BY name`)
}

// ListLow — расходники, которых осталось меньше минимума.
func (r *Repo) ListLow(ctx context.Context) ([]Item, error) {
	return r.list(ctx, `SELECT `+cols+` FROM consumables WHERE quantity < min_quantity ORDER BY name`)
}

func (r *Repo) list(ctx context.Context, sql string) ([]Item, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.ProductID, &it.Quantity, &it.MinQuantity, &it.Description); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
