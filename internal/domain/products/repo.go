package products

import (
	"context"
	"errors"
	"strings"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

/* Products */

func (r *Repo) Create(ctx context.Context, name string, t Type, uom UoM) (*Product, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO products (name, type, uom, active)
		VALUES ($1,$2,$3,TRUE)
		RETURNING id, name, type, uom, active, created_at
	`, name, string(t), string(uom))

	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &p.UoM, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, type, uom, active, created_at
		FROM products WHERE id = $1
	`, id)
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &p.UoM, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// SearchByName ищет товары по части названия, без учёта регистра.
func (r *Repo) SearchByName(ctx context.Context, q string, onlyActive bool) ([]Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	sql := `
		SELECT id, name, type, uom, active, created_at
		FROM products
		WHERE LOWER(name) LIKE $1
	`
	if onlyActive {
		sql += " AND active = TRUE"
	}
	sql += " ORDER BY name"

	rows, err := r.db.Conn(ctx).Query(ctx, sql, "%"+strings.ToLower(q)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.UoM, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

/* Lots */

func (r *Repo) CreateLot(ctx context.Context, productID int64, name string) (*Lot, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO lots (product_id, name) VALUES ($1,$2)
		RETURNING id, product_id, name, created_at
	`, productID, strings.TrimSpace(name))
	var l Lot
	if err := row.Scan(&l.ID, &l.ProductID, &l.Name, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetLot(ctx context.Context, id int64) (*Lot, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, product_id, name, created_at FROM lots WHERE id = $1
	`, id)
	var l Lot
	if err := row.Scan(&l.ID, &l.ProductID, &l.Name, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// ListLots — серийники товара, для выбора в форме актива.
func (r *Repo) ListLots(ctx context.Context, productID int64) ([]Lot, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, product_id, name, created_at
		FROM lots WHERE product_id = $1
		ORDER BY name
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lot
	for rows.Next() {
		var l Lot
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
