package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

var ErrEmptyName = errors.New("catalog: name is required")

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

/* Categories */

const categoryCols = `id, name, description, color, is_consumable, created_at`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.IsConsumable, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CreateCategory создаёт категорию; если имя занято — возвращает существующую.
func (r *Repo) CreateCategory(ctx context.Context, c Category) (*Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, ErrEmptyName
	}
	created, err := scanCategory(r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO asset_categories (name, description, color, is_consumable)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (name) DO NOTHING
		RETURNING `+categoryCols, c.Name, c.Description, c.Color, c.IsConsumable))
	if err != nil {
		return nil, err
	}
	if created == nil {
		// Уже существует
		return r.GetCategoryByName(ctx, c.Name)
	}
	return created, nil
}

func (r *Repo) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	return scanCategory(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+categoryCols+` FROM asset_categories WHERE name = $1`, name))
}

// FindCategoryFold ищет категорию по имени без учёта регистра.
func (r *Repo) FindCategoryFold(ctx context.Context, name string) (*Category, error) {
	return scanCategory(r.db.Conn(ctx).QueryRow(ctx, `
		SELECT `+categoryCols+` FROM asset_categories
		WHERE LOWER(name) = LOWER($1)
		ORDER BY id LIMIT 1
	`, strings.TrimSpace(name)))
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (*Category, error) {
	return scanCategory(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+categoryCols+` FROM asset_categories WHERE id = $1`, id))
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+categoryCols+` FROM asset_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.IsConsumable, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) SetCategoryConsumable(ctx context.Context, id int64, consumable bool) (*Category, error) {
	return scanCategory(r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE asset_categories SET is_consumable=$2 WHERE id=$1
		RETURNING `+categoryCols, id, consumable))
}

/* Unit categories */

func (r *Repo) CreateUnitCategory(ctx context.Context, name, code string) (*UnitCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	row := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO unit_categories (name, code) VALUES ($1,$2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, code, active
	`, name, code)
	var c UnitCategory
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		row = r.db.Conn(ctx).QueryRow(ctx, `SELECT id, name, code, active FROM unit_categories WHERE name=$1`, name)
		err = row.Scan(&c.ID, &c.Name, &c.Code, &c.Active)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

/* Units */

const unitCols = `id, name, brand, model, description, category_id, active, created_at`

func scanUnit(row pgx.Row) (*Unit, error) {
	var u Unit
	if err := row.Scan(&u.ID, &u.Name, &u.Brand, &u.Model, &u.Description, &u.CategoryID, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CreateUnit(ctx context.Context, u Unit) (*Unit, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return nil, ErrEmptyName
	}
	return scanUnit(r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO units (name, brand, model, description, category_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+unitCols, u.Name, u.Brand, u.Model, u.Description, u.CategoryID))
}

func (r *Repo) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	return scanUnit(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+unitCols+` FROM units WHERE id=$1`, id))
}

func (r *Repo) ListUnits(ctx context.Context, onlyActive bool) ([]Unit, error) {
	q := `SELECT ` + unitCols + ` FROM units`
	if onlyActive {
		q += " WHERE active = TRUE"
	}
	q += " ORDER BY name"
	rows, err := r.db.Conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Brand, &u.Model, &u.Description, &u.CategoryID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) SetUnitActive(ctx context.Context, id int64, active bool) (*Unit, error) {
	return scanUnit(r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE units SET active=$2 WHERE id=$1
		RETURNING `+unitCols, id, active))
}
