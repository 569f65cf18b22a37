package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const cols = `id, name, model, specification, tag, product_id, lot_id, category_id, kind, is_consumable,
	employee_id, unit_id, state, condition, synced, created_at, updated_at`

func scan(row pgx.Row, a *Asset) error {
	return row.Scan(&a.ID, &a.Name, &a.Model, &a.Specification, &a.Tag, &a.ProductID, &a.LotID,
		&a.CategoryID, &a.Kind, &a.IsConsumable, &a.EmployeeID, &a.UnitID, &a.State, &a.Condition,
		&a.Synced, &a.CreatedAt, &a.UpdatedAt)
}

// uniqueErr переводит нарушение UNIQUE в понятную пользователю ошибку.
func uniqueErr(err error, a *Asset) error {
	if !db.IsUniqueViolation(err) {
		return err
	}
	switch db.ConstraintName(err) {
	case "assets_tag_key":
		return apperr.Validation("tag_taken", "tag %q is already used by another asset", deref(a.Tag)).Wrap(err)
	case "assets_lot_id_key":
		return apperr.Validation("serial_taken", "serial number is already linked to another asset").Wrap(err)
	}
	return apperr.Validation("duplicate", "asset %q duplicates an existing record", a.Name).Wrap(err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *Repo) Get(ctx context.Context, id int64) (*Asset, error) {
	var a Asset
	err := scan(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM assets WHERE id = $1`, id), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetForUpdate читает активы и блокирует их строки до конца транзакции.
// Порядок результата совпадает с ids; отсутствующие пропускаются.
func (r *Repo) GetForUpdate(ctx context.Context, ids []int64) ([]Asset, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM assets WHERE id = ANY($1) ORDER BY id FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]Asset, len(ids))
	for rows.Next() {
		var a Asset
		if err := scan(rows, &a); err != nil {
			return nil, err
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Asset, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repo) Insert(ctx context.Context, a *Asset) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO assets (name, model, specification, tag, product_id, lot_id, category_id, kind,
			is_consumable, employee_id, unit_id, state, condition, synced)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at, updated_at
	`, a.Name, a.Model, a.Specification, a.Tag, a.ProductID, a.LotID, a.CategoryID, string(a.Kind),
		a.IsConsumable, a.EmployeeID, a.UnitID, string(a.State), string(a.Condition), a.Synced,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return uniqueErr(err, a)
	}
	return nil
}

// Update перезаписывает все изменяемые поля.
func (r *Repo) Update(ctx context.Context, a *Asset) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE assets
		SET name = $2, model = $3, specification = $4, tag = $5, product_id = $6, lot_id = $7,
		    category_id = $8, kind = $9, is_consumable = $10, employee_id = $11, unit_id = $12,
		    state = $13, condition = $14, synced = $15, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.Name, a.Model, a.Specification, a.Tag, a.ProductID, a.LotID, a.CategoryID,
		string(a.Kind), a.IsConsumable, a.EmployeeID, a.UnitID, string(a.State), string(a.Condition),
		a.Synced).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("asset_not_found", "asset %d not found", a.ID)
	}
	if err != nil {
		return uniqueErr(err, a)
	}
	return nil
}

// SetSynced пишет только флаг синхронизации, мимо правил обновления.
func (r *Repo) SetSynced(ctx context.Context, id int64, synced bool) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `UPDATE assets SET synced = $2 WHERE id = $1`, id, synced)
	return err
}

func (r *Repo) FindByTag(ctx context.Context, tag string) (*Asset, error) {
	var a Asset
	err := scan(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM assets WHERE tag = $1`, strings.TrimSpace(tag)), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindByLot(ctx context.Context, lotID int64) (*Asset, error) {
	var a Asset
	err := scan(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM assets WHERE lot_id = $1`, lotID), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// where собирает условие фильтра по таблице assets с псевдонимом a.
func where(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.State != "" {
		add("a.state = $%d", string(f.State))
	}
	if len(f.CategoryIDs) > 0 {
		add("a.category_id = ANY($%d)", f.CategoryIDs)
	}
	if f.From != nil {
		add("a.created_at::date >= $%d", *f.From)
	}
	if f.To != nil {
		add("a.created_at::date <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Asset, error) {
	w, args := where(f)
	sql := `SELECT ` + cols + ` FROM assets a` + w + ` ORDER BY a.id`
	if f.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		var a Asset
		if err := scan(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

/* Aggregates */

func (r *Repo) countBy(ctx context.Context, column string, f Filter) (map[string]int, error) {
	w, args := where(f)
	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT a.`+column+`, COUNT(*) FROM assets a`+w+` GROUP BY a.`+column, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (r *Repo) CountByState(ctx context.Context, f Filter) (map[State]int, error) {
	m, err := r.countBy(ctx, "state", f)
	if err != nil {
		return nil, err
	}
	out := make(map[State]int, len(m))
	for k, v := range m {
		out[State(k)] = v
	}
	return out, nil
}

func (r *Repo) CountByCondition(ctx context.Context, f Filter) (map[Condition]int, error) {
	m, err := r.countBy(ctx, "condition", f)
	if err != nil {
		return nil, err
	}
	out := make(map[Condition]int, len(m))
	for k, v := range m {
		out[Condition(k)] = v
	}
	return out, nil
}

// CountByCategory считает активы по категориям. Без фильтра по категориям
// в результат попадают и пустые категории.
func (r *Repo) CountByCategory(ctx context.Context, f Filter) ([]CategoryCount, error) {
	catFilter := f.CategoryIDs
	f.CategoryIDs = nil
	w, args := where(f)
	on := strings.TrimPrefix(w, " WHERE ")
	if on == "" {
		on = "TRUE"
	}

	sql := `
		SELECT c.id, c.name, COUNT(a.id)
		FROM asset_categories c
		LEFT JOIN assets a ON a.category_id = c.id AND ` + on
	if len(catFilter) > 0 {
		args = append(args, catFilter)
		sql += fmt.Sprintf(" WHERE c.id = ANY($%d)", len(args))
	}
	sql += " GROUP BY c.id, c.name ORDER BY COUNT(a.id) DESC, c.name"

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
