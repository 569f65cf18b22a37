package directory

import (
	"context"
	"errors"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, department_id, active, created_at
		FROM employees WHERE id = $1
	`, id)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.DepartmentID, &e.Active, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repo) CreateEmployee(ctx context.Context, name string, departmentID *int64) (*Employee, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO employees (name, department_id) VALUES ($1,$2)
		RETURNING id, name, department_id, active, created_at
	`, name, departmentID)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.DepartmentID, &e.Active, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) ListEmployees(ctx context.Context, departmentID *int64) ([]Employee, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, name, department_id, active, created_at
		FROM employees
		WHERE $1::bigint IS NULL OR department_id = $1
		ORDER BY name
	`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.DepartmentID, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) CreateDepartment(ctx context.Context, d Department) (*Department, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO departments (name, code, manager_id, note) VALUES ($1,$2,$3,$4)
		RETURNING id, name, code, manager_id, note, created_at
	`, d.Name, d.Code, d.ManagerID, d.Note)
	var out Department
	if err := row.Scan(&out.ID, &out.Name, &out.Code, &out.ManagerID, &out.Note, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, name, code, manager_id, note, created_at
		FROM departments ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.ManagerID, &d.Note, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
