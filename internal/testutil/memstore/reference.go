package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/directory"
	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/domain/sequences"
)

/* Settings */

type SettingsRepo struct{ s *Store }

func (r *SettingsRepo) Get(_ context.Context, key string) (string, bool, error) {
	defer r.s.lock()()
	v, ok := r.s.st.settings[key]
	return v, ok, nil
}

func (r *SettingsRepo) Set(_ context.Context, key, value string) error {
	defer r.s.lock()()
	r.s.st.settings[key] = value
	return nil
}

/* Sequences */

type SequenceRepo struct{ s *Store }

func (r *SequenceRepo) Next(_ context.Context, code string) (string, error) {
	defer r.s.lock()()
	sq, ok := r.s.st.sequences[code]
	if !ok {
		return "", sequences.ErrUnknownSequence
	}
	n := sq.NextNumber
	sq.NextNumber += int64(sq.Step)
	r.s.st.sequences[code] = sq
	return sequences.Format(sq.Prefix, sq.Padding, n), nil
}

/* Catalog */

type CatalogRepo struct{ s *Store }

func (r *CatalogRepo) CreateCategory(_ context.Context, c catalog.Category) (*catalog.Category, error) {
	defer r.s.lock()()
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, catalog.ErrEmptyName
	}
	for _, ex := range r.s.st.categories {
		if ex.Name == c.Name {
			return ptrCopy(ex), nil
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = r.s.now()
	r.s.st.categories[c.ID] = c
	return ptrCopy(c), nil
}

func (r *CatalogRepo) GetCategory(_ context.Context, id int64) (*catalog.Category, error) {
	defer r.s.lock()()
	c, ok := r.s.st.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CatalogRepo) FindCategoryFold(_ context.Context, name string) (*catalog.Category, error) {
	defer r.s.lock()()
	var out *catalog.Category
	for _, c := range r.s.st.categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) && (out == nil || c.ID < out.ID) {
			out = ptrCopy(c)
		}
	}
	return out, nil
}

func (r *CatalogRepo) ListCategories(_ context.Context) ([]catalog.Category, error) {
	defer r.s.lock()()
	var out []catalog.Category
	for _, c := range r.s.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepo) CreateUnit(_ context.Context, u catalog.Unit) (*catalog.Unit, error) {
	defer r.s.lock()()
	u.ID = r.s.id()
	u.Active = true
	u.CreatedAt = r.s.now()
	r.s.st.units[u.ID] = u
	return ptrCopy(u), nil
}

func (r *CatalogRepo) GetUnit(_ context.Context, id int64) (*catalog.Unit, error) {
	defer r.s.lock()()
	u, ok := r.s.st.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

/* Directory */

type DirectoryRepo struct{ s *Store }

func (r *DirectoryRepo) CreateEmployee(_ context.Context, name string, departmentID *int64) (*directory.Employee, error) {
	defer r.s.lock()()
	e := directory.Employee{ID: r.s.id(), Name: name, DepartmentID: departmentID, Active: true, CreatedAt: r.s.now()}
	r.s.st.employees[e.ID] = e
	return ptrCopy(e), nil
}

func (r *DirectoryRepo) GetEmployee(_ context.Context, id int64) (*directory.Employee, error) {
	defer r.s.lock()()
	e, ok := r.s.st.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

/* Products */

type ProductRepo struct{ s *Store }

func (r *ProductRepo) Create(_ context.Context, name string, t products.Type, uom products.UoM) (*products.Product, error) {
	defer r.s.lock()()
	p := products.Product{ID: r.s.id(), Name: name, Type: t, UoM: uom, Active: true, CreatedAt: r.s.now()}
	r.s.st.products[p.ID] = p
	return ptrCopy(p), nil
}

func (r *ProductRepo) GetProduct(_ context.Context, id int64) (*products.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) CreateLot(_ context.Context, productID int64, name string) (*products.Lot, error) {
	defer r.s.lock()()
	l := products.Lot{ID: r.s.id(), ProductID: productID, Name: name, CreatedAt: r.s.now()}
	r.s.st.lots[l.ID] = l
	return ptrCopy(l), nil
}

func (r *ProductRepo) GetLot(_ context.Context, id int64) (*products.Lot, error) {
	defer r.s.lock()()
	l, ok := r.s.st.lots[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}
