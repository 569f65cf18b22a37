package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/assets"
)

type AssetRepo struct{ s *Store }

func (r *AssetRepo) Get(_ context.Context, id int64) (*assets.Asset, error) {
	defer r.s.lock()()
	a, ok := r.s.st.assets[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AssetRepo) GetForUpdate(_ context.Context, ids []int64) ([]assets.Asset, error) {
	defer r.s.lock()()
	out := make([]assets.Asset, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.s.st.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// unique повторяет ограничения UNIQUE таблицы assets.
func (r *AssetRepo) unique(a *assets.Asset) error {
	for _, ex := range r.s.st.assets {
		if ex.ID == a.ID {
			continue
		}
		if a.Tag != nil && ex.Tag != nil && *a.Tag == *ex.Tag {
			return apperr.Validation("tag_taken", "tag %q is already used by another asset", *a.Tag)
		}
		if a.LotID != nil && ex.LotID != nil && *a.LotID == *ex.LotID {
			return apperr.Validation("serial_taken", "serial number is already linked to another asset")
		}
	}
	return nil
}

func (r *AssetRepo) Insert(_ context.Context, a *assets.Asset) error {
	defer r.s.lock()()
	if err := r.unique(a); err != nil {
		return err
	}
	a.ID = r.s.id()
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.st.assets[a.ID] = *a
	return nil
}

func (r *AssetRepo) Update(_ context.Context, a *assets.Asset) error {
	defer r.s.lock()()
	cur, ok := r.s.st.assets[a.ID]
	if !ok {
		return apperr.NotFound("asset_not_found", "asset %d not found", a.ID)
	}
	if err := r.unique(a); err != nil {
		return err
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = r.s.now()
	r.s.st.assets[a.ID] = *a
	return nil
}

func (r *AssetRepo) SetSynced(_ context.Context, id int64, synced bool) error {
	defer r.s.lock()()
	a, ok := r.s.st.assets[id]
	if !ok {
		return nil
	}
	a.Synced = synced
	r.s.st.assets[id] = a
	return nil
}

func (r *AssetRepo) FindByTag(_ context.Context, tag string) (*assets.Asset, error) {
	defer r.s.lock()()
	for _, a := range r.s.st.assets {
		if a.Tag != nil && *a.Tag == strings.TrimSpace(tag) {
			return ptrCopy(a), nil
		}
	}
	return nil, nil
}

func (r *AssetRepo) FindByLot(_ context.Context, lotID int64) (*assets.Asset, error) {
	defer r.s.lock()()
	for _, a := range r.s.st.assets {
		if a.LotID != nil && *a.LotID == lotID {
			return ptrCopy(a), nil
		}
	}
	return nil, nil
}

func day(t time.Time) string { return t.Format("2006-01-02") }

func match(a assets.Asset, f assets.Filter, withCategory bool) bool {
	if f.State != "" && a.State != f.State {
		return false
	}
	if withCategory && len(f.CategoryIDs) > 0 {
		found := false
		for _, id := range f.CategoryIDs {
			if a.CategoryID != nil && *a.CategoryID == id {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && day(a.CreatedAt) < day(*f.From) {
		return false
	}
	if f.To != nil && day(a.CreatedAt) > day(*f.To) {
		return false
	}
	return true
}

func (r *AssetRepo) filtered(f assets.Filter) []assets.Asset {
	var out []assets.Asset
	for _, a := range r.s.st.assets {
		if match(a, f, true) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *AssetRepo) List(_ context.Context, f assets.Filter) ([]assets.Asset, error) {
	defer r.s.lock()()
	out := r.filtered(f)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *AssetRepo) CountByState(_ context.Context, f assets.Filter) (map[assets.State]int, error) {
	defer r.s.lock()()
	out := map[assets.State]int{}
	for _, a := range r.filtered(f) {
		out[a.State]++
	}
	return out, nil
}

func (r *AssetRepo) CountByCondition(_ context.Context, f assets.Filter) (map[assets.Condition]int, error) {
	defer r.s.lock()()
	out := map[assets.Condition]int{}
	for _, a := range r.filtered(f) {
		out[a.Condition]++
	}
	return out, nil
}

func (r *AssetRepo) CountByCategory(_ context.Context, f assets.Filter) ([]assets.CategoryCount, error) {
	defer r.s.lock()()
	var out []assets.CategoryCount
	for _, c := range r.s.st.categories {
		if len(f.CategoryIDs) > 0 {
			keep := false
			for _, id := range f.CategoryIDs {
				keep = keep || id == c.ID
			}
			if !keep {
				continue
			}
		}
		cc := assets.CategoryCount{CategoryID: c.ID, Name: c.Name}
		for _, a := range r.s.st.assets {
			if a.CategoryID != nil && *a.CategoryID == c.ID && match(a, f, false) {
				cc.Count++
			}
		}
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
