package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Spok95/itasset/internal/domain/consumables"
	"github.com/Spok95/itasset/internal/domain/forms"
	"github.com/Spok95/itasset/internal/domain/history"
	"github.com/Spok95/itasset/internal/domain/maintenance"
	"github.com/Spok95/itasset/internal/domain/printers"
)

/* History */

type HistoryRepo struct{ s *Store }

func (r *HistoryRepo) Create(_ context.Context, rec *history.Record) error {
	defer r.s.lock()()
	if rec.State == "" {
		rec.State = history.StatusActive
	}
	rec.ID = r.s.id()
	r.s.st.history[rec.ID] = *rec
	return nil
}

func (r *HistoryRepo) Get(_ context.Context, k history.Kind, id int64) (*history.Record, error) {
	defer r.s.lock()()
	rec, ok := r.s.st.history[id]
	if !ok || rec.Kind != k {
		return nil, nil
	}
	return &rec, nil
}

func (r *HistoryRepo) Close(_ context.Context, k history.Kind, id int64, end time.Time) error {
	defer r.s.lock()()
	rec, ok := r.s.st.history[id]
	if !ok || rec.Kind != k || rec.State != history.StatusActive {
		return nil
	}
	rec.State = history.StatusReturned
	rec.EndDate = &end
	r.s.st.history[id] = rec
	return nil
}

func (r *HistoryRepo) List(_ context.Context, k history.Kind, assetID int64) ([]history.Record, error) {
	defer r.s.lock()()
	var out []history.Record
	for _, rec := range r.s.st.history {
		if rec.Kind == k && rec.AssetID == assetID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

/* Maintenance */

type MaintenanceRepo struct{ s *Store }

func (r *MaintenanceRepo) Create(_ context.Context, rec *maintenance.Record) error {
	defer r.s.lock()()
	rec.ID = r.s.id()
	r.s.st.maintenance[rec.ID] = *rec
	return nil
}

func (r *MaintenanceRepo) ListByAsset(_ context.Context, assetID int64) ([]maintenance.Record, error) {
	defer r.s.lock()()
	var out []maintenance.Record
	for _, m := range r.s.st.maintenance {
		if m.AssetID == assetID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

/* Printers */

type PrinterRepo struct{ s *Store }

func (r *PrinterRepo) Create(_ context.Context, rd *printers.Reading) error {
	defer r.s.lock()()
	rd.ID = r.s.id()
	rd.CreatedAt = r.s.now()
	r.s.st.readings[rd.ID] = *rd
	return nil
}

// desc: сначала новые (date desc, id desc).
func desc(out []printers.Reading) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
}

func (r *PrinterRepo) Previous(_ context.Context, assetID int64, date time.Time) (*printers.Reading, error) {
	defer r.s.lock()()
	var out []printers.Reading
	for _, rd := range r.s.st.readings {
		if rd.AssetID == assetID && !rd.Date.After(date) {
			out = append(out, rd)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	desc(out)
	return &out[0], nil
}

func (r *PrinterRepo) ListByAsset(_ context.Context, assetID int64) ([]printers.Reading, error) {
	defer r.s.lock()()
	var out []printers.Reading
	for _, rd := range r.s.st.readings {
		if rd.AssetID == assetID {
			out = append(out, rd)
		}
	}
	desc(out)
	return out, nil
}

func (r *PrinterRepo) ListUpTo(_ context.Context, categoryIDs []int64, to time.Time) ([]printers.Reading, error) {
	defer r.s.lock()()
	var out []printers.Reading
	for _, rd := range r.s.st.readings {
		if !to.IsZero() && rd.Date.After(to) {
			continue
		}
		if len(categoryIDs) > 0 {
			a := r.s.st.assets[rd.AssetID]
			keep := false
			for _, id := range categoryIDs {
				keep = keep || (a.CategoryID != nil && *a.CategoryID == id)
			}
			if !keep {
				continue
			}
		}
		out = append(out, rd)
	}
	desc(out)
	return out, nil
}

/* Forms */

type FormsRepo struct{ s *Store }

func (r *FormsRepo) CreateRequest(_ context.Context, q *forms.Request) error {
	defer r.s.lock()()
	q.ID = r.s.id()
	q.State = forms.StateDraft
	q.CreatedAt = r.s.now()
	r.s.st.requests[q.ID] = *q
	return nil
}

func (r *FormsRepo) GetRequest(_ context.Context, id int64) (*forms.Request, error) {
	defer r.s.lock()()
	q, ok := r.s.st.requests[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *FormsRepo) SetRequestState(_ context.Context, id int64, from, to forms.State) error {
	defer r.s.lock()()
	q, ok := r.s.st.requests[id]
	if !ok || q.State != from {
		return forms.ErrBadTransition
	}
	q.State = to
	r.s.st.requests[id] = q
	return nil
}

func (r *FormsRepo) CreateHandover(_ context.Context, h *forms.Handover) error {
	defer r.s.lock()()
	h.ID = r.s.id()
	h.State = forms.StateDraft
	r.s.st.handovers[h.ID] = *h
	return nil
}

func (r *FormsRepo) GetHandover(_ context.Context, id int64) (*forms.Handover, error) {
	defer r.s.lock()()
	h, ok := r.s.st.handovers[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *FormsRepo) SignHandover(_ context.Context, id int64, signature []byte) error {
	defer r.s.lock()()
	h, ok := r.s.st.handovers[id]
	if !ok || h.State != forms.StateDraft {
		return forms.ErrBadTransition
	}
	h.State = forms.StateSigned
	h.Signature = signature
	r.s.st.handovers[id] = h
	return nil
}

func (r *FormsRepo) CreateDamageReport(_ context.Context, d *forms.DamageReport) error {
	defer r.s.lock()()
	d.ID = r.s.id()
	d.State = forms.StateDraft
	r.s.st.damage[d.ID] = *d
	return nil
}

func (r *FormsRepo) GetDamageReport(_ context.Context, id int64) (*forms.DamageReport, error) {
	defer r.s.lock()()
	d, ok := r.s.st.damage[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *FormsRepo) SetDamageReportState(_ context.Context, id int64, from, to forms.State) error {
	defer r.s.lock()()
	d, ok := r.s.st.damage[id]
	if !ok || d.State != from {
		return forms.ErrBadTransition
	}
	d.State = to
	r.s.st.damage[id] = d
	return nil
}

/* Consumables */

type ConsumableRepo struct{ s *Store }

func (r *ConsumableRepo) Create(_ context.Context, it *consumables.Item) error {
	defer r.s.lock()()
	if it.MinQuantity <= 0 {
		it.MinQuantity = consumables.DefaultMinQuantity
	}
	it.ID = r.s.id()
	r.s.st.consumables[it.ID] = *it
	return nil
}

func (r *ConsumableRepo) Adjust(_ context.Context, id int64, delta int) error {
	defer r.s.lock()()
	it, ok := r.s.st.consumables[id]
	if !ok || it.Quantity+delta < 0 {
		return fmt.Errorf("consumable %d: %w", id, consumables.ErrNotEnough)
	}
	it.Quantity += delta
	r.s.st.consumables[id] = it
	return nil
}

func (r *ConsumableRepo) ListLow(_ context.Context) ([]consumables.Item, error) {
	defer r.s.lock()()
	var out []consumables.Item
	for _, it := range r.s.st.consumables {
		if it.Low() {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ConsumableRepo) Get(_ context.Context, id int64) (*consumables.Item, error) {
	defer r.s.lock()()
	it, ok := r.s.st.consumables[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *ConsumableRepo) List(_ context.Context) ([]consumables.Item, error) {
	defer r.s.lock()()
	out := make([]consumables.Item, 0, len(r.s.st.consumables))
	for _, it := range r.s.st.consumables {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
