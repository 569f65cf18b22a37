package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/shopspring/decimal"
)

type StockRepo struct {
	s *Store

	// BeforeReserve вызывается перед резервом — так тесты имитируют конкурента.
	BeforeReserve func()
}

func sameLot(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

/* Locations */

func (r *StockRepo) GetLocation(_ context.Context, id int64) (*stock.Location, error) {
	defer r.s.lock()()
	l, ok := r.s.st.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *StockRepo) findLocation(parentID *int64, name string) *stock.Location {
	for _, l := range r.s.st.locations {
		if sameLot(l.ParentID, parentID) && l.Name == name {
			return ptrCopy(l)
		}
	}
	return nil
}

func (r *StockRepo) FindLocation(_ context.Context, parentID *int64, name string) (*stock.Location, error) {
	defer r.s.lock()()
	return r.findLocation(parentID, strings.TrimSpace(name)), nil
}

func (r *StockRepo) CreateLocation(_ context.Context, name string, parentID *int64, usage stock.Usage) (*stock.Location, error) {
	defer r.s.lock()()
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("location name is empty")
	}
	if ex := r.findLocation(parentID, name); ex != nil {
		return ex, nil
	}
	l := stock.Location{ID: r.s.id(), Name: name, ParentID: parentID, Usage: usage, Active: true, CreatedAt: r.s.now()}
	prefix := ""
	if parentID != nil {
		prefix = r.s.st.locations[*parentID].ParentPath
	}
	l.ParentPath = prefix + strconv.FormatInt(l.ID, 10) + "/"
	r.s.st.locations[l.ID] = l
	return ptrCopy(l), nil
}

// DeleteLocation нужен тестам резолвера: имитирует удалённую вручную локацию.
func (r *StockRepo) DeleteLocation(id int64) {
	defer r.s.lock()()
	delete(r.s.st.locations, id)
}

// CountLocations — число локаций с данным именем.
func (r *StockRepo) CountLocations(name string) int {
	defer r.s.lock()()
	n := 0
	for _, l := range r.s.st.locations {
		if l.Name == name {
			n++
		}
	}
	return n
}

/* Transfer types */

func (r *StockRepo) GetTransferType(_ context.Context, code string) (*stock.TransferType, error) {
	defer r.s.lock()()
	t, ok := r.s.st.types[code]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *StockRepo) RemoveTransferType(code string) {
	defer r.s.lock()()
	delete(r.s.st.types, code)
}

/* Quants */

func (r *StockRepo) inTree(q stock.Quant, root stock.Location) bool {
	loc, ok := r.s.st.locations[q.LocationID]
	return ok && root.Contains(loc)
}

func (r *StockRepo) sortedQuants() []stock.Quant {
	out := make([]stock.Quant, 0, len(r.s.st.quants))
	for _, q := range r.s.st.quants {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *StockRepo) GetQuant(_ context.Context, id int64) (*stock.Quant, error) {
	defer r.s.lock()()
	q, ok := r.s.st.quants[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *StockRepo) ListQuants(_ context.Context, productID int64, lotID *int64, root stock.Location) ([]stock.Quant, error) {
	defer r.s.lock()()
	var out []stock.Quant
	for _, q := range r.sortedQuants() {
		if q.ProductID != productID || (lotID != nil && !sameLot(q.LotID, lotID)) || !r.inTree(q, root) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *StockRepo) ReserveQuant(_ context.Context, productID int64, lotID *int64, root stock.Location, qty decimal.Decimal) (*stock.Quant, error) {
	if r.BeforeReserve != nil {
		r.BeforeReserve()
	}
	defer r.s.lock()()
	for _, q := range r.sortedQuants() {
		if q.ProductID != productID || (lotID != nil && !sameLot(q.LotID, lotID)) || !r.inTree(q, root) {
			continue
		}
		if q.Free().LessThan(qty) {
			continue
		}
		q.Reserved = q.Reserved.Add(qty)
		r.s.st.quants[q.ID] = q
		return &q, nil
	}
	return nil, nil
}

func (r *StockRepo) ReleaseQuant(_ context.Context, quantID int64, qty decimal.Decimal) error {
	defer r.s.lock()()
	q, ok := r.s.st.quants[quantID]
	if !ok {
		return stock.ErrQuantNotFound
	}
	q.Reserved = decimal.Max(q.Reserved.Sub(qty), decimal.Zero)
	r.s.st.quants[quantID] = q
	return nil
}

func (r *StockRepo) TakeQuant(_ context.Context, quantID int64, qty decimal.Decimal) error {
	defer r.s.lock()()
	q, ok := r.s.st.quants[quantID]
	if !ok || q.Quantity.LessThan(qty) {
		return stock.ErrQuantNotFound
	}
	q.Quantity = q.Quantity.Sub(qty)
	q.Reserved = decimal.Max(q.Reserved.Sub(qty), decimal.Zero)
	r.s.st.quants[quantID] = q
	return nil
}

func (r *StockRepo) AddQuant(_ context.Context, productID int64, lotID *int64, locationID int64, qty decimal.Decimal) error {
	defer r.s.lock()()
	r.addQuant(productID, lotID, locationID, qty)
	return nil
}

func (r *StockRepo) addQuant(productID int64, lotID *int64, locationID int64, qty decimal.Decimal) {
	for id, q := range r.s.st.quants {
		if q.ProductID == productID && sameLot(q.LotID, lotID) && q.LocationID == locationID {
			q.Quantity = q.Quantity.Add(qty)
			r.s.st.quants[id] = q
			return
		}
	}
	q := stock.Quant{ID: r.s.id(), ProductID: productID, LotID: lotID, LocationID: locationID, Quantity: qty}
	r.s.st.quants[q.ID] = q
}

func (r *StockRepo) Receive(ctx context.Context, productID int64, lotID *int64, locationID int64, qty decimal.Decimal, note string) error {
	if err := r.AddQuant(ctx, productID, lotID, locationID, qty); err != nil {
		return err
	}
	return r.LogMovement(ctx, stock.Movement{
		LocationID: locationID, ProductID: productID, LotID: lotID, Qty: qty, Type: stock.MoveIn, Note: note,
	})
}

// OnHand — сумма остатков товара в поддереве root.
func (r *StockRepo) OnHand(root stock.Location, productID int64) decimal.Decimal {
	defer r.s.lock()()
	sum := decimal.Zero
	for _, q := range r.s.st.quants {
		if q.ProductID == productID && r.inTree(q, root) {
			sum = sum.Add(q.Quantity)
		}
	}
	return sum
}

/* Transfers */

func (r *StockRepo) CreateTransfer(_ context.Context, t *stock.Transfer) error {
	defer r.s.lock()()
	if t.State == "" {
		t.State = stock.StateDraft
	}
	t.ID = r.s.id()
	t.CreatedAt = r.s.now()
	r.s.st.transfers[t.ID] = *t
	return nil
}

func (r *StockRepo) GetTransfer(_ context.Context, id int64) (*stock.Transfer, error) {
	defer r.s.lock()()
	t, ok := r.s.st.transfers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *StockRepo) UpdateTransfer(_ context.Context, t *stock.Transfer) error {
	defer r.s.lock()()
	cur, ok := r.s.st.transfers[t.ID]
	if !ok {
		return fmt.Errorf("transfer %d not found", t.ID)
	}
	cur.State, cur.LotID, cur.ReservedQuantID, cur.Picked, cur.DoneAt = t.State, t.LotID, t.ReservedQuantID, t.Picked, t.DoneAt
	r.s.st.transfers[t.ID] = cur
	return nil
}

func (r *StockRepo) DeleteTransfer(_ context.Context, id int64) error {
	defer r.s.lock()()
	delete(r.s.st.transfers, id)
	return nil
}

func (r *StockRepo) ListTransfers(_ context.Context, origin string, limit int) ([]stock.Transfer, error) {
	defer r.s.lock()()
	var out []stock.Transfer
	for _, t := range r.s.st.transfers {
		if origin == "" || t.Origin == origin {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

/* Movements */

func (r *StockRepo) LogMovement(_ context.Context, m stock.Movement) error {
	defer r.s.lock()()
	m.ID = r.s.id()
	m.CreatedAt = r.s.now()
	r.s.st.movements = append(r.s.st.movements, m)
	return nil
}

func (r *StockRepo) ListMovements(_ context.Context, productID int64, limit int) ([]stock.Movement, error) {
	defer r.s.lock()()
	var out []stock.Movement
	for i := len(r.s.st.movements) - 1; i >= 0; i-- {
		if m := r.s.st.movements[i]; m.ProductID == productID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
