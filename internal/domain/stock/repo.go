package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

/* Locations */

const locationCols = `id, name, parent_id, parent_path, usage, active, created_at`

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	if err := row.Scan(&l.ID, &l.Name, &l.ParentID, &l.ParentPath, &l.Usage, &l.Active, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetLocation(ctx context.Context, id int64) (*Location, error) {
	return scanLocation(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM stock_locations WHERE id = $1`, id))
}

// FindLocation ищет локацию по имени среди детей parentID (nil — среди корней).
func (r *Repo) FindLocation(ctx context.Context, parentID *int64, name string) (*Location, error) {
	return scanLocation(r.db.Conn(ctx).QueryRow(ctx, `
		SELECT `+locationCols+`
		FROM stock_locations
		WHERE parent_id IS NOT DISTINCT FROM $1 AND name = $2
	`, parentID, strings.TrimSpace(name)))
}

// CreateLocation идемпотентна: при гонке возвращает уже созданную запись.
func (r *Repo) CreateLocation(ctx context.Context, name string, parentID *int64, usage Usage) (*Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("location name is empty")
	}

	q := r.db.Conn(ctx)
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO stock_locations (name, parent_id, usage, active)
		VALUES ($1,$2,$3,TRUE)
		ON CONFLICT ON CONSTRAINT stock_locations_parent_name_key DO NOTHING
		RETURNING id
	`, name, parentID, string(usage)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.FindLocation(ctx, parentID, name)
	}
	if err != nil {
		return nil, err
	}

	if _, err := q.Exec(ctx, `
		UPDATE stock_locations c
		SET parent_path = COALESCE((SELECT p.parent_path FROM stock_locations p WHERE p.id = c.parent_id), '') || c.id || '/'
		WHERE c.id = $1
	`, id); err != nil {
		return nil, err
	}
	return r.GetLocation(ctx, id)
}

func (r *Repo) ListChildren(ctx context.Context, parentID int64) ([]Location, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT `+locationCols+`
		FROM stock_locations
		WHERE parent_id = $1
		ORDER BY name
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.ParentID, &l.ParentPath, &l.Usage, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

/* Transfer types */

func (r *Repo) GetTransferType(ctx context.Context, code string) (*TransferType, error) {
	var t TransferType
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, code, sequence_code FROM stock_transfer_types WHERE code = $1
	`, code).Scan(&t.ID, &t.Name, &t.Code, &t.SequenceCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

/* Quants */

const quantCols = `id, product_id, lot_id, location_id, quantity, reserved`

func scanQuant(row pgx.Row) (*Quant, error) {
	var q Quant
	if err := row.Scan(&q.ID, &q.ProductID, &q.LotID, &q.LocationID, &q.Quantity, &q.Reserved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (r *Repo) GetQuant(ctx context.Context, id int64) (*Quant, error) {
	return scanQuant(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+quantCols+` FROM stock_quants WHERE id = $1`, id))
}

// ListQuants — кванты товара (и серийника, если задан) в поддереве root.
func (r *Repo) ListQuants(ctx context.Context, productID int64, lotID *int64, root Location) ([]Quant, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT q.id, q.product_id, q.lot_id, q.location_id, q.quantity, q.reserved
		FROM stock_quants q
		JOIN stock_locations l ON l.id = q.location_id
		WHERE q.product_id = $1
		  AND ($2::bigint IS NULL OR q.lot_id = $2)
		  AND l.parent_path LIKE $3::text || '%'
		ORDER BY q.id
	`, productID, lotID, root.ParentPath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quant
	for rows.Next() {
		var q Quant
		if err := rows.Scan(&q.ID, &q.ProductID, &q.LotID, &q.LocationID, &q.Quantity, &q.Reserved); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ReserveQuant берёт первый квант с достаточным свободным остатком.
// Уже заблокированные строки пропускаются: конкурирующая транзакция их и так заберёт.
func (r *Repo) ReserveQuant(ctx context.Context, productID int64, lotID *int64, root Location, qty decimal.Decimal) (*Quant, error) {
	return scanQuant(r.db.Conn(ctx).QueryRow(ctx, `
		UPDATE stock_quants q
		SET reserved = q.reserved + $4
		WHERE q.id = (
			SELECT q2.id
			FROM stock_quants q2
			JOIN stock_locations l ON l.id = q2.location_id
			WHERE q2.product_id = $1
			  AND ($2::bigint IS NULL OR q2.lot_id = $2)
			  AND l.parent_path LIKE $3::text || '%'
			  AND q2.quantity - q2.reserved >= $4
			ORDER BY q2.id
			LIMIT 1
			FOR UPDATE OF q2 SKIP LOCKED
		)
		RETURNING q.id, q.product_id, q.lot_id, q.location_id, q.quantity, q.reserved
	`, productID, lotID, root.ParentPath, qty))
}

func (r *Repo) ReleaseQuant(ctx context.Context, quantID int64, qty decimal.Decimal) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE stock_quants SET reserved = GREATEST(reserved - $2, 0) WHERE id = $1
	`, quantID, qty)
	return err
}

func (r *Repo) TakeQuant(ctx context.Context, quantID int64, qty decimal.Decimal) error {
	ct, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE stock_quants
		SET quantity = quantity - $2,
		    reserved = GREATEST(reserved - $2, 0)
		WHERE id = $1 AND quantity >= $2
	`, quantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrQuantNotFound
	}
	return nil
}

func (r *Repo) AddQuant(ctx context.Context, productID int64, lotID *int64, locationID int64, qty decimal.Decimal) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO stock_quants (product_id, lot_id, location_id, quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT ON CONSTRAINT stock_quants_key
		DO UPDATE SET quantity = stock_quants.quantity + EXCLUDED.quantity
	`, productID, lotID, locationID, qty)
	return err
}

// Receive — оприходование на локацию с записью в журнал.
func (r *Repo) Receive(ctx context.Context, productID int64, lotID *int64, locationID int64, qty decimal.Decimal, note string) error {
	if !qty.IsPositive() {
		return fmt.Errorf("qty must be > 0")
	}
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.AddQuant(ctx, productID, lotID, locationID, qty); err != nil {
			return err
		}
		return r.LogMovement(ctx, Movement{
			LocationID: locationID, ProductID: productID, LotID: lotID,
			Qty: qty, Type: MoveIn, Note: note,
		})
	})
}

/* Transfers */

const transferCols = `id, name, type_id, source_id, dest_id, origin, state, product_id, lot_id,
	quantity, reserved_quant_id, picked, created_at, done_at`

func scanTransfer(row pgx.Row) (*Transfer, error) {
	var t Transfer
	if err := row.Scan(&t.ID, &t.Name, &t.TypeID, &t.SourceID, &t.DestID, &t.Origin, &t.State,
		&t.ProductID, &t.LotID, &t.Quantity, &t.ReservedQuantID, &t.Picked, &t.CreatedAt, &t.DoneAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// CreateTransfer сохраняет черновик и заполняет ID и CreatedAt.
func (r *Repo) CreateTransfer(ctx context.Context, t *Transfer) error {
	if t.State == "" {
		t.State = StateDraft
	}
	return r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO stock_transfers (name, type_id, source_id, dest_id, origin, state, product_id, lot_id, quantity, picked)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`, t.Name, t.TypeID, t.SourceID, t.DestID, t.Origin, string(t.State),
		t.ProductID, t.LotID, t.Quantity, t.Picked).Scan(&t.ID, &t.CreatedAt)
}

func (r *Repo) GetTransfer(ctx context.Context, id int64) (*Transfer, error) {
	return scanTransfer(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+transferCols+` FROM stock_transfers WHERE id = $1`, id))
}

func (r *Repo) UpdateTransfer(ctx context.Context, t *Transfer) error {
	ct, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE stock_transfers
		SET state = $2, lot_id = $3, reserved_quant_id = $4, picked = $5, done_at = $6
		WHERE id = $1
	`, t.ID, string(t.State), t.LotID, t.ReservedQuantID, t.Picked, t.DoneAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("transfer %d not found", t.ID)
	}
	return nil
}

func (r *Repo) DeleteTransfer(ctx context.Context, id int64) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM stock_transfers WHERE id = $1`, id)
	return err
}

// ListTransfers — последние заявки; origin фильтрует по метке-источнику (пусто — все).
func (r *Repo) ListTransfers(ctx context.Context, origin string, limit int) ([]Transfer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT `+transferCols+`
		FROM stock_transfers
		WHERE ($1 = '' OR origin = $1)
		ORDER BY id DESC
		LIMIT $2
	`, origin, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

/* Movements */

func (r *Repo) LogMovement(ctx context.Context, m Movement) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO stock_movements (transfer_id, location_id, product_id, lot_id, qty, type, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, m.TransferID, m.LocationID, m.ProductID, m.LotID, m.Qty, string(m.Type), m.Note)
	return err
}

func (r *Repo) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, created_at, transfer_id, location_id, product_id, lot_id, qty, type, note
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.TransferID, &m.LocationID, &m.ProductID,
			&m.LotID, &m.Qty, &m.Type, &m.Note); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
