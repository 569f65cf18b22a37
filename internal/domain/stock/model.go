package stock

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Usage string

const (
	UsageView     Usage = "view" // группирующая локация, остатков не хранит
	UsageInternal Usage = "internal"
)

// Location — узел дерева складских локаций. ParentPath вида "1/5/9/" включает сам узел.
type Location struct {
	ID         int64
	Name       string
	ParentID   *int64
	ParentPath string
	Usage      Usage
	Active     bool
	CreatedAt  time.Time
}

// Contains сообщает, лежит ли other в поддереве l (включая саму l).
func (l Location) Contains(other Location) bool {
	return l.ParentPath != "" && strings.HasPrefix(other.ParentPath, l.ParentPath)
}

// Quant — остаток товара (и серийника) в конкретной локации.
type Quant struct {
	ID         int64
	ProductID  int64
	LotID      *int64
	LocationID int64
	Quantity   decimal.Decimal
	Reserved   decimal.Decimal
}

// Free — свободный остаток: на руках минус зарезервированное.
func (q Quant) Free() decimal.Decimal { return q.Quantity.Sub(q.Reserved) }

const TypeInternal = "internal"

type TransferType struct {
	ID           int64
	Name         string
	Code         string
	SequenceCode string
}

type State string

const (
	StateDraft     State = "draft"
	StateConfirmed State = "confirmed" // подтверждено, но не зарезервировано
	StateAssigned  State = "assigned"  // товар зарезервирован
	StateDone      State = "done"
	StateCancel    State = "cancel"
)

// Transfer — заявка на перемещение одного товара между локациями.
type Transfer struct {
	ID              int64
	Name            string
	TypeID          int64
	SourceID        int64
	DestID          int64
	Origin          string
	State           State
	ProductID       int64
	LotID           *int64
	Quantity        decimal.Decimal
	ReservedQuantID *int64
	Picked          bool
	CreatedAt       time.Time
	DoneAt          *time.Time
}

type MoveType string

const (
	MoveIn  MoveType = "in"
	MoveOut MoveType = "out"
)

// Movement — строка журнала движений.
type Movement struct {
	ID         int64
	CreatedAt  time.Time
	TransferID *int64
	LocationID int64
	ProductID  int64
	LotID      *int64
	Qty        decimal.Decimal
	Type       MoveType
	Note       string
}

var (
	ErrInvalidState     = errors.New("stock: transfer is in a wrong state")
	ErrNotPicked        = errors.New("stock: transfer is not picked")
	ErrLotMismatch      = errors.New("stock: reserved quant belongs to another serial")
	ErrLocationNotFound = errors.New("stock: location not found")
	ErrQuantNotFound    = errors.New("stock: quant not found")
)
