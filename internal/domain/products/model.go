package products

import "time"

type Type string

const (
	TypeStorable   Type = "storable" // учитывается на складе поштучно
	TypeConsumable Type = "consumable"
	TypeService    Type = "service"
)

type UoM string

const (
	UoMPcs UoM = "pcs"
	UoMG   UoM = "g"
)

type Product struct {
	ID        int64
	Name      string
	Type      Type
	UoM       UoM
	Active    bool
	CreatedAt time.Time
}

// Trackable: только складируемый товар имеет остатки и перемещается.
func (p Product) Trackable() bool { return p.Type == TypeStorable }

// Lot — серийный номер конкретного экземпляра товара.
type Lot struct {
	ID        int64
	ProductID int64
	Name      string
	CreatedAt time.Time
}
