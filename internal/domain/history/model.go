package history

import "time"

// Kind — вид записи истории: выдача сотруднику или установка на технику.
type Kind string

const (
	KindAssignment Kind = "assignment"
	KindSwap       Kind = "swap"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

// Record — период, когда актив был у держателя. Записи только добавляются и закрываются.
type Record struct {
	ID        int64      `json:"id"`
	Kind      Kind       `json:"kind"`
	AssetID   int64      `json:"asset_id"`
	HolderID  int64      `json:"holder_id"` // сотрудник для assignment, техника для swap
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     string     `json:"notes"`
	State     Status     `json:"state"`
}
