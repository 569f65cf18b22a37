package assets

import (
	"encoding/json"
	"time"
)

type State string

const (
	StateAvailable   State = "available"
	StateInUse       State = "in_use"
	StateMaintenance State = "maintenance"
	StateRetired     State = "retired"
)

func (s State) Valid() bool {
	switch s {
	case StateAvailable, StateInUse, StateMaintenance, StateRetired:
		return true
	}
	return false
}

// Terminal: в этих состояниях актив не обязан лежать на складе.
func (s State) Terminal() bool { return s == StateRetired || s == StateMaintenance }

type Condition string

const (
	ConditionGood     Condition = "good"
	ConditionDegraded Condition = "degraded"
	ConditionBroken   Condition = "broken"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDegraded, ConditionBroken:
		return true
	}
	return false
}

type Kind string

const (
	KindIT          Kind = "it"
	KindOperational Kind = "operational"
)

func (k Kind) Valid() bool { return k == KindIT || k == KindOperational }

type Asset struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Model         string    `json:"model"`
	Specification string    `json:"specification"`
	Tag           *string   `json:"tag"`
	ProductID     *int64    `json:"product_id"`
	LotID         *int64    `json:"lot_id"` // серийник
	CategoryID    *int64    `json:"category_id"`
	Kind          Kind      `json:"kind"`
	IsConsumable  bool      `json:"is_consumable"` // копируется из категории при записи
	EmployeeID    *int64    `json:"employee_id"`
	UnitID        *int64    `json:"unit_id"`
	State         State     `json:"state"`
	Condition     Condition `json:"condition"`
	Synced        bool      `json:"synced"` // последняя смена держателя подтверждена перемещением на складе
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Blank — исходное состояние для создания.
func Blank() Asset {
	return Asset{Kind: KindIT, State: StateAvailable, Condition: ConditionGood}
}

func (a Asset) HasHolder() bool { return a.EmployeeID != nil || a.UnitID != nil }

// Patch — поле изменения. Present отличает "не передано" от "сброшено в null".
type Patch[T any] struct {
	Value   T
	Present bool
}

func Set[T any](v T) Patch[T] { return Patch[T]{Value: v, Present: true} }

func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	p.Present = true
	return json.Unmarshal(data, &p.Value)
}

func (p Patch[T]) MarshalJSON() ([]byte, error) { return json.Marshal(p.Value) }

// Changes — набор изменяемых полей. Используется и для создания, и для обновления.
type Changes struct {
	Name          Patch[string]    `json:"name"`
	Model         Patch[string]    `json:"model"`
	Specification Patch[string]    `json:"specification"`
	Tag           Patch[*string]   `json:"tag"`
	ProductID     Patch[*int64]    `json:"product_id"`
	LotID         Patch[*int64]    `json:"lot_id"`
	CategoryID    Patch[*int64]    `json:"category_id"`
	Kind          Patch[Kind]      `json:"kind"`
	EmployeeID    Patch[*int64]    `json:"employee_id"`
	UnitID        Patch[*int64]    `json:"unit_id"`
	State         Patch[State]     `json:"state"`
	Condition     Patch[Condition] `json:"condition"`
	Synced        Patch[bool]      `json:"-"`
}

// Apply возвращает копию a с применёнными полями.
func (c Changes) Apply(a Asset) Asset {
	apply(&a.Name, c.Name)
	apply(&a.Model, c.Model)
	apply(&a.Specification, c.Specification)
	apply(&a.Tag, c.Tag)
	apply(&a.ProductID, c.ProductID)
	apply(&a.LotID, c.LotID)
	apply(&a.CategoryID, c.CategoryID)
	apply(&a.Kind, c.Kind)
	apply(&a.EmployeeID, c.EmployeeID)
	apply(&a.UnitID, c.UnitID)
	apply(&a.State, c.State)
	apply(&a.Condition, c.Condition)
	apply(&a.Synced, c.Synced)
	return a
}

func apply[T any](dst *T, p Patch[T]) {
	if p.Present {
		*dst = p.Value
	}
}

// HolderTouched: в изменении есть хотя бы одно поле держателя.
func (c Changes) HolderTouched() bool { return c.EmployeeID.Present || c.UnitID.Present }

// Filter — фильтр списка и агрегатов.
type Filter struct {
	State       State
	CategoryIDs []int64
	From, To    *time.Time // по дате создания, включительно
	Limit       int
}

type CategoryCount struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}
