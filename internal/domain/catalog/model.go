package catalog

import "time"

// Category — категория актива (ноутбуки, принтеры, картриджи...).
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Color        int       `json:"color"`
	IsConsumable bool      `json:"is_consumable"`
	CreatedAt    time.Time `json:"created_at"`
}

// UnitCategory — группа техники (самосвалы, экскаваторы).
type UnitCategory struct {
	ID     int64
	Name   string
	Code   string
	Active bool
}

// Unit — единица техники, на которую можно установить актив.
type Unit struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"` // EX-01, DT-05
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Description string    `json:"description"`
	CategoryID  *int64    `json:"category_id"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
