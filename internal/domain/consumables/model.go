package consumables

import "errors"

const DefaultMinQuantity = 5

var ErrNotEnough = errors.New("consumables: not enough quantity")

// Item — расходник на складе ИТ (картриджи, кабели, мыши).
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ProductID   *int64 `json:"product_id"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"` // порог для напоминания о закупке
	Description string `json:"description"`
}

// Low: остаток ниже минимального.
func (i Item) Low() bool { return i.Quantity < i.MinQuantity }
