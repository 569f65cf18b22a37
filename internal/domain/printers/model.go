package printers

import (
	"errors"
	"sort"
	"time"
)

var ErrCounterDecreased = errors.New("printers: counter is less than the previous reading")

// Reading — показания счётчика принтера на дату.
type Reading struct {
	ID         int64     `json:"id"`
	AssetID    int64     `json:"asset_id"`
	Date       time.Time `json:"date"`
	ColorPages int       `json:"color_pages"`
	BWPages    int       `json:"bw_pages"`
	Remarks    string    `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r Reading) Total() int { return r.ColorPages + r.BWPages }

// Usage — показание с приростом относительно предыдущего.
type Usage struct {
	Reading
	PagesDiff int `json:"pages_diff"`
	BWDiff    int `json:"bw_diff"`
	ColorDiff int `json:"color_diff"`
}

// before: a раньше b в хронологии (дата, затем id).
func before(a, b Reading) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.ID < b.ID
}

// WithDiffs считает приросты. rs отсортированы по убыванию (date desc, id desc),
// предыдущим для каждого показания считается следующий элемент.
func WithDiffs(rs []Reading) []Usage {
	out := make([]Usage, len(rs))
	for i, r := range rs {
		out[i] = Usage{Reading: r}
		if i+1 < len(rs) {
			prev := rs[i+1]
			out[i].PagesDiff = r.Total() - prev.Total()
			out[i].BWDiff = r.BWPages - prev.BWPages
			out[i].ColorDiff = r.ColorPages - prev.ColorPages
		}
	}
	return out
}

// CheckMonotonic: общий счётчик не может уменьшиться относительно предыдущего показания.
func CheckMonotonic(prev *Reading, next Reading) error {
	if prev != nil && next.Total() < prev.Total() {
		return ErrCounterDecreased
	}
	return nil
}

// Delta — сколько страниц напечатано за окно [from, to] по всем принтерам.
// База — последнее показание не позже from, иначе самое раннее внутри окна.
// Нулевые from/to означают открытую границу.
func Delta(rs []Reading, from, to time.Time) int {
	byAsset := map[int64][]Reading{}
	for _, r := range rs {
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		byAsset[r.AssetID] = append(byAsset[r.AssetID], r)
	}

	total := 0
	for _, list := range byAsset {
		sort.Slice(list, func(i, j int) bool { return before(list[i], list[j]) })
		base, last := list[0], list[len(list)-1]
		if !from.IsZero() {
			for _, r := range list {
				if r.Date.After(from) {
					break
				}
				base = r
			}
		}
		if d := last.Total() - base.Total(); d > 0 {
			total += d
		}
	}
	return total
}
