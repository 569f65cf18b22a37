package assets

import (
	"strings"

	"github.com/Spok95/itasset/internal/apperr"
)

// Derive дополняет запрошенные изменения полями, которые следуют из них автоматически:
// сломан => в ремонте, появился держатель => в работе, держатель снят => доступен.
// Функция чистая: ничего не пишет и ничего не перемещает.
func Derive(cur Asset, ch Changes) Changes {
	out := ch
	next := ch.Apply(cur)
	final := next.State

	// явный перевод в ремонт или списание главнее держателя
	explicit := ch.State.Present && ch.State.Value.Terminal()
	if !explicit {
		switch {
		case ch.HolderTouched() && cur.HasHolder() && !next.HasHolder():
			final = StateAvailable
		case ch.HolderTouched() && !cur.HasHolder() && next.HasHolder():
			final = StateInUse
		case final == StateAvailable || final == StateInUse:
			if next.HasHolder() {
				final = StateInUse
			} else {
				final = StateAvailable
			}
		}
	}
	if next.Condition == ConditionBroken {
		final = StateMaintenance
	}

	if final == StateInUse && !cur.HasHolder() && next.HasHolder() {
		out.Synced = Set(true)
	}
	if final != cur.State || ch.State.Present {
		out.State = Set(final)
	}
	return out
}

// GuardRetired пропускает изменение списанного актива только вместе с явным выводом из списания.
func GuardRetired(cur Asset, ch Changes) error {
	if cur.State != StateRetired {
		return nil
	}
	if ch.State.Present && ch.State.Value != StateRetired {
		return nil
	}
	return apperr.Policy("asset_retired", "asset %q is retired: change its state to edit it", cur.Name)
}

// Validate проверяет итоговую запись перед сохранением.
func Validate(a Asset) error {
	if strings.TrimSpace(a.Name) == "" {
		return apperr.Validation("name_required", "asset name is required")
	}
	if !a.IsConsumable && (a.Tag == nil || strings.TrimSpace(*a.Tag) == "") {
		return apperr.Validation("tag_required", "asset %q: tag is required for non-consumable assets", a.Name)
	}
	if a.EmployeeID != nil && a.UnitID != nil {
		return apperr.Validation("single_holder", "asset %q: it can be held by an employee or a unit, not both", a.Name)
	}
	if a.LotID != nil && a.ProductID == nil {
		return apperr.Validation("serial_without_product", "asset %q: serial number requires a product", a.Name)
	}
	if !a.State.Valid() {
		return apperr.Validation("bad_state", "unknown state %q", a.State)
	}
	if !a.Condition.Valid() {
		return apperr.Validation("bad_condition", "unknown condition %q", a.Condition)
	}
	if !a.Kind.Valid() {
		return apperr.Validation("bad_kind", "unknown kind %q", a.Kind)
	}
	return nil
}

// StockChanged: изменение затрагивает товар, серийник или состояние.
// Поле считается изменённым, только если оно передано и отличается от текущего.
func StockChanged(cur Asset, ch Changes) bool {
	return (ch.ProductID.Present && !samePtr(ch.ProductID.Value, cur.ProductID)) ||
		(ch.LotID.Present && !samePtr(ch.LotID.Value, cur.LotID)) ||
		(ch.State.Present && ch.State.Value != cur.State)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SameStock: у версий актива один и тот же товар и серийник.
func SameStock(a, b Asset) bool {
	return samePtr(a.ProductID, b.ProductID) && samePtr(a.LotID, b.LotID)
}

// NormalizeTag обрезает пробелы; пустой тег — это отсутствие тега.
func NormalizeTag(tag *string) *string {
	if tag == nil {
		return nil
	}
	t := strings.TrimSpace(*tag)
	if t == "" {
		return nil
	}
	return &t
}

// SameHolder сравнивает держателей двух версий актива.
func SameHolder(a, b Asset) bool {
	return samePtr(a.EmployeeID, b.EmployeeID) && samePtr(a.UnitID, b.UnitID)
}
