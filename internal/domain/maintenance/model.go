package maintenance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeRepair     Type = "repair"
	TypePreventive Type = "preventive"
	TypeUpgrade    Type = "upgrade"
	TypeOther      Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRepair, TypePreventive, TypeUpgrade, TypeOther:
		return true
	}
	return false
}

// Record — запись журнала обслуживания.
type Record struct {
	ID          int64           `json:"id"`
	AssetID     int64           `json:"asset_id"`
	Date        time.Time       `json:"date"`
	Type        Type            `json:"type"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	Technician  string          `json:"technician"`
}
