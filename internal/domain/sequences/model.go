package sequences

import (
	"errors"
	"fmt"
)

// Коды последовательностей документов.
const (
	CodeStockInternal = "stock.internal"
	CodeRequest       = "it_asset.request"
	CodeHandover      = "it_asset.handover"
	CodeDamageReport  = "it_asset.damage_report"
)

var ErrUnknownSequence = errors.New("sequences: unknown code")

type Sequence struct {
	Code       string
	Prefix     string
	Padding    int
	NextNumber int64
	Step       int
}

// Format собирает номер документа: префикс + номер с ведущими нулями.
func Format(prefix string, padding int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padding, n)
}
