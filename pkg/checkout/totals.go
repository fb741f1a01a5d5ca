package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/types"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Totals is the priced breakdown of a set of line items.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals sums the line items and applies taxRate. Rounding happens to
// two places (half up) at the subtotal, tax and total steps only; individual
// line totals are never rounded.
func ComputeTotals(items types.LineItems, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = RoundMoney(subtotal)
	tax := RoundMoney(subtotal.Mul(taxRate))
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    RoundMoney(subtotal.Add(tax)),
	}
}

// RoundMoney rounds to cents, half away from zero (half up for amounts >= 0).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// ToMinorUnits converts a money amount to integer cents.
func ToMinorUnits(d decimal.Decimal) int64 {
	return RoundMoney(d).Mul(hundred).IntPart()
}

// FromMinorUnits converts integer cents back to a money amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -moneyPlaces)
}
