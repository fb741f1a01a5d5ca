package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/checkout"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
)

// Totals returns the rounded cart total and the number of units.
func Totals(items []models.CartItem) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}
	return checkout.RoundMoney(total), count
}
