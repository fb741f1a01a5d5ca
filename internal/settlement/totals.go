package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/checkout"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
)

// ledgerTotals prices a pending payment from its own line items. The amount
// the gateway reports is informational only.
func ledgerTotals(pending *models.PendingPayment, taxRate decimal.Decimal) checkout.Totals {
	return checkout.ComputeTotals(pending.LineItems, taxRate)
}

func amountsDiffer(ledger, reported decimal.Decimal) bool {
	return !checkout.RoundMoney(ledger).Equal(checkout.RoundMoney(reported))
}
