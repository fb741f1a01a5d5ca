package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/swapmeet-backend/pkg/types"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeTotals_NegotiatedPriceExample(t *testing.T) {
	items := types.LineItems{{ListingID: uuid.New(), Quantity: 1, UnitPrice: d("80.00")}}

	totals := ComputeTotals(items, d("0.08"))

	assert.True(t, totals.Subtotal.Equal(d("80.00")), totals.Subtotal.String())
	assert.True(t, totals.Tax.Equal(d("6.40")), totals.Tax.String())
	assert.True(t, totals.Total.Equal(d("86.40")), totals.Total.String())
}

func TestComputeTotals_RoundsAtSubtotalNotPerLine(t *testing.T) {
	// 3 x 0.335 = 1.005 rounds to 1.01; rounding each line first would give 1.02.
	items := types.LineItems{{ListingID: uuid.New(), Quantity: 3, UnitPrice: d("0.335")}}

	totals := ComputeTotals(items, decimal.Zero)

	assert.True(t, totals.Subtotal.Equal(d("1.01")), totals.Subtotal.String())
	assert.True(t, totals.Total.Equal(d("1.01")), totals.Total.String())
}

func TestComputeTotals_TaxHalfUp(t *testing.T) {
	items := types.LineItems{{ListingID: uuid.New(), Quantity: 1, UnitPrice: d("10.0625")}}
	totals := ComputeTotals(items, d("0.08"))
	assert.True(t, totals.Subtotal.Equal(d("10.06")), totals.Subtotal.String())
	assert.True(t, totals.Tax.Equal(d("0.80")), totals.Tax.String())

	// 0.10 * 0.05 = 0.005 exactly; half up gives 0.01 where banker's rounding would give 0.00.
	half := types.LineItems{{ListingID: uuid.New(), Quantity: 1, UnitPrice: d("0.10")}}
	totals = ComputeTotals(half, d("0.05"))
	assert.True(t, totals.Tax.Equal(d("0.01")), totals.Tax.String())
	assert.True(t, totals.Total.Equal(d("0.11")), totals.Total.String())
}

func TestRoundMoneyHalfUp(t *testing.T) {
	assert.True(t, RoundMoney(d("2.345")).Equal(d("2.35")))
	assert.True(t, RoundMoney(d("2.344")).Equal(d("2.34")))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(8640), ToMinorUnits(d("86.40")))
	assert.Equal(t, int64(101), ToMinorUnits(d("1.005")))
	assert.True(t, FromMinorUnits(8640).Equal(d("86.40")))
}
