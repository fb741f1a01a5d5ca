package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is the priced snapshot of one listing inside a checkout session or
// order. UnitPrice is the price in force when the session was created.
type LineItem struct {
	ListingID       uuid.UUID       `json:"listing_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	IsAcceptedOffer bool            `json:"is_accepted_offer"`
}

// LineTotal is UnitPrice times Quantity, unrounded.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineItems is persisted as a jsonb array.
type LineItems []LineItem

// ListingIDs returns the distinct listing ids in order of first appearance.
func (items LineItems) ListingIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ListingID]; ok {
			continue
		}
		seen[item.ListingID] = struct{}{}
		ids = append(ids, item.ListingID)
	}
	return ids
}
