package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AcceptedOffer is the single accepted-offer slot carried by a listing.
type AcceptedOffer struct {
	OfferID        uuid.UUID       `json:"offer_id"`
	BidderID       uuid.UUID       `json:"bidder_id"`
	AcceptedAmount decimal.Decimal `json:"accepted_amount"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	AcceptedAt     time.Time       `json:"accepted_at"`
}

// Listing is the slice of the catalog record the engine reads and writes.
// OfferVersion is bumped every time an offer decision touches the listing.
type Listing struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID      uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index:listings_seller_id_idx" json:"seller_id"`
	Title         string          `gorm:"column:title;type:text;not null" json:"title"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Available     bool            `gorm:"column:available;not null" json:"available"`
	AcceptedOffer *AcceptedOffer  `gorm:"column:accepted_offer;type:jsonb;serializer:json" json:"accepted_offer,omitempty"`
	OfferVersion  int64           `gorm:"column:offer_version;not null;default:0" json:"-"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// PriceFor returns the price the given buyer pays for one unit and whether it
// comes from an accepted offer.
func (l *Listing) PriceFor(buyerID uuid.UUID) (decimal.Decimal, bool) {
	if l.AcceptedOffer != nil && l.AcceptedOffer.BidderID == buyerID {
		return l.AcceptedOffer.AcceptedAmount, true
	}
	return l.Price, false
}
