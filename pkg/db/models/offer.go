package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// Offer is a bidder's price proposal for a listing.
type Offer struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ListingID uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;index:offers_listing_id_idx" json:"listing_id"`
	BidderID  uuid.UUID         `gorm:"column:bidder_id;type:uuid;not null;index:offers_bidder_id_idx" json:"bidder_id"`
	SellerID  uuid.UUID         `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Amount    decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status    enums.OfferStatus `gorm:"column:status;type:offer_status;not null;default:'pending'" json:"status"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
