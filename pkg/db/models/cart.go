package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a buyer's persisted cart snapshot. Totals are a cache over Items;
// reads re-derive them from listing state.
type Cart struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID   uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:carts_buyer_id_key" json:"buyer_id"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null;default:0" json:"total"`
	ItemCount int             `gorm:"column:item_count;not null;default:0" json:"item_count"`
	Items     []CartItem      `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// CartItem snapshots the unit price of a listing for a cart.
type CartItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID          uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_listing_key" json:"cart_id"`
	ListingID       uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:cart_items_cart_listing_key;index:cart_items_listing_id_idx" json:"listing_id"`
	Quantity        int             `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	IsAcceptedOffer bool            `gorm:"column:is_accepted_offer;not null;default:false" json:"is_accepted_offer"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
