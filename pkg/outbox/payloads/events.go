package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// OfferPlacedEvent is emitted when a bidder submits an offer.
type OfferPlacedEvent struct {
	OfferID   uuid.UUID       `json:"offerId"`
	ListingID uuid.UUID       `json:"listingId"`
	BidderID  uuid.UUID       `json:"bidderId"`
	SellerID  uuid.UUID       `json:"sellerId"`
	Amount    decimal.Decimal `json:"amount"`
}

// OfferDecidedEvent is emitted for each offer that reaches a terminal status.
type OfferDecidedEvent struct {
	OfferID        uuid.UUID         `json:"offerId"`
	ListingID      uuid.UUID         `json:"listingId"`
	BidderID       uuid.UUID         `json:"bidderId"`
	Status         enums.OfferStatus `json:"status"`
	ResolvedAmount decimal.Decimal   `json:"resolvedAmount"`
	Superseded     bool              `json:"superseded,omitempty"`
}

// OrderSettledEvent is emitted once per materialized order.
type OrderSettledEvent struct {
	OrderID     uuid.UUID       `json:"orderId"`
	PaymentID   uuid.UUID       `json:"paymentId"`
	SessionID   string          `json:"sessionId"`
	BuyerID     uuid.UUID       `json:"buyerId"`
	ListingIDs  []uuid.UUID     `json:"listingIds"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency"`
}

// ListingRemovedEvent is emitted after a listing and its dependents are purged.
type ListingRemovedEvent struct {
	ListingID              uuid.UUID `json:"listingId"`
	SellerID               uuid.UUID `json:"sellerId"`
	OffersDeleted          int64     `json:"offersDeleted"`
	CartEntriesUpdated     int64     `json:"cartEntriesUpdated"`
	NotificationsDeleted   int64     `json:"notificationsDeleted"`
	WishlistEntriesDeleted int64     `json:"wishlistEntriesDeleted"`
}

// NotificationRequestedEvent fans an in-app notification out to push/email.
type NotificationRequestedEvent struct {
	NotificationID uuid.UUID              `json:"notificationId"`
	UserID         uuid.UUID              `json:"userId"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	ListingID      *uuid.UUID             `json:"listingId,omitempty"`
	OfferID        *uuid.UUID             `json:"offerId,omitempty"`
	Amount         *decimal.Decimal       `json:"amount,omitempty"`
}
