package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	ListingID *uuid.UUID             `gorm:"column:listing_id;type:uuid" json:"listing_id,omitempty"`
	OfferID   *uuid.UUID             `gorm:"column:offer_id;type:uuid" json:"offer_id,omitempty"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                 `gorm:"column:message;type:text;not null" json:"message"`
	Amount    *decimal.Decimal       `gorm:"column:amount;type:numeric(12,2)" json:"amount,omitempty"`
	ReadAt    *time.Time             `gorm:"column:read_at;type:timestamptz" json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
