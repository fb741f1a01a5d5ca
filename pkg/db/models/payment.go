package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	"github.com/angelmondragon/swapmeet-backend/pkg/types"
)

// PendingPayment records a checkout session that was handed to the gateway
// and is waiting for confirmation.
type PendingPayment struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID string                     `gorm:"column:session_id;type:text;not null;uniqueIndex:pending_payments_session_id_key" json:"session_id"`
	BuyerID   uuid.UUID                  `gorm:"column:buyer_id;type:uuid;not null" json:"buyer_id"`
	Amount    decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency  string                     `gorm:"column:currency;type:text;not null" json:"currency"`
	LineItems types.LineItems            `gorm:"column:line_items;type:jsonb;serializer:json;not null" json:"line_items"`
	Status    enums.PendingPaymentStatus `gorm:"column:status;type:pending_payment_status;not null;default:'pending'" json:"status"`
	OrderID   *uuid.UUID                 `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Order is the durable record of a settled checkout session.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index:orders_buyer_id_idx" json:"buyer_id"`
	SessionID   string            `gorm:"column:session_id;type:text;not null;uniqueIndex:orders_session_id_key" json:"session_id"`
	LineItems   types.LineItems   `gorm:"column:line_items;type:jsonb;serializer:json;not null" json:"line_items"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	Tax         decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null" json:"tax"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Currency    string            `gorm:"column:currency;type:text;not null" json:"currency"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'paid'" json:"status"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// Payment is the completed charge backing exactly one order.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:payments_order_id_key" json:"order_id"`
	SessionID string              `gorm:"column:session_id;type:text;not null" json:"session_id"`
	Status    enums.PaymentStatus `gorm:"column:status;type:payment_status;not null" json:"status"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency  string              `gorm:"column:currency;type:text;not null" json:"currency"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
