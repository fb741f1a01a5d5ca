package enums

import "fmt"

// PendingPaymentStatus tracks a checkout session awaiting confirmation.
type PendingPaymentStatus string

const (
	PendingPaymentStatusPending   PendingPaymentStatus = "pending"
	PendingPaymentStatusCompleted PendingPaymentStatus = "completed"
)

// IsValid reports whether the value is a known PendingPaymentStatus.
func (p PendingPaymentStatus) IsValid() bool {
	return p == PendingPaymentStatusPending || p == PendingPaymentStatusCompleted
}

// PaymentStatus is the state of a materialized payment record.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	return p == PaymentStatusCompleted || p == PaymentStatusRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch PaymentStatus(value) {
	case PaymentStatusCompleted, PaymentStatusRefunded:
		return PaymentStatus(value), nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// OrderStatus is the state of a materialized order.
type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	switch o {
	case OrderStatusPaid, OrderStatusFulfilled, OrderStatusCanceled:
		return true
	}
	return false
}
