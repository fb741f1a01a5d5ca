package enums

import "slices"

// NotificationType mirrors the notification_type Postgres enum.
type NotificationType string

const (
	NotificationTypeOfferReceived NotificationType = "offer_received"
	NotificationTypeOfferAccepted NotificationType = "offer_accepted"
	NotificationTypeOfferRejected NotificationType = "offer_rejected"
	NotificationTypeOrderPaid     NotificationType = "order_paid"
)

var notificationTypes = []NotificationType{
	NotificationTypeOfferReceived,
	NotificationTypeOfferAccepted,
	NotificationTypeOfferRejected,
	NotificationTypeOrderPaid,
}

func (n NotificationType) IsValid() bool { return slices.Contains(notificationTypes, n) }

// IsOfferDecision reports whether the notification closes out a bidder's offer.
func (n NotificationType) IsOfferDecision() bool {
	return n == NotificationTypeOfferAccepted || n == NotificationTypeOfferRejected
}

func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", notificationTypes, value)
}
