package enums

import "slices"

// OutboxAggregateType mirrors the aggregate_type Postgres enum.
type OutboxAggregateType string

const (
	AggregateListing      OutboxAggregateType = "listing"
	AggregateOffer        OutboxAggregateType = "offer"
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNotification OutboxAggregateType = "notification"
)

var aggregateTypes = []OutboxAggregateType{AggregateListing, AggregateOffer, AggregateOrder, AggregateNotification}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", aggregateTypes, value)
}

// OutboxEventType mirrors the event_type Postgres enum. Adding a value here
// needs a migration and a registry descriptor.
type OutboxEventType string

const (
	EventOfferPlaced           OutboxEventType = "offer_placed"
	EventOfferAccepted         OutboxEventType = "offer_accepted"
	EventOfferRejected         OutboxEventType = "offer_rejected"
	EventOrderSettled          OutboxEventType = "order_settled"
	EventListingRemoved        OutboxEventType = "listing_removed"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var eventTypes = []OutboxEventType{
	EventOfferPlaced,
	EventOfferAccepted,
	EventOfferRejected,
	EventOrderSettled,
	EventListingRemoved,
	EventNotificationRequested,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", eventTypes, value)
}
