// Package registry knows which topic each outbox event goes to and how to
// decode its payload before it leaves the process.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/payloads"
)

// maxEnvelopeVersion is the newest envelope layout this build can read.
const maxEnvelopeVersion = 1

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will never publish, no matter how often
// it is retried.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	for name, topic := range map[string]string{
		"orders":        cfg.OrdersTopic,
		"notifications": cfg.NotificationTopic,
		"listings":      cfg.ListingsTopic,
	} {
		if topic == "" {
			missing = append(missing, fmt.Errorf("%s topic is required", name))
		}
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	descriptors := []EventDescriptor{
		describe[payloads.OfferPlacedEvent](enums.EventOfferPlaced, enums.AggregateOffer, cfg.ListingsTopic),
		describe[payloads.OfferDecidedEvent](enums.EventOfferAccepted, enums.AggregateOffer, cfg.ListingsTopic),
		describe[payloads.OfferDecidedEvent](enums.EventOfferRejected, enums.AggregateOffer, cfg.ListingsTopic),
		describe[payloads.ListingRemovedEvent](enums.EventListingRemoved, enums.AggregateListing, cfg.ListingsTopic),
		describe[payloads.OrderSettledEvent](enums.EventOrderSettled, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.NotificationRequestedEvent](enums.EventNotificationRequested, enums.AggregateNotification, cfg.NotificationTopic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics lists every topic an event can be routed to, sorted.
func (r *EventRegistry) Topics() []string {
	out := make([]string, 0, len(r.entries))
	for _, d := range r.entries {
		if !slices.Contains(out, d.Topic) {
			out = append(out, d.Topic)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure here is permanent: the row is malformed, not the network.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanent("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if envelope.Version > maxEnvelopeVersion {
		return nil, permanent("envelope version %d not supported", envelope.Version)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
