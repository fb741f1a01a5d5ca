package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/payloads"
)

var testTopics = config.PubSubConfig{
	OrdersTopic:       "orders-topic",
	NotificationTopic: "notification-topic",
	ListingsTopic:     "listings-topic",
}

func mustRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(testTopics)
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, version int, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	orderID, listingID := uuid.New(), uuid.New()
	row := models.OutboxEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelope(t, 1, payloads.OrderSettledEvent{
			OrderID:     orderID,
			SessionID:   "cs_test_1",
			ListingIDs:  []uuid.UUID{listingID},
			TotalAmount: decimal.RequireFromString("86.40"),
			Currency:    "usd",
		}),
	}

	resolved, err := mustRegistry(t).Resolve(row)
	require.NoError(t, err)

	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	settled, ok := resolved.Payload.(*payloads.OrderSettledEvent)
	require.True(t, ok, "payload is %T", resolved.Payload)
	assert.Equal(t, []uuid.UUID{listingID}, settled.ListingIDs)
	assert.True(t, settled.TotalAmount.Equal(decimal.RequireFromString("86.40")))
}

func TestResolveRoutesEachEventToItsTopic(t *testing.T) {
	reg := mustRegistry(t)
	routes := map[enums.OutboxEventType]struct {
		aggregate enums.OutboxAggregateType
		topic     string
	}{
		enums.EventOfferPlaced:           {enums.AggregateOffer, "listings-topic"},
		enums.EventOfferAccepted:         {enums.AggregateOffer, "listings-topic"},
		enums.EventOfferRejected:         {enums.AggregateOffer, "listings-topic"},
		enums.EventListingRemoved:        {enums.AggregateListing, "listings-topic"},
		enums.EventOrderSettled:          {enums.AggregateOrder, "orders-topic"},
		enums.EventNotificationRequested: {enums.AggregateNotification, "notification-topic"},
	}
	for eventType, want := range routes {
		t.Run(string(eventType), func(t *testing.T) {
			resolved, err := reg.Resolve(models.OutboxEvent{
				EventType:     eventType,
				AggregateType: want.aggregate,
				AggregateID:   uuid.New(),
				Payload:       envelope(t, 1, []byte(`{}`)),
			})
			require.NoError(t, err)
			assert.Equal(t, want.topic, resolved.Descriptor.Topic)
		})
	}
}

func TestResolveRejectsMalformedRowsPermanently(t *testing.T) {
	reg := mustRegistry(t)
	settled := func() models.OutboxEvent {
		return models.OutboxEvent{
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelope(t, 1, []byte(`{"sessionId":"cs_test_1"}`)),
		}
	}

	cases := map[string]func(*models.OutboxEvent){
		"unknown type":       func(e *models.OutboxEvent) { e.EventType = "reservation_released" },
		"aggregate mismatch": func(e *models.OutboxEvent) { e.AggregateType = enums.AggregateListing },
		"missing aggregate":  func(e *models.OutboxEvent) { e.AggregateID = uuid.Nil },
		"broken envelope":    func(e *models.OutboxEvent) { e.Payload = json.RawMessage(`{"data":`) },
		"null payload":       func(e *models.OutboxEvent) { e.Payload = envelope(t, 1, []byte("null")) },
		"future version":     func(e *models.OutboxEvent) { e.Payload = envelope(t, 2, []byte(`{}`)) },
		"wrong payload type": func(e *models.OutboxEvent) { e.Payload = envelope(t, 1, []byte(`{"listingIds":"x"}`)) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := settled()
			mutate(&row)

			_, err := reg.Resolve(row)
			var permanentErr NonRetryableError
			assert.True(t, errors.As(err, &permanentErr), "got %v", err)
		})
	}
}

func TestTopicsAreDistinctAndSorted(t *testing.T) {
	assert.Equal(t, []string{"listings-topic", "notification-topic", "orders-topic"}, mustRegistry(t).Topics())
}

func TestNewEventRegistryNamesEveryMissingTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "notifications topic is required")
	assert.ErrorContains(t, err, "listings topic is required")
}
