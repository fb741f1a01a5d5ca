package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferStatusTerminal(t *testing.T) {
	assert.False(t, OfferStatusPending.IsTerminal())
	assert.True(t, OfferStatusAccepted.IsTerminal())
	assert.True(t, OfferStatusRejected.IsTerminal())
}

func TestParseOfferStatus(t *testing.T) {
	status, err := ParseOfferStatus("accepted")
	require.NoError(t, err)
	assert.Equal(t, OfferStatusAccepted, status)

	_, err = ParseOfferStatus("countered")
	require.Error(t, err)
}

func TestParseOutboxEventType(t *testing.T) {
	event, err := ParseOutboxEventType("order_settled")
	require.NoError(t, err)
	assert.Equal(t, EventOrderSettled, event)

	_, err = ParseOutboxEventType("order_created")
	require.Error(t, err)
}

func TestNotificationTypeDecisions(t *testing.T) {
	assert.True(t, NotificationTypeOfferAccepted.IsOfferDecision())
	assert.True(t, NotificationTypeOfferRejected.IsOfferDecision())
	assert.False(t, NotificationTypeOfferReceived.IsOfferDecision())
}

func TestParseNormalizesInput(t *testing.T) {
	status, err := ParseOfferStatus(" Rejected ")
	require.NoError(t, err)
	assert.Equal(t, OfferStatusRejected, status)

	kind, err := ParseNotificationType("ORDER_PAID")
	require.NoError(t, err)
	assert.Equal(t, NotificationTypeOrderPaid, kind)

	_, err = ParseOutboxAggregateType("cart")
	assert.EqualError(t, err, `invalid aggregate type "cart"`)
}

func TestEventTypesValidity(t *testing.T) {
	for _, e := range eventTypes {
		assert.True(t, e.IsValid(), e)
	}
	assert.False(t, OutboxEventType("offer_countered").IsValid())
	assert.False(t, OutboxAggregateType("").IsValid())
}
