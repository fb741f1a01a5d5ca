package main

import "github.com/angelmondragon/swapmeet-backend/pkg/enums"

// terminal reasons recorded on events the publisher gives up on.
const (
	reasonNonRetryable = "non_retryable"
	reasonMaxAttempts  = "max_attempts"
)

// retryPolicy scales the configured attempt budget per event type. Settled
// orders drive fulfilment and payouts downstream, so they get the longest
// budget; notifications go stale quickly and get the shortest.
type retryPolicy struct {
	base int
}

func (p retryPolicy) budget(eventType enums.OutboxEventType) int {
	switch eventType {
	case enums.EventOrderSettled:
		return p.base * 3
	case enums.EventOfferAccepted, enums.EventListingRemoved:
		return p.base * 2
	case enums.EventNotificationRequested:
		if half := p.base / 2; half > 0 {
			return half
		}
		return 1
	default:
		return p.base
	}
}

// ceiling is the largest budget of any type. Rows are fetched while below it
// and parked at it once terminal.
func (p retryPolicy) ceiling() int {
	return p.base * 3
}

func (p retryPolicy) exhausted(eventType enums.OutboxEventType, attempts int) bool {
	return attempts >= p.budget(eventType)
}
