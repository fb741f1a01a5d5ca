package notifications

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/payloads"
)

// Sink persists notification intents as part of a caller's transaction.
type Sink interface {
	Dispatch(ctx context.Context, tx *gorm.DB, intents []Intent) ([]models.Notification, error)
}

// Dispatcher writes one notification row per intent and queues a
// notification_requested event for push/email fan-out.
type Dispatcher struct {
	repo   Repository
	outbox outbox.Emitter
}

// NewDispatcher wires the notification sink.
func NewDispatcher(repo Repository, emitter outbox.Emitter) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &Dispatcher{repo: repo, outbox: emitter}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, tx *gorm.DB, intents []Intent) ([]models.Notification, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := d.repo.WithTx(tx)
	created := make([]models.Notification, 0, len(intents))
	for _, intent := range intents {
		if !intent.Type.IsValid() {
			return nil, fmt.Errorf("invalid notification type %q", intent.Type)
		}
		row := intent.toModel()
		if err := repo.Create(ctx, &row); err != nil {
			return nil, fmt.Errorf("insert notification: %w", err)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   row.ID,
			Data: payloads.NotificationRequestedEvent{
				NotificationID: row.ID,
				UserID:         row.UserID,
				Type:           row.Type,
				Title:          row.Title,
				Message:        row.Message,
				ListingID:      row.ListingID,
				OfferID:        row.OfferID,
				Amount:         row.Amount,
			},
		}
		if err := d.outbox.Emit(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("emit notification event: %w", err)
		}
		created = append(created, row)
	}
	return created, nil
}
