package notifications

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// Intent describes a notification that should be delivered to one user.
// Domain services build intents; the Dispatcher turns them into rows.
type Intent struct {
	UserID    uuid.UUID
	ListingID *uuid.UUID
	OfferID   *uuid.UUID
	Type      enums.NotificationType
	Title     string
	Message   string
	Amount    *decimal.Decimal
}

func (i Intent) toModel() models.Notification {
	return models.Notification{
		ID:        uuid.New(),
		UserID:    i.UserID,
		ListingID: i.ListingID,
		OfferID:   i.OfferID,
		Type:      i.Type,
		Title:     i.Title,
		Message:   i.Message,
		Amount:    i.Amount,
	}
}
