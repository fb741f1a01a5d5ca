package offers

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// offerReceivedIntent tells the seller a new bid arrived.
func offerReceivedIntent(offer models.Offer, title string) notifications.Intent {
	listingID, offerID, amount := offer.ListingID, offer.ID, offer.Amount
	return notifications.Intent{
		UserID:    offer.SellerID,
		ListingID: &listingID,
		OfferID:   &offerID,
		Type:      enums.NotificationTypeOfferReceived,
		Title:     "New offer received",
		Message:   fmt.Sprintf("You received an offer of $%s for %q.", offer.Amount.StringFixed(2), title),
		Amount:    &amount,
	}
}

// acceptanceIntents returns the notifications produced by accepting winner at
// resolved: one rejection per displaced offer, then the acceptance.
func acceptanceIntents(winner models.Offer, displaced []models.Offer, resolved decimal.Decimal, title string) []notifications.Intent {
	intents := make([]notifications.Intent, 0, len(displaced)+1)
	for _, offer := range displaced {
		intents = append(intents, rejectionIntent(offer, title))
	}
	listingID, offerID := winner.ListingID, winner.ID
	amount := resolved
	intents = append(intents, notifications.Intent{
		UserID:    winner.BidderID,
		ListingID: &listingID,
		OfferID:   &offerID,
		Type:      enums.NotificationTypeOfferAccepted,
		Title:     "Offer accepted",
		Message:   fmt.Sprintf("Your offer for %q was accepted at $%s. It is waiting in your cart.", title, resolved.StringFixed(2)),
		Amount:    &amount,
	})
	return intents
}

// rejectionIntent tells a bidder their offer is closed.
func rejectionIntent(offer models.Offer, title string) notifications.Intent {
	listingID, offerID, amount := offer.ListingID, offer.ID, offer.Amount
	return notifications.Intent{
		UserID:    offer.BidderID,
		ListingID: &listingID,
		OfferID:   &offerID,
		Type:      enums.NotificationTypeOfferRejected,
		Title:     "Offer declined",
		Message:   fmt.Sprintf("Your offer of $%s for %q was declined.", offer.Amount.StringFixed(2), title),
		Amount:    &amount,
	}
}

// resolveAcceptedAmount prefers a suggested amount that is still positive in
// cents and otherwise falls back to what the bidder offered.
func resolveAcceptedAmount(offer models.Offer, suggested *decimal.Decimal) decimal.Decimal {
	if suggested == nil {
		return offer.Amount
	}
	if rounded := suggested.Round(2); rounded.IsPositive() {
		return rounded
	}
	return offer.Amount
}
