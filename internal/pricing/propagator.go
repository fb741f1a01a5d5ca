// Package pricing keeps a listing's accepted-offer slot and the winning
// bidder's cart snapshot in step.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

// ApplyInput identifies the accepted offer whose price should be propagated.
type ApplyInput struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	OfferID   uuid.UUID
	Amount    decimal.Decimal
}

// Propagator writes accepted prices to the listing slot and the bidder's cart.
type Propagator interface {
	ApplyAcceptedPrice(ctx context.Context, input ApplyInput) (*models.AcceptedOffer, error)
	WriteSlot(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.AcceptedOffer, error)
	SyncCart(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (bool, error)
	ClearAcceptedPrice(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, offerID *uuid.UUID) (bool, error)
	RevertCart(ctx context.Context, listingID, bidderID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx       txRunner
	listings *listings.Repository
	carts    cart.CartRepository
	logg     *logger.Logger
	now      func() time.Time
}

// NewPropagator wires the price propagator.
func NewPropagator(tx txRunner, listingRepo *listings.Repository, cartRepo cart.CartRepository, logg *logger.Logger) (Propagator, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if listingRepo == nil {
		return nil, errors.New("listing repository required")
	}
	if cartRepo == nil {
		return nil, errors.New("cart repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		tx:       tx,
		listings: listingRepo,
		carts:    cartRepo,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// ApplyAcceptedPrice writes the slot, then the cart. A failure between the
// two is repaired by the cart read path.
func (s *service) ApplyAcceptedPrice(ctx context.Context, input ApplyInput) (*models.AcceptedOffer, error) {
	var slot *models.AcceptedOffer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		slot, err = s.WriteSlot(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.SyncCart(ctx, input.ListingID, input.BidderID, slot.AcceptedAmount); err != nil {
		logCtx := s.logg.WithListingID(ctx, input.ListingID.String())
		s.logg.Warn(logCtx, "accepted price written to listing but cart sync failed: "+err.Error())
	}
	return slot, nil
}

// WriteSlot records the accepted offer on the listing using tx. Re-applying
// the same offer and amount keeps the original list price and only refreshes
// AcceptedAt.
func (s *service) WriteSlot(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.AcceptedOffer, error) {
	if input.ListingID == uuid.Nil || input.BidderID == uuid.Nil || input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing, bidder and offer ids required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "accepted amount must be positive")
	}

	repo := s.listings.WithTx(tx)
	listing, err := repo.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	original := listing.Price
	if prev := listing.AcceptedOffer; prev != nil && prev.OfferID == input.OfferID && !prev.OriginalPrice.IsZero() {
		original = prev.OriginalPrice
	}
	slot := &models.AcceptedOffer{
		OfferID:        input.OfferID,
		BidderID:       input.BidderID,
		AcceptedAmount: input.Amount,
		OriginalPrice:  original,
		AcceptedAt:     s.now(),
	}
	if err := repo.SetAcceptedOffer(ctx, listing.ID, slot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write accepted offer")
	}
	return slot, nil
}

// SyncCart sets the bidder's cart line for the listing to the accepted
// amount. Returns false when the bidder has no such line.
func (s *service) SyncCart(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (bool, error) {
	return s.setCartPrice(ctx, listingID, bidderID, amount, true)
}

// ClearAcceptedPrice empties the slot. When offerID is set, the slot is only
// cleared if it still references that offer. Cart snapshots are left alone.
func (s *service) ClearAcceptedPrice(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, offerID *uuid.UUID) (bool, error) {
	repo := s.listings.WithTx(tx)
	listing, err := repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.AcceptedOffer == nil {
		return false, nil
	}
	if offerID != nil && listing.AcceptedOffer.OfferID != *offerID {
		return false, nil
	}
	if err := repo.SetAcceptedOffer(ctx, listingID, nil); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear accepted offer")
	}
	return true, nil
}

// RevertCart resets a superseded bidder's accepted-offer line to list price.
func (s *service) RevertCart(ctx context.Context, listingID, bidderID uuid.UUID) (bool, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	price, accepted := listing.PriceFor(bidderID)
	return s.setCartPrice(ctx, listingID, bidderID, price, accepted)
}

func (s *service) setCartPrice(ctx context.Context, listingID, bidderID uuid.UUID, price decimal.Decimal, accepted bool) (bool, error) {
	c, err := s.carts.FindByBuyer(ctx, bidderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bidder cart")
	}

	var line *models.CartItem
	for i := range c.Items {
		if c.Items[i].ListingID == listingID {
			line = &c.Items[i]
			break
		}
	}
	if line == nil {
		return false, nil
	}
	if line.Price.Equal(price) && line.IsAcceptedOffer == accepted {
		return true, nil
	}

	if _, err := s.carts.UpdateItemPrice(ctx, c.ID, listingID, price, accepted); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("update cart line for listing %s", listingID))
	}
	if _, err := s.carts.RecalculateTotals(ctx, c.ID); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}
	return true, nil
}
