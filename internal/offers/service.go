package offers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	"github.com/angelmondragon/swapmeet-backend/internal/pricing"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/payloads"
)

// PlaceOfferInput is a bidder's proposal.
type PlaceOfferInput struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// SetOfferStatusInput is a seller's decision. Amount is optional; ActorID,
// when set, must be the listing's seller.
type SetOfferStatusInput struct {
	OfferID uuid.UUID
	Status  enums.OfferStatus
	Amount  *decimal.Decimal
	ActorID uuid.UUID
}

// TransitionResult reports the decided offer and the notifications it caused.
type TransitionResult struct {
	Offer          *models.Offer          `json:"offer"`
	ResolvedAmount decimal.Decimal        `json:"resolvedAmount"`
	Intents        []notifications.Intent `json:"-"`
}

// Service manages the offer lifecycle.
type Service interface {
	PlaceOffer(ctx context.Context, input PlaceOfferInput) (*models.Offer, error)
	SetOfferStatus(ctx context.Context, input SetOfferStatusInput) (*TransitionResult, error)
	GetOffersForListing(ctx context.Context, listingID uuid.UUID) ([]models.Offer, error)
	GetOffersForBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Offer, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the lifecycle manager's collaborators.
type ServiceParams struct {
	Tx            txRunner
	Offers        *Repository
	Listings      *listings.Repository
	Pricing       pricing.Propagator
	Notifications notifications.Sink
	Outbox        outbox.Emitter
	Metrics       *metrics.EngineMetrics
	Logger        *logger.Logger
}

type service struct {
	tx            txRunner
	offers        *Repository
	listings      *listings.Repository
	pricing       pricing.Propagator
	notifications notifications.Sink
	outbox        outbox.Emitter
	metrics       *metrics.EngineMetrics
	logg          *logger.Logger
}

// NewService wires the offer lifecycle manager.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, errors.New("transaction runner required")
	case params.Offers == nil:
		return nil, errors.New("offers repository required")
	case params.Listings == nil:
		return nil, errors.New("listings repository required")
	case params.Pricing == nil:
		return nil, errors.New("price propagator required")
	case params.Notifications == nil:
		return nil, errors.New("notification sink required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &service{
		tx:            params.Tx,
		offers:        params.Offers,
		listings:      params.Listings,
		pricing:       params.Pricing,
		notifications: params.Notifications,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

func (s *service) PlaceOffer(ctx context.Context, input PlaceOfferInput) (*models.Offer, error) {
	if input.ListingID == uuid.Nil || input.BidderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id and bidder id required")
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer amount must be greater than zero").
			WithDetails(map[string]any{"amount": input.Amount.String()})
	}

	listing, err := s.loadListing(ctx, s.listings, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == input.BidderID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot bid on their own listing")
	}
	if !listing.Available {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "listing is no longer available")
	}

	offer := &models.Offer{
		ID:        uuid.New(),
		ListingID: listing.ID,
		BidderID:  input.BidderID,
		SellerID:  listing.SellerID,
		Amount:    amount,
		Status:    enums.OfferStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.offers.WithTx(tx).Create(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
		}
		if _, err := s.notifications.Dispatch(ctx, tx, []notifications.Intent{offerReceivedIntent(*offer, listing.Title)}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify seller")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferPlaced,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offer.ID,
			Actor:         &outbox.ActorRef{UserID: input.BidderID, Role: "bidder"},
			Data: payloads.OfferPlacedEvent{
				OfferID:   offer.ID,
				ListingID: offer.ListingID,
				BidderID:  offer.BidderID,
				SellerID:  offer.SellerID,
				Amount:    offer.Amount,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "place offer")
	}

	logCtx := s.logg.WithOfferID(s.logg.WithListingID(ctx, offer.ListingID.String()), offer.ID.String())
	s.logg.Info(logCtx, "offer placed")
	s.metrics.IncOfferTransition(string(enums.OfferStatusPending))
	return offer, nil
}

func (s *service) SetOfferStatus(ctx context.Context, input SetOfferStatusInput) (*TransitionResult, error) {
	if input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}
	if input.Status != enums.OfferStatusAccepted && input.Status != enums.OfferStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be accepted or rejected").
			WithDetails(map[string]any{"status": string(input.Status)})
	}

	current, err := s.loadOffer(ctx, s.offers, input.OfferID)
	if err != nil {
		return nil, err
	}
	if input.ActorID != uuid.Nil && input.ActorID != current.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can decide on an offer")
	}
	if current.Status.IsTerminal() {
		return nil, invalidTransition(current)
	}

	var (
		decided   *models.Offer
		resolved  decimal.Decimal
		intents   []notifications.Intent
		displaced []models.Offer
		cleared   bool
	)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		offerRepo := s.offers.WithTx(tx)

		// serialization point for every decision on this listing
		listing, err := s.listings.WithTx(tx).LockForOfferDecision(ctx, current.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}

		offer, err := s.loadOffer(ctx, offerRepo, input.OfferID)
		if err != nil {
			return err
		}
		if offer.Status.IsTerminal() {
			return invalidTransition(offer)
		}

		switch input.Status {
		case enums.OfferStatusAccepted:
			if !listing.Available {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "listing is no longer available").
					WithDetails(map[string]any{"listingId": listing.ID.String()})
			}
			resolved = resolveAcceptedAmount(*offer, input.Amount)

			displaced, err = offerRepo.ListOpenForListing(ctx, listing.ID, offer.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load competing offers")
			}
			// previous winners must leave accepted before the new one enters
			for _, other := range displaced {
				if _, err := offerRepo.TransitionStatus(ctx, other.ID, []enums.OfferStatus{enums.OfferStatusPending, enums.OfferStatusAccepted}, enums.OfferStatusRejected); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject competing offer")
				}
			}
			if err := s.transition(ctx, offerRepo, offer, enums.OfferStatusAccepted); err != nil {
				return err
			}
			if _, err := s.pricing.WriteSlot(ctx, tx, pricing.ApplyInput{
				ListingID: listing.ID,
				BidderID:  offer.BidderID,
				OfferID:   offer.ID,
				Amount:    resolved,
			}); err != nil {
				return err
			}
			intents = acceptanceIntents(*offer, displaced, resolved, listing.Title)

		case enums.OfferStatusRejected:
			resolved = offer.Amount
			if err := s.transition(ctx, offerRepo, offer, enums.OfferStatusRejected); err != nil {
				return err
			}
			cleared, err = s.pricing.ClearAcceptedPrice(ctx, tx, listing.ID, &offer.ID)
			if err != nil {
				return err
			}
			intents = []notifications.Intent{rejectionIntent(*offer, listing.Title)}
		}

		if _, err := s.notifications.Dispatch(ctx, tx, intents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify bidders")
		}
		if err := s.emitDecisions(ctx, tx, *offer, resolved, displaced); err != nil {
			return err
		}
		decided = offer
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "set offer status")
	}

	s.afterDecision(ctx, decided, resolved, displaced, cleared)

	return &TransitionResult{
		Offer:          decided,
		ResolvedAmount: resolved,
		Intents:        intents,
	}, nil
}

// afterDecision runs the cart half of price propagation. Failures are logged;
// the cart read path re-derives prices from the listing slot.
func (s *service) afterDecision(ctx context.Context, offer *models.Offer, resolved decimal.Decimal, displaced []models.Offer, cleared bool) {
	logCtx := s.logg.WithOfferID(s.logg.WithListingID(ctx, offer.ListingID.String()), offer.ID.String())
	s.metrics.IncOfferTransition(string(offer.Status))

	if offer.Status == enums.OfferStatusAccepted {
		if _, err := s.pricing.SyncCart(ctx, offer.ListingID, offer.BidderID, resolved); err != nil {
			s.logg.Warn(logCtx, "accepted price not synced to cart: "+err.Error())
		}
		reverted := map[uuid.UUID]struct{}{offer.BidderID: {}}
		for _, other := range displaced {
			s.metrics.IncOfferTransition(string(enums.OfferStatusRejected))
			if other.Status != enums.OfferStatusAccepted {
				continue
			}
			if _, seen := reverted[other.BidderID]; seen {
				continue
			}
			reverted[other.BidderID] = struct{}{}
			if _, err := s.pricing.RevertCart(ctx, offer.ListingID, other.BidderID); err != nil {
				s.logg.Warn(logCtx, "superseded bidder cart not reverted: "+err.Error())
			}
		}
		s.logg.Info(s.logg.WithField(logCtx, "displaced_offers", len(displaced)), "offer accepted")
		return
	}

	if cleared {
		if _, err := s.pricing.RevertCart(ctx, offer.ListingID, offer.BidderID); err != nil {
			s.logg.Warn(logCtx, "rejected bidder cart not reverted: "+err.Error())
		}
	}
	s.logg.Info(logCtx, "offer rejected")
}

func (s *service) transition(ctx context.Context, repo *Repository, offer *models.Offer, to enums.OfferStatus) error {
	ok, err := repo.TransitionStatus(ctx, offer.ID, []enums.OfferStatus{enums.OfferStatusPending}, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update offer status")
	}
	if !ok {
		return invalidTransition(offer)
	}
	offer.Status = to
	return nil
}

func (s *service) emitDecisions(ctx context.Context, tx *gorm.DB, offer models.Offer, resolved decimal.Decimal, displaced []models.Offer) error {
	eventType := enums.EventOfferRejected
	if offer.Status == enums.OfferStatusAccepted {
		eventType = enums.EventOfferAccepted
	}
	actor := &outbox.ActorRef{UserID: offer.SellerID, Role: "seller"}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOffer,
		AggregateID:   offer.ID,
		Actor:         actor,
		Data: payloads.OfferDecidedEvent{
			OfferID:        offer.ID,
			ListingID:      offer.ListingID,
			BidderID:       offer.BidderID,
			Status:         offer.Status,
			ResolvedAmount: resolved,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit offer decision")
	}
	for _, other := range displaced {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferRejected,
			AggregateType: enums.AggregateOffer,
			AggregateID:   other.ID,
			Actor:         actor,
			Data: payloads.OfferDecidedEvent{
				OfferID:        other.ID,
				ListingID:      other.ListingID,
				BidderID:       other.BidderID,
				Status:         enums.OfferStatusRejected,
				ResolvedAmount: other.Amount,
				Superseded:     true,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit superseded offer")
		}
	}
	return nil
}

func (s *service) GetOffersForListing(ctx context.Context, listingID uuid.UUID) ([]models.Offer, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	rows, err := s.offers.ListByListing(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listing offers")
	}
	if rows == nil {
		rows = []models.Offer{}
	}
	return rows, nil
}

func (s *service) GetOffersForBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Offer, error) {
	if bidderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bidder id required")
	}
	rows, err := s.offers.ListByBidder(ctx, bidderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bidder offers")
	}
	if rows == nil {
		rows = []models.Offer{}
	}
	return rows, nil
}

func (s *service) loadListing(ctx context.Context, repo *listings.Repository, id uuid.UUID) (*models.Listing, error) {
	listing, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

func (s *service) loadOffer(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Offer, error) {
	offer, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return offer, nil
}

func invalidTransition(offer *models.Offer) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("offer is already %s", offer.Status)).
		WithDetails(map[string]any{"offer_id": offer.ID.String(), "status": string(offer.Status)})
}

// asTyped keeps typed errors from inside the transaction and wraps the rest.
func asTyped(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
