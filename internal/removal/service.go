package removal

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox/payloads"
)

const (
	stepOffers        = "offers"
	stepNotifications = "notifications"
	stepCarts         = "carts"
	stepWishlists     = "wishlists"
)

// RemoveListingInput identifies the listing to purge. ActorID, when set, must
// be the listing's seller.
type RemoveListingInput struct {
	ListingID uuid.UUID
	ActorID   uuid.UUID
}

// Result counts what the removal touched.
type Result struct {
	OffersDeleted          int64 `json:"offersDeleted"`
	CartEntriesUpdated     int64 `json:"cartEntriesUpdated"`
	NotificationsDeleted   int64 `json:"notificationsDeleted"`
	WishlistEntriesDeleted int64 `json:"wishlistEntriesDeleted"`
}

type listingPurger interface {
	DeleteByListing(ctx context.Context, listingID uuid.UUID) (int64, error)
}

type cartPurger interface {
	DeleteItemsByListing(ctx context.Context, listingID uuid.UUID) ([]uuid.UUID, error)
	RecalculateTotals(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service removes a listing together with everything that references it.
type Service interface {
	RemoveListing(ctx context.Context, input RemoveListingInput) (*Result, error)
}

// ServiceParams groups the coordinator's collaborators.
type ServiceParams struct {
	Tx            txRunner
	Listings      *listings.Repository
	Offers        listingPurger
	Notifications listingPurger
	Wishlists     listingPurger
	Carts         cartPurger
	Outbox        outbox.Emitter
	Metrics       *metrics.EngineMetrics
	Logger        *logger.Logger
}

type service struct {
	tx            txRunner
	listings      *listings.Repository
	offers        listingPurger
	notifications listingPurger
	wishlists     listingPurger
	carts         cartPurger
	outbox        outbox.Emitter
	metrics       *metrics.EngineMetrics
	logg          *logger.Logger
}

// NewService wires the cascading removal coordinator.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, errors.New("transaction runner required")
	case params.Listings == nil:
		return nil, errors.New("listings repository required")
	case params.Offers == nil, params.Notifications == nil, params.Wishlists == nil, params.Carts == nil:
		return nil, errors.New("dependent stores required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &service{
		tx:            params.Tx,
		listings:      params.Listings,
		offers:        params.Offers,
		notifications: params.Notifications,
		wishlists:     params.Wishlists,
		carts:         params.Carts,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

func (s *service) RemoveListing(ctx context.Context, input RemoveListingInput) (*Result, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	ctx = s.logg.WithListingID(ctx, input.ListingID.String())

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if input.ActorID != uuid.Nil && input.ActorID != listing.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can remove a listing")
	}

	result, failures := s.purgeDependents(ctx, listing.ID)
	if failures != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failed_steps", len(multierr.Errors(failures))), "listing removal skipped dependents: "+failures.Error())
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.listings.WithTx(tx).Delete(ctx, listing.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingRemoved,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: listing.SellerID, Role: "seller"},
			Data: payloads.ListingRemovedEvent{
				ListingID:              listing.ID,
				SellerID:               listing.SellerID,
				OffersDeleted:          result.OffersDeleted,
				CartEntriesUpdated:     result.CartEntriesUpdated,
				NotificationsDeleted:   result.NotificationsDeleted,
				WishlistEntriesDeleted: result.WishlistEntriesDeleted,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"offers_deleted":        result.OffersDeleted,
		"cart_entries_updated":  result.CartEntriesUpdated,
		"notifications_deleted": result.NotificationsDeleted,
		"wishlist_deleted":      result.WishlistEntriesDeleted,
	}), "listing removed")
	return result, nil
}

// purgeDependents runs each cleanup concurrently. A failing step is recorded
// and skipped; it never cancels its siblings.
func (s *service) purgeDependents(ctx context.Context, listingID uuid.UUID) (*Result, error) {
	var (
		result   Result
		mu       sync.Mutex
		failures error
	)
	record := func(step string, err error) {
		s.metrics.IncCascadeFailure(step)
		mu.Lock()
		failures = multierr.Append(failures, pkgerrors.Wrap(pkgerrors.CodeDependency, err, step))
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		n, err := s.offers.DeleteByListing(ctx, listingID)
		if err != nil {
			record(stepOffers, err)
			return nil
		}
		result.OffersDeleted = n
		return nil
	})
	g.Go(func() error {
		n, err := s.notifications.DeleteByListing(ctx, listingID)
		if err != nil {
			record(stepNotifications, err)
			return nil
		}
		result.NotificationsDeleted = n
		return nil
	})
	g.Go(func() error {
		n, err := s.wishlists.DeleteByListing(ctx, listingID)
		if err != nil {
			record(stepWishlists, err)
			return nil
		}
		result.WishlistEntriesDeleted = n
		return nil
	})
	g.Go(func() error {
		cartIDs, err := s.carts.DeleteItemsByListing(ctx, listingID)
		if err != nil {
			record(stepCarts, err)
			return nil
		}
		result.CartEntriesUpdated = int64(len(cartIDs))
		for _, cartID := range cartIDs {
			// the stored total is a cache; reads recompute it
			if _, err := s.carts.RecalculateTotals(ctx, cartID); err != nil {
				record(stepCarts, err)
			}
		}
		return nil
	})
	_ = g.Wait()

	return &result, failures
}
