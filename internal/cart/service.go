package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/checkout"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/types"
)

const maxLineQuantity = 99

// View is the buyer-facing cart. Every price is derived from the listing's
// current state, not from the stored snapshot.
type View struct {
	BuyerID   uuid.UUID       `json:"buyer_id"`
	Items     []ViewItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// ViewItem is one derived cart line.
type ViewItem struct {
	ListingID       uuid.UUID       `json:"listing_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	ListPrice       decimal.Decimal `json:"list_price"`
	IsAcceptedOffer bool            `json:"is_accepted_offer"`
	Available       bool            `json:"available"`
}

// LineItems converts the view into checkout lines.
func (v *View) LineItems() types.LineItems {
	out := make(types.LineItems, 0, len(v.Items))
	for _, item := range v.Items {
		out = append(out, types.LineItem{
			ListingID:       item.ListingID,
			SellerID:        item.SellerID,
			Title:           item.Title,
			Quantity:        item.Quantity,
			UnitPrice:       item.Price,
			IsAcceptedOffer: item.IsAcceptedOffer,
		})
	}
	return out
}

// AddItemInput captures a request to put a listing in the cart.
type AddItemInput struct {
	BuyerID   uuid.UUID
	ListingID uuid.UUID
	Quantity  int
}

// Service exposes cart operations.
type Service interface {
	GetCart(ctx context.Context, buyerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, input AddItemInput) (*View, error)
	RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (*View, error)
	RemoveListings(ctx context.Context, buyerID uuid.UUID, listingIDs []uuid.UUID) error
}

type service struct {
	repo     CartRepository
	listings listingLoader
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, listings listingLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, listings: listings, logg: logg}, nil
}

func (s *service) GetCart(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyView(buyerID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.derive(ctx, cart)
}

// derive rebuilds the view from current listing state and writes back any
// stale snapshot. Write-back failures only cost a future re-derive.
func (s *service) derive(ctx context.Context, cart *models.Cart) (*View, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ListingID)
	}
	listingsByID, err := s.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart listings")
	}

	view := emptyView(cart.BuyerID)
	stale := false
	var vanished []uuid.UUID
	for _, item := range cart.Items {
		listing, ok := listingsByID[item.ListingID]
		if !ok {
			vanished = append(vanished, item.ListingID)
			continue
		}
		price, accepted := listing.PriceFor(cart.BuyerID)
		if !price.Equal(item.Price) || accepted != item.IsAcceptedOffer {
			stale = true
			if _, err := s.repo.UpdateItemPrice(ctx, cart.ID, item.ListingID, price, accepted); err != nil {
				s.logg.Warn(s.logg.WithListingID(ctx, item.ListingID.String()), "cart price write-back failed: "+err.Error())
			}
		}
		view.Items = append(view.Items, ViewItem{
			ListingID:       listing.ID,
			SellerID:        listing.SellerID,
			Title:           listing.Title,
			Quantity:        item.Quantity,
			Price:           price,
			ListPrice:       listing.Price,
			IsAcceptedOffer: accepted,
			Available:       listing.Available,
		})
	}

	total := decimal.Zero
	for _, item := range view.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		view.ItemCount += item.Quantity
	}
	view.Total = checkout.RoundMoney(total)

	if len(vanished) > 0 {
		stale = true
		if _, err := s.repo.DeleteItems(ctx, cart.ID, vanished); err != nil {
			s.logg.Warn(ctx, "dropping vanished cart lines failed: "+err.Error())
		}
	}
	if stale || !view.Total.Equal(cart.Total) || view.ItemCount != cart.ItemCount {
		if _, err := s.repo.RecalculateTotals(ctx, cart.ID); err != nil {
			s.logg.Warn(ctx, "cart totals write-back failed: "+err.Error())
		}
	}
	return view, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*View, error) {
	if input.BuyerID == uuid.Nil || input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and listing id required")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 || input.Quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").
			WithDetails(map[string]any{"min": 1, "max": maxLineQuantity})
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.SellerID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot add your own listing")
	}
	if !listing.Available {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "listing is no longer available")
	}

	cart, err := s.repo.GetOrCreate(ctx, input.BuyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	price, accepted := listing.PriceFor(input.BuyerID)
	item := &models.CartItem{
		CartID:          cart.ID,
		ListingID:       listing.ID,
		Quantity:        input.Quantity,
		Price:           price,
		IsAcceptedOffer: accepted,
	}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}
	return s.refresh(ctx, cart.ID, input.BuyerID)
}

func (s *service) RemoveItem(ctx context.Context, buyerID, listingID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil || listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and listing id required")
	}
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyView(buyerID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if _, err := s.repo.DeleteItems(ctx, cart.ID, []uuid.UUID{listingID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.refresh(ctx, cart.ID, buyerID)
}

// RemoveListings drops purchased listings from the buyer's cart.
func (s *service) RemoveListings(ctx context.Context, buyerID uuid.UUID, listingIDs []uuid.UUID) error {
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	removed, err := s.repo.DeleteItems(ctx, cart.ID, listingIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart items")
	}
	if removed == 0 {
		return nil
	}
	if _, err := s.repo.RecalculateTotals(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}
	return nil
}

func (s *service) refresh(ctx context.Context, cartID, buyerID uuid.UUID) (*View, error) {
	if _, err := s.repo.RecalculateTotals(ctx, cartID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}
	return s.GetCart(ctx, buyerID)
}

func emptyView(buyerID uuid.UUID) *View {
	return &View{BuyerID: buyerID, Items: []ViewItem{}, Total: decimal.Zero}
}
