package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/dbtest"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

type cartFixture struct {
	svc      Service
	repo     *Repository
	listings *listings.Repository
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	listingRepo := listings.NewRepository(conn)
	svc, err := NewService(repo, listingRepo, logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard}))
	require.NoError(t, err)
	return cartFixture{svc: svc, repo: repo, listings: listingRepo}
}

func (f cartFixture) listing(t *testing.T, price string) *models.Listing {
	t.Helper()
	listing := &models.Listing{SellerID: uuid.New(), Title: "Record Player", Price: decimal.RequireFromString(price), Available: true}
	require.NoError(t, f.listings.Create(context.Background(), listing))
	return listing
}

func TestAddItemUsesListPrice(t *testing.T) {
	f := newCartFixture(t)
	buyer := uuid.New()
	listing := f.listing(t, "25.50")

	view, err := f.svc.AddItem(context.Background(), AddItemInput{BuyerID: buyer, ListingID: listing.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].Price.Equal(decimal.RequireFromString("25.50")))
	assert.False(t, view.Items[0].IsAcceptedOffer)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("51.00")))
	assert.Equal(t, 2, view.ItemCount)

	stored, err := f.repo.FindByBuyer(context.Background(), buyer)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("51.00")))
	assert.Equal(t, 2, stored.ItemCount)
}

func TestAddItemTwiceKeepsOneLine(t *testing.T) {
	f := newCartFixture(t)
	buyer := uuid.New()
	listing := f.listing(t, "10.00")

	_, err := f.svc.AddItem(context.Background(), AddItemInput{BuyerID: buyer, ListingID: listing.ID})
	require.NoError(t, err)
	view, err := f.svc.AddItem(context.Background(), AddItemInput{BuyerID: buyer, ListingID: listing.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
}

func TestGetCartSelfHealsFromAcceptedSlot(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := f.listing(t, "50.00")

	_, err := f.svc.AddItem(ctx, AddItemInput{BuyerID: buyer, ListingID: listing.ID})
	require.NoError(t, err)

	// slot written without touching the cart, as after a crash between the two writes
	require.NoError(t, f.listings.SetAcceptedOffer(ctx, listing.ID, &models.AcceptedOffer{
		OfferID:        uuid.New(),
		BidderID:       buyer,
		AcceptedAmount: decimal.RequireFromString("40.00"),
		OriginalPrice:  listing.Price,
		AcceptedAt:     time.Now().UTC(),
	}))

	view, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].Price.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, view.Items[0].IsAcceptedOffer)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("40.00")))

	stored, err := f.repo.FindByBuyer(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, stored.Items[0].IsAcceptedOffer)
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("40.00")))

	// slot cleared: next read falls back to list price
	require.NoError(t, f.listings.SetAcceptedOffer(ctx, listing.ID, nil))
	view, err = f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, view.Items[0].Price.Equal(decimal.RequireFromString("50.00")))
	assert.False(t, view.Items[0].IsAcceptedOffer)
}

func TestGetCartIgnoresOtherBiddersSlot(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	listing := f.listing(t, "50.00")
	require.NoError(t, f.listings.SetAcceptedOffer(ctx, listing.ID, &models.AcceptedOffer{
		OfferID:        uuid.New(),
		BidderID:       uuid.New(),
		AcceptedAmount: decimal.RequireFromString("30.00"),
	}))

	view, err := f.svc.AddItem(ctx, AddItemInput{BuyerID: buyer, ListingID: listing.ID})
	require.NoError(t, err)
	assert.True(t, view.Items[0].Price.Equal(decimal.RequireFromString("50.00")))
	assert.False(t, view.Items[0].IsAcceptedOffer)
}

func TestGetCartDropsVanishedListings(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	kept := f.listing(t, "5.00")
	gone := f.listing(t, "7.00")

	_, err := f.svc.AddItem(ctx, AddItemInput{BuyerID: buyer, ListingID: kept.ID})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, AddItemInput{BuyerID: buyer, ListingID: gone.ID})
	require.NoError(t, err)

	_, err = f.listings.Delete(ctx, gone.ID)
	require.NoError(t, err)

	view, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, kept.ID, view.Items[0].ListingID)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("5.00")))

	stored, err := f.repo.FindByBuyer(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestAddItemErrors(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	listing := f.listing(t, "10.00")

	_, err := f.svc.AddItem(ctx, AddItemInput{BuyerID: uuid.New(), ListingID: uuid.New()})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddItem(ctx, AddItemInput{BuyerID: listing.SellerID, ListingID: listing.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.AddItem(ctx, AddItemInput{BuyerID: uuid.New(), ListingID: listing.ID, Quantity: -1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.listings.MarkSold(ctx, []uuid.UUID{listing.ID})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, AddItemInput{BuyerID: uuid.New(), ListingID: listing.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState))
}

func TestRemoveItemAndRemoveListings(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	first := f.listing(t, "10.00")
	second := f.listing(t, "20.00")
	third := f.listing(t, "30.00")

	for _, l := range []*models.Listing{first, second, third} {
		_, err := f.svc.AddItem(ctx, AddItemInput{BuyerID: buyer, ListingID: l.ID})
		require.NoError(t, err)
	}

	view, err := f.svc.RemoveItem(ctx, buyer, first.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("50.00")))

	require.NoError(t, f.svc.RemoveListings(ctx, buyer, []uuid.UUID{second.ID, third.ID}))
	stored, err := f.repo.FindByBuyer(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, stored.Items)
	assert.True(t, stored.Total.IsZero())
	assert.Zero(t, stored.ItemCount)

	view, err = f.svc.GetCart(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
