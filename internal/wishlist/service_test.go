package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/dbtest"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

func TestWishlistAddIsIdempotentAndCascades(t *testing.T) {
	conn := dbtest.Open(t)
	listingRepo := listings.NewRepository(conn)
	repo := NewRepository(conn)
	svc, err := NewService(repo, listingRepo)
	require.NoError(t, err)

	ctx := context.Background()
	listing := &models.Listing{SellerID: uuid.New(), Title: "Desk", Price: decimal.RequireFromString("120.00"), Available: true}
	require.NoError(t, listingRepo.Create(ctx, listing))

	user := uuid.New()
	require.NoError(t, svc.AddItem(ctx, user, listing.ID))
	require.NoError(t, svc.AddItem(ctx, user, listing.ID))
	require.NoError(t, svc.AddItem(ctx, uuid.New(), listing.ID))

	page, err := svc.List(ctx, user, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, listing.ID, page.Items[0].ListingID)

	deleted, err := repo.DeleteByListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestWishlistAddUnknownListing(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), listings.NewRepository(conn))
	require.NoError(t, err)

	err = svc.AddItem(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestWishlistRemove(t *testing.T) {
	conn := dbtest.Open(t)
	listingRepo := listings.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), listingRepo)
	require.NoError(t, err)

	ctx := context.Background()
	listing := &models.Listing{SellerID: uuid.New(), Title: "Chair", Price: decimal.RequireFromString("30.00"), Available: true}
	require.NoError(t, listingRepo.Create(ctx, listing))

	user := uuid.New()
	require.NoError(t, svc.AddItem(ctx, user, listing.ID))
	require.NoError(t, svc.RemoveItem(ctx, user, listing.ID))

	page, err := svc.List(ctx, user, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
