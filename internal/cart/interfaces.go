package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
)

// CartRepository defines the persistence surface for carts and their lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItemPrice(ctx context.Context, cartID, listingID uuid.UUID, price decimal.Decimal, isAcceptedOffer bool) (int64, error)
	DeleteItems(ctx context.Context, cartID uuid.UUID, listingIDs []uuid.UUID) (int64, error)
	DeleteItemsByListing(ctx context.Context, listingID uuid.UUID) ([]uuid.UUID, error)
	RecalculateTotals(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
}

type listingLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Listing, error)
}
