package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
)

// Repository exposes persistence operations for carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByBuyer loads the buyer's cart with its lines in insertion order.
func (r *Repository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("buyer_id = ?", buyerID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate returns the buyer's cart, creating an empty one on first use.
func (r *Repository) GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	fresh := models.Cart{ID: uuid.New(), BuyerID: buyerID, Total: decimal.Zero}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "buyer_id"}}, DoNothing: true}).
		Omit("Items").
		Create(&fresh).Error
	if err != nil {
		return nil, err
	}
	return r.FindByBuyer(ctx, buyerID)
}

// UpsertItem inserts the line or overwrites quantity and price when the
// listing is already in the cart.
func (r *Repository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "is_accepted_offer", "updated_at"}),
		}).
		Create(item).Error
}

// UpdateItemPrice rewrites the price snapshot of one line.
func (r *Repository) UpdateItemPrice(ctx context.Context, cartID, listingID uuid.UUID, price decimal.Decimal, isAcceptedOffer bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND listing_id = ?", cartID, listingID).
		UpdateColumns(map[string]any{
			"price":             price,
			"is_accepted_offer": isAcceptedOffer,
			"updated_at":        time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// DeleteItems removes the given listings from one cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID, listingIDs []uuid.UUID) (int64, error) {
	if len(listingIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND listing_id IN ?", cartID, listingIDs).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteItemsByListing removes the listing from every cart and returns the
// ids of the carts that changed.
func (r *Repository) DeleteItemsByListing(ctx context.Context, listingID uuid.UUID) ([]uuid.UUID, error) {
	var cartIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("listing_id = ?", listingID).
		Distinct().
		Pluck("cart_id", &cartIDs).Error; err != nil {
		return nil, err
	}
	if len(cartIDs) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}
	return cartIDs, nil
}

// RecalculateTotals recomputes total and item_count from the stored lines.
func (r *Repository) RecalculateTotals(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return nil, err
	}
	total, count := Totals(items)
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumns(map[string]any{
			"total":      total,
			"item_count": count,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, err
	}
	cart.Items = items
	return &cart, nil
}
