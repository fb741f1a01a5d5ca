package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, listingID uuid.UUID) error {
	if userID == uuid.Nil || listingID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (id, user_id, listing_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (user_id, listing_id) DO NOTHING`,
			uuid.New(), userID, listingID, time.Now().UTC()).
		Error
}

// RemoveItem deletes the user-listing entry if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns a page of wishlist entries for a user, newest first.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WishlistItem, *pagination.Cursor, error) {
	var rows []models.WishlistItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(pagination.NewestFirst(cursor, limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(item models.WishlistItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	return page, next, nil
}

// DeleteByListing removes the listing from every user's wishlist.
func (r *Repository) DeleteByListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Delete(&models.WishlistItem{})
	return res.RowsAffected, res.Error
}
