package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// Repository persists offers.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the offers repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new offer.
func (r *Repository) Create(ctx context.Context, offer *models.Offer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(offer).Error
}

// FindByID loads one offer.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListByListing returns every offer on a listing, newest first.
func (r *Repository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// ListByBidder returns every offer a bidder placed, newest first.
func (r *Repository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("bidder_id = ?", bidderID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// ListOpenForListing returns the pending and accepted offers on a listing
// other than exceptID.
func (r *Repository) ListOpenForListing(ctx context.Context, listingID, exceptID uuid.UUID) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND id <> ?", listingID, exceptID).
		Where("status IN ?", []enums.OfferStatus{enums.OfferStatusPending, enums.OfferStatusAccepted}).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// TransitionStatus moves the offer to status `to` only if its current status
// is one of `from`. Returns false when the guard did not match.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OfferStatus, to enums.OfferStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteByListing removes every offer on the listing.
func (r *Repository) DeleteByListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Delete(&models.Offer{})
	return res.RowsAffected, res.Error
}
