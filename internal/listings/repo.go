package listings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
)

// Repository reads and writes the engine-owned columns of a listing. The
// catalog owns everything else about the row.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided gorm DB.
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

// Create inserts a listing. Used by seeding and tests; production rows come
// from the catalog.
func (r *Repository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(listing).Error
}

// FindByID loads a listing by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDs loads the listings that still exist, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Listing, error) {
	out := make(map[uuid.UUID]models.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// LockForOfferDecision bumps offer_version and returns the fresh row. On
// postgres the UPDATE holds the row lock until the surrounding transaction
// ends, which serializes offer decisions per listing.
func (r *Repository) LockForOfferDecision(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn("offer_version", gorm.Expr("offer_version + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// SetAcceptedOffer writes the accepted-offer slot; nil clears it.
func (r *Repository) SetAcceptedOffer(ctx context.Context, id uuid.UUID, slot *models.AcceptedOffer) error {
	var value any
	if slot != nil {
		raw, err := json.Marshal(slot)
		if err != nil {
			return fmt.Errorf("encode accepted offer: %w", err)
		}
		value = string(raw)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn("accepted_offer", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkSold flags the listings unavailable and clears their slots.
func (r *Repository) MarkSold(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]any{
			"available":      false,
			"accepted_offer": nil,
		})
	return res.RowsAffected, res.Error
}

// Delete removes the listing row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{})
	return res.RowsAffected, res.Error
}
