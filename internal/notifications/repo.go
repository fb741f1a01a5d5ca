package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteByListing(ctx context.Context, listingID uuid.UUID) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// notificationMarkResult separates "already read" (Found, !Updated) from a
// row the caller does not own (!Found).
type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

// inbox scopes a query to one recipient's notifications.
func (r *gormRepository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	q := r.inbox(ctx, params.UserID)
	if params.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}

	var rows []models.Notification
	if err := q.Scopes(pagination.NewestFirst(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	res := r.inbox(ctx, userID).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if res.Error != nil {
		return notificationMarkResult{}, res.Error
	}
	if res.RowsAffected > 0 {
		return notificationMarkResult{Updated: true, Found: true}, nil
	}

	// nothing changed: either already read or not this user's row
	var owned int64
	if err := r.inbox(ctx, userID).Where("id = ?", notificationID).Count(&owned).Error; err != nil {
		return notificationMarkResult{}, err
	}
	return notificationMarkResult{Found: owned > 0}, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteByListing drops every notification that links to the listing.
func (r *gormRepository) DeleteByListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	return r.delete(ctx, "listing_id = ?", listingID)
}

// DeleteReadBefore purges notifications read before cutoff; unread rows stay.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.delete(ctx, "read_at IS NOT NULL AND read_at < ?", cutoff)
}

func (r *gormRepository) delete(ctx context.Context, cond string, arg any) (int64, error) {
	res := r.db.WithContext(ctx).Where(cond, arg).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
