package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/enums"
)

// Store persists the pending-payment ledger and the orders and payments it
// settles into.
type Store interface {
	WithTx(tx *gorm.DB) Store
	CreatePending(ctx context.Context, pending *models.PendingPayment) error
	FindPendingBySession(ctx context.Context, sessionID string) (*models.PendingPayment, error)
	ListStalePending(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]models.PendingPayment, error)
	CompletePending(ctx context.Context, sessionID string, orderID uuid.UUID) (int64, error)
	FindOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
}

// Repository is the gorm implementation of Store.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreatePending(ctx context.Context, pending *models.PendingPayment) error {
	if pending.ID == uuid.Nil {
		pending.ID = uuid.New()
	}
	if pending.Status == "" {
		pending.Status = enums.PendingPaymentStatusPending
	}
	return r.db.WithContext(ctx).Create(pending).Error
}

// FindPendingBySession returns gorm.ErrRecordNotFound when the session was
// never handed out by checkout.
func (r *Repository) FindPendingBySession(ctx context.Context, sessionID string) (*models.PendingPayment, error) {
	var pending models.PendingPayment
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&pending).Error; err != nil {
		return nil, err
	}
	return &pending, nil
}

// ListStalePending returns pending entries created inside (createdAfter, createdBefore), oldest first.
func (r *Repository) ListStalePending(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]models.PendingPayment, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.PendingPaymentStatusPending).
		Where("created_at < ?", createdBefore)
	if !createdAfter.IsZero() {
		query = query.Where("created_at > ?", createdAfter)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.PendingPayment
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CompletePending(ctx context.Context, sessionID string, orderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingPayment{}).
		Where("session_id = ?", sessionID).
		UpdateColumns(map[string]any{
			"status":     enums.PendingPaymentStatusCompleted,
			"order_id":   orderID,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// FindOrderBySession returns (nil, nil) when no order exists yet.
func (r *Repository) FindOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *Repository) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}
