package offers

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	"github.com/angelmondragon/swapmeet-backend/internal/pricing"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/dbtest"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
)

type engine struct {
	conn     *gorm.DB
	svc      Service
	offers   *Repository
	listings *listings.Repository
	carts    cart.Service
	cartRepo *cart.Repository
}

func newEngine(t *testing.T) engine {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "offers-test", Output: io.Discard})
	client := db.NewFromConn(conn)

	listingRepo := listings.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	offerRepo := NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	propagator, err := pricing.NewPropagator(client, listingRepo, cartRepo, logg)
	require.NoError(t, err)
	dispatcher, err := notifications.NewDispatcher(notifications.NewRepository(conn), emitter)
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cartRepo, listingRepo, logg)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Tx:            client,
		Offers:        offerRepo,
		Listings:      listingRepo,
		Pricing:       propagator,
		Notifications: dispatcher,
		Outbox:        emitter,
		Metrics:       metrics.NewEngineMetrics(prometheus.NewRegistry()),
		Logger:        logg,
	})
	require.NoError(t, err)

	return engine{conn: conn, svc: svc, offers: offerRepo, listings: listingRepo, carts: cartSvc, cartRepo: cartRepo}
}

func (e engine) listing(t *testing.T, price string) *models.Listing {
	t.Helper()
	listing := &models.Listing{SellerID: uuid.New(), Title: "Road Bike", Price: decimal.RequireFromString(price), Available: true}
	require.NoError(t, e.listings.Create(context.Background(), listing))
	return listing
}

func (e engine) offer(t *testing.T, listingID, bidder uuid.UUID, amount string) *models.Offer {
	t.Helper()
	offer, err := e.svc.PlaceOffer(context.Background(), PlaceOfferInput{
		ListingID: listingID,
		BidderID:  bidder,
		Amount:    decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return offer
}

func (e engine) notificationsFor(t *testing.T, userID uuid.UUID) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, e.conn.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (e engine) acceptedCount(t *testing.T, listingID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.conn.Model(&models.Offer{}).Where("listing_id = ? AND status = ?", listingID, "accepted").Count(&n).Error)
	return n
}

func amountPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
