package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/swapmeet-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/swapmeet-backend/api/controllers/webhooks"
	"github.com/angelmondragon/swapmeet-backend/api/middleware"
	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/swapmeet-backend/internal/checkout"
	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	"github.com/angelmondragon/swapmeet-backend/internal/offers"
	"github.com/angelmondragon/swapmeet-backend/internal/removal"
	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
	stripewebhook "github.com/angelmondragon/swapmeet-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/swapmeet-backend/internal/wishlist"
	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/redis"
	"github.com/angelmondragon/swapmeet-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	offerService offers.Service,
	removalService removal.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	settlementService settlement.Service,
	notificationsService notifications.Service,
	wishlistService wishlist.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// typed nils must not leak into the middleware interfaces
	var (
		idempotencyStore middleware.ReplayStore
		limiter          middleware.RateLimiterStore
	)
	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["database"] = dbP
	}
	if redisClient != nil {
		idempotencyStore = redisClient
		limiter = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if stripeWebhookService != nil && stripeClient != nil && stripeWebhookGuard != nil {
		r.Route("/api/v1/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
		})
	}

	offerPolicy := middleware.RateLimitPolicy{
		Name:   "offers",
		Limit:  cfg.RateLimit.OfferLimit,
		Window: cfg.RateLimit.OfferWindow,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/listings/{listingId}", func(r chi.Router) {
			r.Delete("/", controllers.DeleteListing(removalService, logg))
			r.Get("/offers", controllers.ListListingOffers(offerService, logg))
			r.With(middleware.RateLimit(offerPolicy, limiter, logg)).Post("/offers", controllers.PlaceOffer(offerService, logg))
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/mine", controllers.ListMyOffers(offerService, logg))
			r.Post("/{offerId}/status", controllers.SetOfferStatus(offerService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Delete("/items/{listingId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.Post("/checkout/{sessionId}/confirm", controllers.CheckoutConfirm(settlementService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(wishlistService, logg))
			r.Post("/", controllers.WishlistAdd(wishlistService, logg))
			r.Delete("/{listingId}", controllers.WishlistRemove(wishlistService, logg))
		})
	})

	return r
}
