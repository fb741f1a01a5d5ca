package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/swapmeet-backend/api/routes"
	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/checkout"
	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	"github.com/angelmondragon/swapmeet-backend/internal/offers"
	"github.com/angelmondragon/swapmeet-backend/internal/pricing"
	"github.com/angelmondragon/swapmeet-backend/internal/removal"
	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
	"github.com/angelmondragon/swapmeet-backend/internal/users"
	stripewebhook "github.com/angelmondragon/swapmeet-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/swapmeet-backend/internal/wishlist"
	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
	"github.com/angelmondragon/swapmeet-backend/pkg/migrate"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/redis"
	"github.com/angelmondragon/swapmeet-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	taxRate, err := cfg.Settlement.Rate()
	requireResource(logg, "tax rate", err)

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	requireResource(logg, "stripe client", err)
	gateway, err := stripe.NewCheckoutGateway(stripeClient)
	requireResource(logg, "stripe gateway", err)

	conn := dbClient.DB()
	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	listingRepo := listings.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	offerRepo := offers.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)
	wishlistRepo := wishlist.NewRepository(conn)
	settlementRepo := settlement.NewRepository(conn)

	propagator, err := pricing.NewPropagator(dbClient, listingRepo, cartRepo, logg)
	requireResource(logg, "pricing propagator", err)
	dispatcher, err := notifications.NewDispatcher(notificationRepo, emitter)
	requireResource(logg, "notification dispatcher", err)

	offerService, err := offers.NewService(offers.ServiceParams{
		Tx:            dbClient,
		Offers:        offerRepo,
		Listings:      listingRepo,
		Pricing:       propagator,
		Notifications: dispatcher,
		Outbox:        emitter,
		Metrics:       engineMetrics,
		Logger:        logg,
	})
	requireResource(logg, "offer service", err)

	cartService, err := cart.NewService(cartRepo, listingRepo, logg)
	requireResource(logg, "cart service", err)

	removalService, err := removal.NewService(removal.ServiceParams{
		Tx:            dbClient,
		Listings:      listingRepo,
		Offers:        offerRepo,
		Notifications: notificationRepo,
		Wishlists:     wishlistRepo,
		Carts:         cartRepo,
		Outbox:        emitter,
		Metrics:       engineMetrics,
		Logger:        logg,
	})
	requireResource(logg, "removal service", err)

	resolver, err := users.NewResolver(users.NewRepository(conn))
	requireResource(logg, "user resolver", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:    cartService,
		Users:    resolver,
		Gateway:  gateway,
		Pending:  settlementRepo,
		Logger:   logg,
		TaxRate:  taxRate,
		Currency: stripeClient.Currency(),
	})
	requireResource(logg, "checkout service", err)

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Store:    settlementRepo,
		Listings: listingRepo,
		Gateway:  gateway,
		Carts:    cartService,
		Outbox:   emitter,
		Metrics:  engineMetrics,
		Logger:   logg,
		TaxRate:  taxRate,
	})
	requireResource(logg, "settlement service", err)

	notificationService, err := notifications.NewService(notificationRepo)
	requireResource(logg, "notification service", err)
	wishlistService, err := wishlist.NewService(wishlistRepo, listingRepo)
	requireResource(logg, "wishlist service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Settlement: settlementService, Logger: logg})
	requireResource(logg, "stripe webhook service", err)
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	requireResource(logg, "stripe webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			prometheus.DefaultGatherer,
			offerService,
			removalService,
			cartService,
			checkoutService,
			settlementService,
			notificationService,
			wishlistService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to bootstrap "+resource, err)
	os.Exit(1)
}
