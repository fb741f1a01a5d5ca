package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/cart"
	"github.com/angelmondragon/swapmeet-backend/internal/cron"
	"github.com/angelmondragon/swapmeet-backend/internal/listings"
	"github.com/angelmondragon/swapmeet-backend/internal/notifications"
	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	"github.com/angelmondragon/swapmeet-backend/pkg/metrics"
	"github.com/angelmondragon/swapmeet-backend/pkg/migrate"
	"github.com/angelmondragon/swapmeet-backend/pkg/outbox"
	"github.com/angelmondragon/swapmeet-backend/pkg/redis"
	"github.com/angelmondragon/swapmeet-backend/pkg/stripe"
)

const serviceKind = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	jobs, err := buildJobs(ctx, cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "jobs", len(jobs)), "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeWithLog(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}

func buildJobs(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) ([]cron.Job, error) {
	conn := dbClient.DB()

	taxRate, err := cfg.Settlement.Rate()
	if err != nil {
		return nil, err
	}
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, fmt.Errorf("stripe client: %w", err)
	}
	gateway, err := stripe.NewCheckoutGateway(stripeClient)
	if err != nil {
		return nil, err
	}

	listingRepo := listings.NewRepository(conn)
	cartService, err := cart.NewService(cart.NewRepository(conn), listingRepo, logg)
	if err != nil {
		return nil, err
	}
	outboxRepo := outbox.NewRepository(conn)
	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Store:    settlement.NewRepository(conn),
		Listings: listingRepo,
		Gateway:  gateway,
		Carts:    cartService,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Metrics:  metrics.NewEngineMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		TaxRate:  taxRate,
	})
	if err != nil {
		return nil, err
	}

	sweepJob, err := cron.NewSettlementSweepJob(cron.SettlementSweepJobParams{
		Logger:     logg,
		Settlement: settlementService,
		Sweep: settlement.SweepParams{
			MinAge: cfg.Settlement.SweepMinAge,
			MaxAge: cfg.Settlement.SweepMaxAge,
			Limit:  cfg.Settlement.SweepBatch,
		},
	})
	if err != nil {
		return nil, err
	}

	outboxPurge, err := cron.NewPurgeJob(cron.PurgeJobParams{
		Name:   "outbox-retention",
		Logger: logg,
		DB:     dbClient,
		Purge: func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return outboxRepo.DeletePublishedBefore(tx, cutoff)
		},
		Retention: cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}

	notificationRepo := notifications.NewRepository(conn)
	notificationPurge, err := cron.NewPurgeJob(cron.PurgeJobParams{
		Name:   "notification-retention",
		Logger: logg,
		DB:     dbClient,
		Purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return notificationRepo.WithTx(tx).DeleteReadBefore(ctx, cutoff)
		},
		Retention: cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	return []cron.Job{sweepJob, outboxPurge, notificationPurge}, nil
}

// lockName scopes the worker lock per environment so staging and prod can
// share a Redis.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
