package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
	"github.com/angelmondragon/swapmeet-backend/pkg/db"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup in dev when
// SWAPMEET_AUTO_MIGRATE is set. SQLite is skipped; the schema is postgres only.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.FeatureFlags.UseSQLite {
		logg.Warn(ctx, "skipping migrations against sqlite")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, Embedded())
	if err != nil {
		return err
	}
	results, err := m.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "dev migrations applied")
	return nil
}
