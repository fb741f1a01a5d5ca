package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

const defaultRetention = 30 * 24 * time.Hour

// PurgeFunc deletes rows older than cutoff and reports how many went away.
type PurgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type PurgeJobParams struct {
	Name      string
	Logger    *logger.Logger
	DB        txRunner
	Purge     PurgeFunc
	Retention time.Duration
}

// NewPurgeJob builds a retention job around purge. Used for published outbox
// rows and read notifications.
func NewPurgeJob(params PurgeJobParams) (Job, error) {
	switch {
	case params.Name == "":
		return nil, fmt.Errorf("job name required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Purge == nil:
		return nil, fmt.Errorf("purge func required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &purgeJob{
		name:      params.Name,
		logg:      params.Logger,
		db:        params.DB,
		purge:     params.Purge,
		retention: retention,
		now:       time.Now,
	}, nil
}

type purgeJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	purge     PurgeFunc
	retention time.Duration
	now       func() time.Time
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}
