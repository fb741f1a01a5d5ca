package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/swapmeet-backend/internal/settlement"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestPurgeJobComputesCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	jobIface, err := NewPurgeJob(PurgeJobParams{
		Name:   "outbox-retention",
		Logger: testLogger(),
		DB:     passthroughTx{},
		Purge: func(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 7, nil
		},
		Retention: 48 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*purgeJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour), gotCutoff)
	assert.Equal(t, "outbox-retention", job.Name())
}

func TestPurgeJobDefaultsAndErrors(t *testing.T) {
	jobIface, err := NewPurgeJob(PurgeJobParams{
		Name:   "notification-retention",
		Logger: testLogger(),
		DB:     passthroughTx{},
		Purge: func(context.Context, *gorm.DB, time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	})
	require.NoError(t, err)
	assert.Equal(t, defaultRetention, jobIface.(*purgeJob).retention)
	assert.ErrorContains(t, jobIface.Run(context.Background()), "notification-retention")

	_, err = NewPurgeJob(PurgeJobParams{Logger: testLogger(), DB: passthroughTx{}})
	assert.Error(t, err)
}

type stubSweeper struct {
	params settlement.SweepParams
	err    error
}

func (s *stubSweeper) SweepPending(_ context.Context, params settlement.SweepParams) (*settlement.SweepResult, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &settlement.SweepResult{Scanned: 3, Settled: 1, NotPaid: 2}, nil
}

func TestSettlementSweepJob(t *testing.T) {
	sweeper := &stubSweeper{}
	params := settlement.SweepParams{MinAge: 2 * time.Minute, MaxAge: 72 * time.Hour, Limit: 50}
	job, err := NewSettlementSweepJob(SettlementSweepJobParams{Logger: testLogger(), Settlement: sweeper, Sweep: params})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, params, sweeper.params)

	sweeper.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}
