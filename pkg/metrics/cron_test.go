package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("settlement-sweep", 250*time.Millisecond, nil)
	m.ObserveRun("settlement-sweep", time.Second, errors.New("stripe down"))
	m.ObserveRun("settlement-sweep", 100*time.Millisecond, nil)
	mfs := gather(t, reg)

	ok, err := fetchCounterValue(mfs, "swapmeet_cron_job_runs_total", "job", "settlement-sweep", "outcome", "success")
	require.NoError(t, err)
	assert.Equal(t, 2.0, ok)

	failed, err := fetchCounterValue(mfs, "swapmeet_cron_job_runs_total", "job", "settlement-sweep", "outcome", "failure")
	require.NoError(t, err)
	assert.Equal(t, 1.0, failed)

	hist, err := sample(mfs, "swapmeet_cron_job_duration_seconds", "job", "settlement-sweep")
	require.NoError(t, err)
	assert.EqualValues(t, 3, hist.GetHistogram().GetSampleCount())
	assert.InDelta(t, 1.35, hist.GetHistogram().GetSampleSum(), 1e-9)
}

func TestCronJobMetricsLastSuccessOnlyMovesOnSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("outbox-retention", time.Millisecond, errors.New("locked"))
	_, err := sample(gather(t, reg), "swapmeet_cron_job_last_success_timestamp_seconds", "job", "outbox-retention")
	assert.Error(t, err, "no success yet")

	before := float64(time.Now().Unix())
	m.ObserveRun("outbox-retention", time.Millisecond, nil)
	g, err := sample(gather(t, reg), "swapmeet_cron_job_last_success_timestamp_seconds", "job", "outbox-retention")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, g.GetGauge().GetValue(), before)
}

func TestCronJobMetricsSkippedAndUnnamedJobs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSkipped()
	m.IncSkipped()
	m.ObserveRun("", time.Millisecond, nil)
	mfs := gather(t, reg)

	skipped, err := fetchCounterValue(mfs, "swapmeet_cron_cycles_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 2.0, skipped)

	unknown, err := fetchCounterValue(mfs, "swapmeet_cron_job_runs_total", "job", "unknown", "outcome", "success")
	require.NoError(t, err)
	assert.Equal(t, 1.0, unknown)
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	assert.Nil(t, m)
	assert.NotPanics(t, func() {
		m.ObserveRun("x", time.Second, nil)
		m.IncSkipped()
	})
}
