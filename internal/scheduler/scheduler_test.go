package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/horecaalert/internal/alertrun"
	"github.com/smallbiznis/horecaalert/internal/clock"
	obsmetrics "github.com/smallbiznis/horecaalert/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type runnerFunc func(ctx context.Context, trigger string) (alertrun.Summary, error)

func (f runnerFunc) Run(ctx context.Context, trigger string) (alertrun.Summary, error) {
	return f(ctx, trigger)
}

func newTestScheduler(t *testing.T, runner Runner, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := newScheduler(runner, zap.NewNop(), node, clock.NewFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)), cfg)
	require.NoError(t, err)
	return s
}

func setupRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "horecaalert",
		Environment: "test",
	})
	return registry
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := setupRegistry(t)

	s := newTestScheduler(t, runnerFunc(nil), Config{})
	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "horecaalert",
		"env":     "test",
		"job":     "timeout_job",
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "horecaalert_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "horecaalert",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "horecaalert_scheduler_job_errors_total", errorLabels))
}

func TestRunOnceUsesSchedulerTrigger(t *testing.T) {
	registry := setupRegistry(t)

	var gotTrigger string
	s := newTestScheduler(t, runnerFunc(func(ctx context.Context, trigger string) (alertrun.Summary, error) {
		gotTrigger = trigger
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return alertrun.Summary{Processed: 3, TotalMatched: 2, Sent: 2}, nil
	}), Config{RunTimeout: time.Minute})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, alertrun.TriggerScheduler, gotTrigger)

	labels := map[string]string{
		"service": "horecaalert",
		"env":     "test",
		"job":     JobSearchAlerts,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "horecaalert_scheduler_job_runs_total", labels))
}

func TestRunOnceSkipsWhenRunInProgress(t *testing.T) {
	registry := setupRegistry(t)

	s := newTestScheduler(t, runnerFunc(func(context.Context, string) (alertrun.Summary, error) {
		return alertrun.Summary{}, alertrun.ErrRunInProgress
	}), Config{})

	require.NoError(t, s.RunOnce(context.Background()))

	labels := map[string]string{
		"service": "horecaalert",
		"env":     "test",
		"job":     JobSearchAlerts,
		"reason":  obsmetrics.SchedulerSkipReasonLocked,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "horecaalert_scheduler_job_skipped_total", labels))
}

func TestRunOnceWrapsRunnerError(t *testing.T) {
	setupRegistry(t)

	boom := errors.New("boom")
	s := newTestScheduler(t, runnerFunc(func(context.Context, string) (alertrun.Summary, error) {
		return alertrun.Summary{}, boom
	}), Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobSearchAlerts)
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	_, err = newScheduler(runnerFunc(nil), zap.NewNop(), node, clock.NewFakeClock(time.Time{}), Config{Spec: "not a spec"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStartStop(t *testing.T) {
	setupRegistry(t)

	s := newTestScheduler(t, runnerFunc(func(context.Context, string) (alertrun.Summary, error) {
		return alertrun.Summary{}, nil
	}), Config{Spec: "@every 1h"})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
