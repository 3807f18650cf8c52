package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "wrapped_deadline", err: fmt.Errorf("scan: %w", context.DeadlineExceeded), want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: SchedulerJobReasonDB},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "horecaalert", Environment: "test"})

	m.IncJobRun("search_alerts")
	m.IncJobSkipped("search_alerts", SchedulerSkipReasonLocked)
	m.IncJobError("search_alerts", context.DeadlineExceeded)
	m.ObserveJobDuration("search_alerts", 250*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("search_alerts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobSkipped.WithLabelValues("search_alerts", SchedulerSkipReasonLocked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("search_alerts", SchedulerJobReasonDeadlineExceeded)))
}

func TestPipelineMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPipelineMetrics(registry, Config{ServiceName: "horecaalert", Environment: "test"})

	m.IncRun("cron")
	m.AddCandidates(4)
	m.AddMatched(3)
	m.AddMatched(0)
	m.IncDispatch(DispatchOutcomeSent)
	m.IncDispatch(DispatchOutcomeDuplicate)
	m.IncDispatch(DispatchOutcomeDuplicate)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("cron")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.candidates))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.matched))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues(DispatchOutcomeDuplicate)))
}
