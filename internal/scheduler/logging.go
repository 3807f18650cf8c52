package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/horecaalert/internal/alertrun"
	obscontext "github.com/smallbiznis/horecaalert/internal/observability/context"
	obslogger "github.com/smallbiznis/horecaalert/internal/observability/logger"
	"go.uber.org/zap"
)

type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	summary   alertrun.Summary
	errCount  int
}

type jobRunKey struct{}

func (r *jobRun) Record(summary alertrun.Summary) {
	if r == nil {
		return
	}
	r.summary = summary
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errCount++
}

func (s *Scheduler) ensureJobRun(ctx context.Context, job string) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	return ctx, run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("job_run_id", run.runID),
		zap.String("spec", s.cfg.Spec),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("job_run_id", run.runID),
		zap.String("alert_run_id", run.summary.RunID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("processed", run.summary.Processed),
		zap.Int("total_matched", run.summary.TotalMatched),
		zap.Int("sent", run.summary.Sent),
		zap.Int("failed", run.summary.Failed),
		zap.Int("error_count", run.errCount),
	}
	log := s.logger(ctx)
	if run.errCount > 0 || run.summary.Failed > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

// cronLogger routes robfig/cron's internal logging through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
