package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/horecaalert/internal/alertrun"
	"github.com/smallbiznis/horecaalert/internal/clock"
	obsmetrics "github.com/smallbiznis/horecaalert/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobSearchAlerts = "search_alerts"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Runner executes one alert run.
type Runner interface {
	Run(ctx context.Context, trigger string) (alertrun.Summary, error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Runner *alertrun.Service
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config Config `optional:"true"`
}

type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	runner  Runner
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     Config

	mu      sync.Mutex
	started bool
}

func New(p Params) (*Scheduler, error) {
	if p.Runner == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return newScheduler(p.Runner, p.Log, p.GenID, p.Clock, p.Config)
}

func newScheduler(runner Runner, log *zap.Logger, genID *snowflake.Node, clk clock.Clock, cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("%w: spec %q: %v", ErrInvalidConfig, cfg.Spec, err)
	}
	named := log.Named("scheduler")
	cl := cronLogger{log: named.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		log:    named,
		genID:  genID,
		clock:  clk,
		cfg:    cfg,
	}, nil
}

// Start registers the search alert job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	id, err := s.cron.AddFunc(s.cfg.Spec, func() {
		s.observeLag()
		if err := s.RunOnce(ctx); err != nil {
			s.logger(ctx).Error("scheduler.job.failed", zap.String("job", JobSearchAlerts), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.started = true
	s.log.Info("scheduler started", zap.String("spec", s.cfg.Spec), zap.Duration("run_timeout", s.cfg.RunTimeout))

	if s.cfg.RunOnStart {
		go func() {
			if err := s.RunOnce(ctx); err != nil {
				s.logger(ctx).Error("scheduler.job.failed", zap.String("job", JobSearchAlerts), zap.Error(err))
			}
		}()
	}
	return nil
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a single search alert run under the job wrapper.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobSearchAlerts, s.cfg.RunTimeout, func(ctx context.Context) error {
		summary, err := s.runner.Run(ctx, alertrun.TriggerScheduler)
		jobRunFromContext(ctx).Record(summary)
		return err
	})
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("job_run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))

	if errors.Is(err, alertrun.ErrRunInProgress) {
		schedMetrics.IncJobSkipped(name, obsmetrics.SchedulerSkipReasonLocked)
		log.Info("job skipped, another run holds the lock")
		return nil
	}

	if owner {
		if err != nil && run.errCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) observeLag() {
	entry := s.cron.Entry(s.entryID)
	if entry.Prev.IsZero() {
		return
	}
	obsmetrics.Scheduler().ObserveRunLag(s.clock.Now().Sub(entry.Prev))
}
