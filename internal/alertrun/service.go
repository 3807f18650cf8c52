// Package alertrun executes one matching pass: load fresh listings, pair them
// with eligible alerts and notify each pair at most once.
package alertrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
	"github.com/smallbiznis/horecaalert/internal/metricspush"
	"github.com/smallbiznis/horecaalert/internal/notification"
	obscontext "github.com/smallbiznis/horecaalert/internal/observability/context"
	"github.com/smallbiznis/horecaalert/internal/observability/logger"
	"github.com/smallbiznis/horecaalert/internal/observability/metrics"
	"github.com/smallbiznis/horecaalert/internal/observability/tracing"
	"github.com/smallbiznis/horecaalert/internal/providers/slack"
	"github.com/smallbiznis/horecaalert/internal/ratelimit"
	"github.com/smallbiznis/horecaalert/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TriggerCron      = "cron"
	TriggerScheduler = "scheduler"
)

var ErrRunInProgress = errors.New("run_in_progress")

type PairScanner interface {
	Scan(ctx context.Context, candidates []listingdomain.Listing) ([]match.Pair, error)
}

type PairDispatcher interface {
	Dispatch(ctx context.Context, pair match.Pair) (notification.Result, error)
}

// PropertyResult is the number of alerts that matched one candidate listing,
// already-notified pairs included.
type PropertyResult struct {
	PropertyID string `json:"propertyId"`
	Matched    int    `json:"matched"`
}

type Summary struct {
	RunID        string
	Trigger      string
	Processed    int
	TotalMatched int
	// Sent counts emails that were accepted and recorded in the ledger.
	Sent       int
	Duplicates int
	// Held pairs belong to alerts still inside their frequency window and
	// not yet notified.
	Held int
	// Failed counts every pair that returned an error, including an email
	// that went out but could not be recorded.
	Failed int
	// Deferred pairs were not attempted because of the pair limit or the
	// run deadline; the next run picks them up.
	Deferred int
	Results  []PropertyResult
	// Err joins every per-pair failure. It never aborts the run.
	Err error
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Tuning      *config.TuningHolder
	ListingRepo listingdomain.Repository
	Scanner     PairScanner
	Dispatcher  PairDispatcher
	Guard       *ratelimit.RunGuard      `optional:"true"`
	Reporter    *metricspush.Reporter    `optional:"true"`
	Pipeline    *metrics.PipelineMetrics `optional:"true"`
	OTel        *metrics.Metrics         `optional:"true"`
	Ops         slack.Provider           `optional:"true"`
	OpsChannel  string                   `name:"ops_channel" optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	tuning      *config.TuningHolder
	listingRepo listingdomain.Repository
	scanner     PairScanner
	dispatcher  PairDispatcher
	guard       *ratelimit.RunGuard
	reporter    *metricspush.Reporter
	pipeline    *metrics.PipelineMetrics
	otel        *metrics.Metrics
	ops         slack.Provider
	opsChannel  string
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("alertrun.service"),
		clock:       p.Clock,
		tuning:      p.Tuning,
		listingRepo: p.ListingRepo,
		scanner:     p.Scanner,
		dispatcher:  p.Dispatcher,
		guard:       p.Guard,
		reporter:    p.Reporter,
		pipeline:    p.Pipeline,
		otel:        p.OTel,
		ops:         p.Ops,
		opsChannel:  p.OpsChannel,
	}
}

// Run performs one pass. Running it again over the same listings reports the
// same totals and sends nothing new.
func (s *Service) Run(ctx context.Context, trigger string) (Summary, error) {
	ctx, runID := correlation.EnsureCorrelationID(ctx)
	ctx = obscontext.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "alertrun.run", attribute.String("trigger", trigger))
	defer span.End()

	log := logger.WithContext(ctx, s.log).With(zap.String("trigger", trigger))
	start := s.clock.Now()

	token, ok, err := s.guard.Acquire(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		log.Info("run skipped, another run holds the lock")
		return Summary{}, ErrRunInProgress
	}
	defer func() {
		// The run context may already be expired here.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.guard.Release(releaseCtx, token); err != nil {
			log.Warn("release run lock failed", zap.Error(err))
		}
	}()

	tuning := s.tuning.Get()
	since := start.Add(-tuning.CandidateWindow)
	candidates, err := s.listingRepo.ListPublishedSince(ctx, s.db, since)
	if err != nil {
		return Summary{}, fmt.Errorf("load candidate listings: %w", err)
	}

	pairs, err := s.scanner.Scan(ctx, candidates)
	if err != nil {
		return Summary{}, fmt.Errorf("scan alerts: %w", err)
	}

	summary := Summary{
		RunID:        runID,
		Trigger:      trigger,
		Processed:    len(candidates),
		TotalMatched: len(pairs),
		Results:      perProperty(candidates, pairs),
	}
	s.recordMatches(ctx, pairs)

	var errs []error
	attempts := 0
	for i, pair := range pairs {
		if tuning.MaxPairsPerRun > 0 && attempts >= tuning.MaxPairsPerRun {
			summary.Deferred = len(pairs) - i
			log.Info("pair limit reached", zap.Int("limit", tuning.MaxPairsPerRun), zap.Int("deferred", summary.Deferred))
			break
		}
		if ctx.Err() != nil {
			summary.Deferred = len(pairs) - i
			log.Warn("run deadline reached", zap.Int("deferred", summary.Deferred))
			break
		}

		res, err := s.dispatcher.Dispatch(ctx, pair)
		switch {
		case err != nil:
			summary.Failed++
			attempts++
			errs = append(errs, fmt.Errorf("alert %s property %s: %w", pair.Alert.ID, pair.Listing.ID, err))
			s.otel.RecordDispatch(ctx, outcomeOf(res, err))
		case res.Sent:
			summary.Sent++
			attempts++
			s.otel.RecordDispatch(ctx, metrics.DispatchOutcomeSent)
		case res.Reason == notification.ReasonHeld:
			summary.Held++
			s.otel.RecordDispatch(ctx, metrics.DispatchOutcomeHeld)
		default:
			summary.Duplicates++
			s.otel.RecordDispatch(ctx, metrics.DispatchOutcomeDuplicate)
		}
	}
	summary.Err = errors.Join(errs...)

	elapsed := s.clock.Now().Sub(start)
	s.pipeline.IncRun(trigger)
	s.pipeline.AddCandidates(len(candidates))
	s.pipeline.ObserveRunDuration(trigger, elapsed)
	s.otel.RecordRun(ctx, trigger)

	fields := []zap.Field{
		zap.Int("processed", summary.Processed),
		zap.Int("total_matched", summary.TotalMatched),
		zap.Int("sent", summary.Sent),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("held", summary.Held),
		zap.Int("failed", summary.Failed),
		zap.Int("deferred", summary.Deferred),
		zap.Duration("duration", elapsed),
	}
	if summary.Err != nil {
		log.Warn("run finished with failures", append(fields, zap.Error(summary.Err))...)
		s.notifyOps(ctx, log, summary)
	} else {
		log.Info("run finished", fields...)
	}

	_ = s.reporter.Report(context.WithoutCancel(ctx), metricspush.RunStats{
		Trigger:    trigger,
		Candidates: summary.Processed,
		Matched:    summary.TotalMatched,
		Sent:       summary.Sent,
		Duplicates: summary.Duplicates,
		Failed:     summary.Failed,
		Seconds:    elapsed.Seconds(),
	})

	return summary, nil
}

// notifyOps posts a short failure notice. Delivery problems are logged only.
func (s *Service) notifyOps(ctx context.Context, log *zap.Logger, summary Summary) {
	if s.ops == nil {
		return
	}
	msg := fmt.Sprintf("horecaalert run %s (%s): %d of %d notifications failed, %d sent, %d deferred",
		summary.RunID, summary.Trigger, summary.Failed, summary.TotalMatched, summary.Sent, summary.Deferred)
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.ops.PostMessage(postCtx, s.opsChannel, msg); err != nil {
		log.Warn("ops notice failed", zap.Error(err))
	}
}

func (s *Service) recordMatches(ctx context.Context, pairs []match.Pair) {
	byFrequency := map[string]int{}
	for _, p := range pairs {
		byFrequency[string(p.Alert.Frequency)]++
	}
	for freq, n := range byFrequency {
		s.otel.RecordMatches(ctx, freq, n)
	}
}

func perProperty(candidates []listingdomain.Listing, pairs []match.Pair) []PropertyResult {
	counts := make(map[string]int, len(candidates))
	for _, p := range pairs {
		counts[p.Listing.ID]++
	}
	out := make([]PropertyResult, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, PropertyResult{PropertyID: c.ID, Matched: counts[c.ID]})
	}
	return out
}

func outcomeOf(res notification.Result, err error) string {
	if res.Reason == notification.ReasonSendError || errors.Is(err, notification.ErrSendFailed) {
		return metrics.DispatchOutcomeSendError
	}
	return metrics.DispatchOutcomeError
}
