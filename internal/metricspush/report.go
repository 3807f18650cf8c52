package metricspush

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/horecaalert/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RunStats is the outcome of one matching run.
type RunStats struct {
	Trigger    string
	Candidates int
	Matched    int
	Sent       int
	Duplicates int
	Failed     int
	Seconds    float64
}

type ReporterParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Pusher Pusher `optional:"true"`
}

// Reporter pushes a fresh registry per run so pushed values never accumulate
// across runs in the receiving system.
type Reporter struct {
	pusher  Pusher
	log     *zap.Logger
	service string
}

func NewReporter(p ReporterParams) *Reporter {
	return &Reporter{
		pusher:  p.Pusher,
		log:     p.Log.Named("metricspush"),
		service: p.Config.AppName,
	}
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.pusher != nil
}

// Report pushes stats. Failures are logged and returned; they never affect the run.
func (r *Reporter) Report(ctx context.Context, stats RunStats) error {
	if !r.Enabled() {
		return nil
	}
	registry := BuildRunRegistry(r.service, stats)
	if err := r.pusher.Push(ctx, registry); err != nil {
		r.log.Warn("metrics push failed", zap.String("trigger", stats.Trigger), zap.Error(err))
		return err
	}
	return nil
}

// BuildRunRegistry renders stats as gauges labeled by trigger.
func BuildRunRegistry(service string, stats RunStats) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service, "trigger": stats.Trigger}

	gauge := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(value)
		registry.MustRegister(g)
	}

	gauge("horecaalert_last_run_candidates", "Candidate listings in the last run.", float64(stats.Candidates))
	gauge("horecaalert_last_run_matched", "Matched pairs in the last run.", float64(stats.Matched))
	gauge("horecaalert_last_run_sent", "Emails sent in the last run.", float64(stats.Sent))
	gauge("horecaalert_last_run_duplicates", "Pairs skipped as already notified in the last run.", float64(stats.Duplicates))
	gauge("horecaalert_last_run_failed", "Pairs that failed in the last run.", float64(stats.Failed))
	gauge("horecaalert_last_run_duration_seconds", "Wall time of the last run.", stats.Seconds)
	return registry
}
