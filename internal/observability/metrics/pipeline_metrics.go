package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DispatchOutcomeSent      = "sent"
	DispatchOutcomeDuplicate = "duplicate"
	DispatchOutcomeHeld      = "held"
	DispatchOutcomeSendError = "send_error"
	DispatchOutcomeError     = "error"
)

// PipelineMetrics tracks the scan and dispatch stages of a matching run.
type PipelineMetrics struct {
	runs        *prometheus.CounterVec
	candidates  prometheus.Counter
	alerts      *prometheus.CounterVec
	matched     prometheus.Counter
	dispatches  *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	rejections  *prometheus.CounterVec
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = NewPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the pipeline metrics singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func NewPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "horecaalert_runs_total",
		Help:        "Matching runs by trigger.",
		ConstLabels: labels,
	}, []string{"trigger"})
	candidates := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "horecaalert_candidate_listings_total",
		Help:        "Listings considered as candidates across runs.",
		ConstLabels: labels,
	})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "horecaalert_alerts_evaluated_total",
		Help:        "Active alerts evaluated or gated by frequency.",
		ConstLabels: labels,
	}, []string{"frequency", "state"})
	matched := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "horecaalert_pairs_matched_total",
		Help:        "Alert and listing pairs that satisfied the predicate.",
		ConstLabels: labels,
	})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "horecaalert_dispatch_total",
		Help:        "Notification dispatch attempts by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "horecaalert_run_duration_seconds",
		Help:        "Wall time of a full matching run.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: labels,
	}, []string{"trigger"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "horecaalert_trigger_rejections_total",
		Help:        "External run triggers refused before a run started.",
		ConstLabels: labels,
	}, []string{"reason"})

	registerer.MustRegister(runs, candidates, alerts, matched, dispatches, runDuration, rejections)

	return &PipelineMetrics{
		runs:        runs,
		candidates:  candidates,
		alerts:      alerts,
		matched:     matched,
		dispatches:  dispatches,
		runDuration: runDuration,
		rejections:  rejections,
	}
}

func (m *PipelineMetrics) IncRun(trigger string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger).Inc()
}

func (m *PipelineMetrics) AddCandidates(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.candidates.Add(float64(count))
}

// AddAlerts counts alerts per frequency, state being "eligible" or "gated".
func (m *PipelineMetrics) AddAlerts(frequency, state string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.alerts.WithLabelValues(frequency, state).Add(float64(count))
}

func (m *PipelineMetrics) AddMatched(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.matched.Add(float64(count))
}

func (m *PipelineMetrics) IncDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveRunDuration(trigger string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// IncTriggerRejected counts a refused trigger: unauthorized, misconfigured,
// rate_limited or in_progress.
func (m *PipelineMetrics) IncTriggerRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}
