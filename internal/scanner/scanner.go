// Package scanner pairs candidate listings with the active alerts they
// satisfy, honoring each alert's notification frequency.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
	matcheventdomain "github.com/smallbiznis/horecaalert/internal/matchevent/domain"
	"github.com/smallbiznis/horecaalert/internal/observability/logger"
	"github.com/smallbiznis/horecaalert/internal/observability/metrics"
	alertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	alertStateEligible = "eligible"
	alertStateGated    = "gated"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Tuning    *config.TuningHolder
	AlertRepo alertdomain.Repository
	EventRepo matcheventdomain.Repository
	Metrics   *metrics.PipelineMetrics `optional:"true"`
}

type Scanner struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	tuning    *config.TuningHolder
	alertRepo alertdomain.Repository
	eventRepo matcheventdomain.Repository
	metrics   *metrics.PipelineMetrics
}

func New(p Params) *Scanner {
	return &Scanner{
		db:        p.DB,
		log:       p.Log.Named("scanner"),
		clock:     p.Clock,
		tuning:    p.Tuning,
		alertRepo: p.AlertRepo,
		eventRepo: p.EventRepo,
		metrics:   p.Metrics,
	}
}

// Scan returns every (alert, listing) pair that matches. Pairs of alerts whose
// frequency window has not elapsed since their last notification are marked
// Held. Pairs are ordered newest listing first, then by alert id.
func (s *Scanner) Scan(ctx context.Context, candidates []listingdomain.Listing) ([]match.Pair, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	alerts, err := s.alertRepo.ListActive(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	held, err := s.heldAlerts(ctx, alerts, now)
	if err != nil {
		return nil, err
	}

	var pairs []match.Pair
	heldPairs := 0
	for _, alert := range alerts {
		criteria := alert.Criteria()
		for _, listing := range candidates {
			if !match.Matches(listing, criteria) {
				continue
			}
			pair := match.Pair{Alert: alert, Listing: listing, ScannedAt: now, Held: held[alert.ID]}
			if pair.Held {
				heldPairs++
			}
			pairs = append(pairs, pair)
		}
	}
	sortPairs(pairs)

	s.metrics.AddMatched(len(pairs))
	logger.WithContext(ctx, s.log).Info("scan complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("alerts_active", len(alerts)),
		zap.Int("alerts_held", len(held)),
		zap.Int("pairs", len(pairs)),
		zap.Int("pairs_held", heldPairs),
	)
	return pairs, nil
}

// heldAlerts returns the alerts that already fired inside their frequency
// window. The last fire time is read from the match event ledger.
func (s *Scanner) heldAlerts(ctx context.Context, alerts []alertdomain.SearchAlert, now time.Time) (map[snowflake.ID]bool, error) {
	tuning := s.tuning.Get()

	windows := make(map[snowflake.ID]time.Duration, len(alerts))
	var gatedIDs []snowflake.ID
	var widest time.Duration
	for _, alert := range alerts {
		window := s.window(tuning, alert.Frequency)
		windows[alert.ID] = window
		if window <= 0 {
			continue
		}
		gatedIDs = append(gatedIDs, alert.ID)
		if window > widest {
			widest = window
		}
	}

	lastSent := map[snowflake.ID]time.Time{}
	if len(gatedIDs) > 0 {
		var err error
		lastSent, err = s.eventRepo.LastSentSince(ctx, s.db, gatedIDs, now.Add(-widest))
		if err != nil {
			return nil, fmt.Errorf("load last notifications: %w", err)
		}
	}

	type tally struct{ eligible, gated int }
	counts := map[alertdomain.Frequency]*tally{}
	out := make(map[snowflake.ID]bool)
	for _, alert := range alerts {
		t, ok := counts[alert.Frequency]
		if !ok {
			t = &tally{}
			counts[alert.Frequency] = t
		}
		if Eligible(windows[alert.ID], lastSent[alert.ID], now) {
			t.eligible++
			continue
		}
		t.gated++
		out[alert.ID] = true
	}
	for freq, t := range counts {
		s.metrics.AddAlerts(string(freq), alertStateEligible, t.eligible)
		s.metrics.AddAlerts(string(freq), alertStateGated, t.gated)
	}
	return out, nil
}

func (s *Scanner) window(tuning config.TuningConfig, freq alertdomain.Frequency) time.Duration {
	if window, ok := tuning.FrequencyWindow(string(freq)); ok {
		return window
	}
	return freq.Window()
}

// scheduleSlack absorbs start-time jitter between two runs of one schedule.
const scheduleSlack = time.Minute

// Eligible reports whether an alert with the given window may fire at now.
// A zero lastSent means the alert never fired.
func Eligible(window time.Duration, lastSent, now time.Time) bool {
	if window <= 0 || lastSent.IsZero() {
		return true
	}
	if window > scheduleSlack {
		window -= scheduleSlack
	}
	return now.Sub(lastSent) >= window
}

func sortPairs(pairs []match.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		pa, pb := publishedAt(a.Listing), publishedAt(b.Listing)
		if !pa.Equal(pb) {
			return pa.After(pb)
		}
		if a.Alert.ID != b.Alert.ID {
			return a.Alert.ID < b.Alert.ID
		}
		return a.Listing.ID < b.Listing.ID
	})
}

func publishedAt(l listingdomain.Listing) time.Time {
	if l.PublishedAt == nil {
		return time.Time{}
	}
	return *l.PublishedAt
}
