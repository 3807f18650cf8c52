package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
	matcheventdomain "github.com/smallbiznis/horecaalert/internal/matchevent/domain"
	matcheventrepository "github.com/smallbiznis/horecaalert/internal/matchevent/repository"
	"github.com/smallbiznis/horecaalert/internal/observability/metrics"
	alertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	alertrepository "github.com/smallbiznis/horecaalert/internal/searchalert/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var now = time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	scanner  *Scanner
	registry *prometheus.Registry
}

func newFixture(t *testing.T, tuning config.TuningConfig) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&alertdomain.SearchAlert{}, &matcheventdomain.MatchEvent{}))

	fake := clock.NewFakeClock(now)
	registry := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(registry, metrics.Config{ServiceName: "horecaalert", Environment: "test"})

	return &fixture{
		db:       db,
		clock:    fake,
		registry: registry,
		scanner: New(Params{
			DB:        db,
			Log:       zaptest.NewLogger(t),
			Clock:     fake,
			Tuning:    config.NewStaticTuning(tuning),
			AlertRepo: alertrepository.Provide(),
			EventRepo: matcheventrepository.Provide(),
			Metrics:   m,
		}),
	}
}

func (f *fixture) addAlert(t *testing.T, id int64, freq alertdomain.Frequency, cities ...string) alertdomain.SearchAlert {
	t.Helper()
	c, err := alertdomain.NewCriteria(cities, nil, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	alert := alertdomain.SearchAlert{
		ID:        snowflake.ID(id),
		UserID:    1,
		Name:      "alert",
		Frequency: freq,
		Active:    true,
		CreatedAt: now.Add(-30 * 24 * time.Hour),
		UpdatedAt: now.Add(-30 * 24 * time.Hour),
	}
	alert.ApplyCriteria(c)
	require.NoError(t, alertrepository.Provide().Create(context.Background(), f.db, &alert))
	return alert
}

func (f *fixture) fired(t *testing.T, eventID, alertID int64, propertyID string, at time.Time) {
	t.Helper()
	require.NoError(t, matcheventrepository.Provide().Insert(context.Background(), f.db, &matcheventdomain.MatchEvent{
		ID:         snowflake.ID(eventID),
		AlertID:    snowflake.ID(alertID),
		PropertyID: propertyID,
		SentAt:     at,
	}))
}

func listing(id, city string, age time.Duration) listingdomain.Listing {
	published := now.Add(-age)
	rent := int64(200000)
	return listingdomain.Listing{
		ID:           id,
		Title:        "Listing " + id,
		City:         city,
		PropertyType: "RESTAURANT",
		Status:       listingdomain.StatusActive,
		PriceType:    listingdomain.PriceTypeRent,
		RentPrice:    &rent,
		PublishedAt:  &published,
	}
}

func pairKeys(pairs []match.Pair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Alert.ID.String()+":"+p.Listing.ID)
	}
	return out
}

func heldKeys(pairs []match.Pair) []string {
	out := []string{}
	for _, p := range pairs {
		if p.Held {
			out = append(out, p.Alert.ID.String()+":"+p.Listing.ID)
		}
	}
	return out
}

func TestScanOrdersByPublishedThenAlert(t *testing.T) {
	f := newFixture(t, config.DefaultTuningConfig())
	f.addAlert(t, 20, alertdomain.FrequencyInstant)
	f.addAlert(t, 10, alertdomain.FrequencyInstant, "Amsterdam")
	f.addAlert(t, 30, alertdomain.FrequencyInstant, "Rotterdam")

	candidates := []listingdomain.Listing{
		listing("old", "Amsterdam", 5*time.Hour),
		listing("new", "Amsterdam", time.Hour),
		listing("rdam", "Rotterdam", 3*time.Hour),
	}

	pairs, err := f.scanner.Scan(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"10:new", "20:new",
		"20:rdam", "30:rdam",
		"10:old", "20:old",
	}, pairKeys(pairs))

	expected := `
# HELP horecaalert_pairs_matched_total Alert and listing pairs that satisfied the predicate.
# TYPE horecaalert_pairs_matched_total counter
horecaalert_pairs_matched_total{env="test",service="horecaalert"} 6
`
	assert.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "horecaalert_pairs_matched_total"))
}

func TestScanFrequencyGating(t *testing.T) {
	f := newFixture(t, config.DefaultTuningConfig())
	f.addAlert(t, 1, alertdomain.FrequencyInstant)
	f.addAlert(t, 2, alertdomain.FrequencyDaily)
	f.addAlert(t, 3, alertdomain.FrequencyDaily)
	f.addAlert(t, 4, alertdomain.FrequencyWeekly)
	f.addAlert(t, 5, alertdomain.FrequencyWeekly)
	f.addAlert(t, 6, alertdomain.FrequencyWeekly)

	f.fired(t, 100, 1, "x", now.Add(-time.Minute))
	f.fired(t, 101, 2, "x", now.Add(-23*time.Hour))
	f.fired(t, 102, 3, "x", now.Add(-24*time.Hour))
	f.fired(t, 103, 4, "x", now.Add(-6*24*time.Hour))
	f.fired(t, 104, 5, "x", now.Add(-8*24*time.Hour))

	pairs, err := f.scanner.Scan(context.Background(), []listingdomain.Listing{listing("p", "Utrecht", time.Hour)})
	require.NoError(t, err)

	// Every match is reported. Instant always fires, daily at exactly 24h
	// fires, weekly after 8 days fires, and a weekly alert that never fired
	// is eligible.
	assert.Equal(t, []string{"1:p", "2:p", "3:p", "4:p", "5:p", "6:p"}, pairKeys(pairs))
	assert.Equal(t, []string{"2:p", "4:p"}, heldKeys(pairs))
	for _, p := range pairs {
		assert.True(t, p.ScannedAt.Equal(now))
	}
}

func TestScanDailyAlertAfterSlowSend(t *testing.T) {
	f := newFixture(t, config.DefaultTuningConfig())
	f.addAlert(t, 2, alertdomain.FrequencyDaily)

	// The last fire landed two seconds after the previous daily slot.
	f.fired(t, 100, 2, "x", now.Add(-24*time.Hour+2*time.Second))

	pairs, err := f.scanner.Scan(context.Background(), []listingdomain.Listing{listing("p", "Utrecht", 12*time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2:p"}, pairKeys(pairs))
	assert.Empty(t, heldKeys(pairs))
}

func TestScanTuningOverridesWindow(t *testing.T) {
	tuning := config.DefaultTuningConfig()
	tuning.FrequencyWindows["daily"] = time.Hour
	f := newFixture(t, tuning)
	f.addAlert(t, 2, alertdomain.FrequencyDaily)
	f.fired(t, 100, 2, "x", now.Add(-2*time.Hour))

	pairs, err := f.scanner.Scan(context.Background(), []listingdomain.Listing{listing("p", "Utrecht", time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2:p"}, pairKeys(pairs))
	assert.Empty(t, heldKeys(pairs))
}

func TestScanSkipsInactiveAlertsAndEmptyCandidates(t *testing.T) {
	f := newFixture(t, config.DefaultTuningConfig())
	f.addAlert(t, 1, alertdomain.FrequencyInstant)
	_, err := alertrepository.Provide().SetActive(context.Background(), f.db, 1, false, now)
	require.NoError(t, err)

	pairs, err := f.scanner.Scan(context.Background(), []listingdomain.Listing{listing("p", "Utrecht", time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, pairs)

	pairs, err = f.scanner.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible(0, now, now))
	assert.True(t, Eligible(time.Hour, time.Time{}, now))
	assert.False(t, Eligible(time.Hour, now.Add(-58*time.Minute), now))
	assert.True(t, Eligible(time.Hour, now.Add(-59*time.Minute), now))
	assert.True(t, Eligible(24*time.Hour, now.Add(-24*time.Hour+5*time.Second), now))
	assert.False(t, Eligible(24*time.Hour, now.Add(-23*time.Hour), now))
}
