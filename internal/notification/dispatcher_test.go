package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
	matcheventdomain "github.com/smallbiznis/horecaalert/internal/matchevent/domain"
	matcheventrepository "github.com/smallbiznis/horecaalert/internal/matchevent/repository"
	alertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	userdomain "github.com/smallbiznis/horecaalert/internal/user/domain"
	userrepository "github.com/smallbiznis/horecaalert/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

func (m *mockEmail) SendTemplate(ctx context.Context, to []string, templateID string, data interface{}) error {
	return m.Called(ctx, to, templateID, data).Error(0)
}

var now = time.Date(2026, 8, 3, 6, 30, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T, provider *mockEmail) (*Dispatcher, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&matcheventdomain.MatchEvent{}, &userdomain.User{}))
	require.NoError(t, db.Create(&userdomain.User{ID: 5, Name: "Daan", Email: "daan@example.nl", CreatedAt: now}).Error)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return New(Params{
		DB:        db,
		Log:       zaptest.NewLogger(t),
		Clock:     clock.NewFakeClock(now),
		GenID:     node,
		Tuning:    config.NewStaticTuning(config.DefaultTuningConfig()),
		EventRepo: matcheventrepository.Provide(),
		UserRepo:  userrepository.Provide(),
		Email:     provider,
		URLs:      listingdomain.NewURLBuilder("https://horeca.example.nl"),
	}), db
}

func testPair(t *testing.T) match.Pair {
	t.Helper()
	maxPrice := int64(300000)
	c, err := alertdomain.NewCriteria([]string{"Amsterdam"}, nil, nil, nil, &maxPrice, nil, nil)
	require.NoError(t, err)

	alert := alertdomain.SearchAlert{ID: 77, UserID: 5, Name: "Amsterdam onder 3k", Frequency: alertdomain.FrequencyInstant, Active: true}
	alert.ApplyCriteria(c)

	rent := int64(250000)
	published := now.Add(-time.Hour)
	return match.Pair{
		Alert: alert,
		Listing: listingdomain.Listing{
			ID:           "prop-9",
			Title:        "Brasserie aan het IJ",
			Slug:         "brasserie-aan-het-ij",
			City:         "Amsterdam",
			PropertyType: "RESTAURANT",
			Status:       listingdomain.StatusActive,
			PriceType:    listingdomain.PriceTypeRent,
			RentPrice:    &rent,
			PublishedAt:  &published,
		},
	}
}

func countEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&matcheventdomain.MatchEvent{}).Count(&count).Error)
	return count
}

func TestDispatchSendsOnce(t *testing.T) {
	provider := &mockEmail{}
	d, db := newTestDispatcher(t, provider)
	pair := testPair(t)

	expected := Payload{
		AlertName:       "Amsterdam onder 3k",
		UserName:        "Daan",
		ListingID:       "prop-9",
		ListingTitle:    "Brasserie aan het IJ",
		ListingCity:     "Amsterdam",
		ListingType:     "RESTAURANT",
		ListingPrice:    "€ 2.500 p/m",
		ListingSlug:     "brasserie-aan-het-ij",
		MatchedCriteria: []string{"city: Amsterdam", "price range"},
		ListingURL:      "https://horeca.example.nl/aanbod/brasserie-aan-het-ij",
		ManageURL:       "https://horeca.example.nl/dashboard/zoekopdrachten",
	}
	provider.On("SendTemplate", mock.Anything, []string{"daan@example.nl"}, "search_alert_match", expected).Return(nil).Once()

	first, err := d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: true}, first)

	second, err := d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: false, Reason: ReasonDuplicate}, second)

	provider.AssertNumberOfCalls(t, "SendTemplate", 1)
	assert.EqualValues(t, 1, countEvents(t, db))

	var event matcheventdomain.MatchEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, snowflake.ID(77), event.AlertID)
	assert.Equal(t, "prop-9", event.PropertyID)
	assert.True(t, event.SentAt.Equal(now))
}

func TestDispatchSendErrorPersistsNothing(t *testing.T) {
	provider := &mockEmail{}
	d, db := newTestDispatcher(t, provider)
	pair := testPair(t)

	provider.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp 451")).Once()
	provider.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	res, err := d.Dispatch(context.Background(), pair)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, Result{Sent: false, Reason: ReasonSendError}, res)
	assert.EqualValues(t, 0, countEvents(t, db))

	// A later run retries the pair.
	res, err = d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.EqualValues(t, 1, countEvents(t, db))
}

func TestDispatchRaceLostStillReportsSent(t *testing.T) {
	provider := &mockEmail{}
	d, db := newTestDispatcher(t, provider)
	pair := testPair(t)

	provider.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			// A concurrent run records the pair while this send is in flight.
			require.NoError(t, db.Create(&matcheventdomain.MatchEvent{ID: 1, AlertID: 77, PropertyID: "prop-9", SentAt: now}).Error)
		}).
		Return(nil).Once()

	res, err := d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: true}, res)
	assert.EqualValues(t, 1, countEvents(t, db))
}

func TestDispatchMissingRecipient(t *testing.T) {
	provider := &mockEmail{}
	d, db := newTestDispatcher(t, provider)
	pair := testPair(t)
	pair.Alert.UserID = 404

	_, err := d.Dispatch(context.Background(), pair)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
	provider.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.EqualValues(t, 0, countEvents(t, db))
}

func TestDispatchStampsScanStart(t *testing.T) {
	provider := &mockEmail{}
	d, db := newTestDispatcher(t, provider)
	pair := testPair(t)
	pair.ScannedAt = now.Add(-90 * time.Second)
	provider.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	res, err := d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.True(t, res.Sent)

	var event matcheventdomain.MatchEvent
	require.NoError(t, db.First(&event).Error)
	assert.True(t, event.SentAt.Equal(pair.ScannedAt), "sent_at %s", event.SentAt)
}

func TestDispatchHeldPair(t *testing.T) {
	provider := &mockEmail{}
	d, db := newTestDispatcher(t, provider)
	pair := testPair(t)
	pair.Held = true

	res, err := d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: false, Reason: ReasonHeld}, res)
	provider.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.EqualValues(t, 0, countEvents(t, db))

	// A held pair that already went out is still reported as a duplicate.
	require.NoError(t, matcheventrepository.Provide().Insert(context.Background(), db, &matcheventdomain.MatchEvent{
		ID: 1, AlertID: pair.Alert.ID, PropertyID: pair.Listing.ID, SentAt: now,
	}))
	res, err = d.Dispatch(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: false, Reason: ReasonDuplicate}, res)
}
