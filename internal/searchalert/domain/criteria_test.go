package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestNewCriteriaRejectsInvertedRanges(t *testing.T) {
	_, err := NewCriteria(nil, nil, nil, ptr(300000), ptr(200000), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPriceRange)

	_, err = NewCriteria(nil, nil, nil, nil, nil, ptr(150), ptr(100))
	assert.ErrorIs(t, err, ErrInvalidSurfaceRange)

	_, err = NewCriteria(nil, nil, nil, ptr(-1), nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPriceRange)
}

func TestNewCriteriaAcceptsEqualBounds(t *testing.T) {
	c, err := NewCriteria(nil, nil, nil, ptr(250000), ptr(250000), ptr(80), ptr(80))
	require.NoError(t, err)
	assert.Equal(t, int64(250000), *c.PriceMin)
	assert.Equal(t, int64(80), *c.SurfaceMax)
}

func TestNewCriteriaNormalizesLists(t *testing.T) {
	c, err := NewCriteria(
		[]string{" Amsterdam ", "", "Amsterdam", "Utrecht"},
		[]string{"Noord-Holland"},
		[]PropertyType{"restaurant", "RESTAURANT", " cafe"},
		nil, nil, nil, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amsterdam", "Utrecht"}, c.Cities)
	assert.Equal(t, []PropertyType{PropertyTypeRestaurant, PropertyTypeCafe}, c.PropertyTypes)
	assert.False(t, c.IsEmpty())
}

func TestNewCriteriaKeepsCityCase(t *testing.T) {
	c, err := NewCriteria([]string{"amsterdam"}, nil, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"amsterdam"}, c.Cities)
}

func TestNewCriteriaRejectsUnknownPropertyType(t *testing.T) {
	_, err := NewCriteria(nil, nil, []PropertyType{"CASINO"}, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPropertyType)
}

func TestNewCriteriaCopiesBounds(t *testing.T) {
	min := ptr(100)
	c, err := NewCriteria(nil, nil, nil, min, nil, nil, nil)
	require.NoError(t, err)
	*min = 999
	assert.Equal(t, int64(100), *c.PriceMin)
}

func TestEmptyCriteria(t *testing.T) {
	c, err := NewCriteria(nil, nil, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.False(t, c.HasPriceBounds())
	assert.False(t, c.HasSurfaceBounds())
}

func TestFrequencyWindow(t *testing.T) {
	assert.Equal(t, time.Duration(0), FrequencyInstant.Window())
	assert.Equal(t, 24*time.Hour, FrequencyDaily.Window())
	assert.Equal(t, 7*24*time.Hour, FrequencyWeekly.Window())
	assert.False(t, Frequency("HOURLY").Valid())
}

func TestSearchAlertCriteriaRoundTrip(t *testing.T) {
	c, err := NewCriteria([]string{"Amsterdam"}, nil, []PropertyType{PropertyTypeBar}, nil, ptr(300000), ptr(50), nil)
	require.NoError(t, err)

	var alert SearchAlert
	alert.ApplyCriteria(c)
	assert.Equal(t, c, alert.Criteria())
}

func TestSearchAlertEmptyCriteriaRoundTrip(t *testing.T) {
	c, err := NewCriteria(nil, nil, nil, nil, nil, nil, nil)
	require.NoError(t, err)

	var alert SearchAlert
	alert.ApplyCriteria(c)
	got := alert.Criteria()
	assert.Equal(t, c, got)
	assert.NotNil(t, got.Cities)
	assert.NotNil(t, got.Provinces)
	assert.NotNil(t, got.PropertyTypes)
}
