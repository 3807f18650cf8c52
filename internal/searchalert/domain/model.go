package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Frequency string

const (
	FrequencyInstant Frequency = "INSTANT"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
)

// Window is the minimum spacing between two fires of the same alert.
func (f Frequency) Window() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyInstant, FrequencyDaily, FrequencyWeekly:
		return true
	default:
		return false
	}
}

type PropertyType string

const (
	PropertyTypeRestaurant  PropertyType = "RESTAURANT"
	PropertyTypeCafe        PropertyType = "CAFE"
	PropertyTypeBar         PropertyType = "BAR"
	PropertyTypeHotel       PropertyType = "HOTEL"
	PropertyTypeEventVenue  PropertyType = "EVENT_VENUE"
	PropertyTypeLunchroom   PropertyType = "LUNCHROOM"
	PropertyTypeSnackbar    PropertyType = "SNACKBAR"
	PropertyTypeNightclub   PropertyType = "NIGHTCLUB"
	PropertyTypeDarkKitchen PropertyType = "DARK_KITCHEN"
	PropertyTypeOther       PropertyType = "OTHER"
)

var propertyTypes = map[PropertyType]struct{}{
	PropertyTypeRestaurant:  {},
	PropertyTypeCafe:        {},
	PropertyTypeBar:         {},
	PropertyTypeHotel:       {},
	PropertyTypeEventVenue:  {},
	PropertyTypeLunchroom:   {},
	PropertyTypeSnackbar:    {},
	PropertyTypeNightclub:   {},
	PropertyTypeDarkKitchen: {},
	PropertyTypeOther:       {},
}

func (t PropertyType) Valid() bool {
	_, ok := propertyTypes[t]
	return ok
}

// SearchAlert is a user's saved search plus its notification preference.
type SearchAlert struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	UserID        snowflake.ID `gorm:"not null;index"`
	Name          string       `gorm:"type:text;not null"`
	Cities        datatypes.JSONSlice[string]
	Provinces     datatypes.JSONSlice[string]
	PropertyTypes datatypes.JSONSlice[string]
	PriceMin      *int64
	PriceMax      *int64
	SurfaceMin    *int64
	SurfaceMax    *int64
	Frequency     Frequency `gorm:"type:text;not null"`
	Active        bool      `gorm:"not null;default:true;index"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (SearchAlert) TableName() string { return "search_alerts" }

// Criteria returns the alert's criteria without re-validating stored ranges.
func (a SearchAlert) Criteria() Criteria {
	types := make([]PropertyType, 0, len(a.PropertyTypes))
	for _, t := range a.PropertyTypes {
		types = append(types, PropertyType(t))
	}
	return Criteria{
		Cities:        append([]string{}, a.Cities...),
		Provinces:     append([]string{}, a.Provinces...),
		PropertyTypes: types,
		PriceMin:      a.PriceMin,
		PriceMax:      a.PriceMax,
		SurfaceMin:    a.SurfaceMin,
		SurfaceMax:    a.SurfaceMax,
	}
}

// ApplyCriteria copies validated criteria onto the persisted columns.
func (a *SearchAlert) ApplyCriteria(c Criteria) {
	types := make([]string, 0, len(c.PropertyTypes))
	for _, t := range c.PropertyTypes {
		types = append(types, string(t))
	}
	a.Cities = datatypes.NewJSONSlice(append([]string{}, c.Cities...))
	a.Provinces = datatypes.NewJSONSlice(append([]string{}, c.Provinces...))
	a.PropertyTypes = datatypes.NewJSONSlice(types)
	a.PriceMin = c.PriceMin
	a.PriceMax = c.PriceMax
	a.SurfaceMin = c.SurfaceMin
	a.SurfaceMax = c.SurfaceMax
}
