package domain

import "errors"

var (
	ErrInvalidPriceRange   = errors.New("invalid_price_range")
	ErrInvalidSurfaceRange = errors.New("invalid_surface_range")
	ErrInvalidPropertyType = errors.New("invalid_property_type")
	ErrInvalidFrequency    = errors.New("invalid_frequency")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUserID       = errors.New("invalid_user_id")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrNotFound            = errors.New("not_found")
)
