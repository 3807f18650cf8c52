package domain

import (
	"strings"
)

// Criteria is the typed, validated filter set of a search alert.
// Empty lists and nil bounds match anything.
type Criteria struct {
	Cities        []string
	Provinces     []string
	PropertyTypes []PropertyType
	PriceMin      *int64
	PriceMax      *int64
	SurfaceMin    *int64
	SurfaceMax    *int64
}

// NewCriteria normalizes list entries and rejects invalid ranges or type tags.
func NewCriteria(
	cities, provinces []string,
	propertyTypes []PropertyType,
	priceMin, priceMax, surfaceMin, surfaceMax *int64,
) (Criteria, error) {
	if err := validateRange(priceMin, priceMax, ErrInvalidPriceRange); err != nil {
		return Criteria{}, err
	}
	if err := validateRange(surfaceMin, surfaceMax, ErrInvalidSurfaceRange); err != nil {
		return Criteria{}, err
	}

	types := make([]PropertyType, 0, len(propertyTypes))
	seen := make(map[PropertyType]struct{}, len(propertyTypes))
	for _, t := range propertyTypes {
		t = PropertyType(strings.ToUpper(strings.TrimSpace(string(t))))
		if !t.Valid() {
			return Criteria{}, ErrInvalidPropertyType
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}

	return Criteria{
		Cities:        normalizeNames(cities),
		Provinces:     normalizeNames(provinces),
		PropertyTypes: types,
		PriceMin:      copyBound(priceMin),
		PriceMax:      copyBound(priceMax),
		SurfaceMin:    copyBound(surfaceMin),
		SurfaceMax:    copyBound(surfaceMax),
	}, nil
}

// IsEmpty reports whether no field constrains the match.
func (c Criteria) IsEmpty() bool {
	return len(c.Cities) == 0 &&
		len(c.Provinces) == 0 &&
		len(c.PropertyTypes) == 0 &&
		c.PriceMin == nil && c.PriceMax == nil &&
		c.SurfaceMin == nil && c.SurfaceMax == nil
}

func (c Criteria) HasPriceBounds() bool {
	return c.PriceMin != nil || c.PriceMax != nil
}

func (c Criteria) HasSurfaceBounds() bool {
	return c.SurfaceMin != nil || c.SurfaceMax != nil
}

func validateRange(min, max *int64, rangeErr error) error {
	if min != nil && *min < 0 {
		return rangeErr
	}
	if max != nil && *max < 0 {
		return rangeErr
	}
	if min != nil && max != nil && *min > *max {
		return rangeErr
	}
	return nil
}

// Names are compared case-sensitively at match time, so only whitespace is trimmed.
func normalizeNames(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func copyBound(v *int64) *int64 {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}
