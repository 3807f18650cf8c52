// Package match decides whether a listing satisfies a search alert's criteria.
// Everything here is pure: no clock, no storage.
package match

import (
	"fmt"
	"time"

	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	alertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
)

// Pair is one alert that matched one listing.
type Pair struct {
	Alert   alertdomain.SearchAlert
	Listing listingdomain.Listing
	// ScannedAt is the scan start of the run that produced the pair. It is
	// stored as the send time so the next run measures its window from the
	// same point in the schedule.
	ScannedAt time.Time
	// Held is set when the alert is still inside its frequency window. A held
	// pair is reported but not notified.
	Held bool
}

// Matches reports whether the listing is live and satisfies every set criterion.
func Matches(l listingdomain.Listing, c alertdomain.Criteria) bool {
	if !l.IsLive() {
		return false
	}
	if len(c.Cities) > 0 && !contains(c.Cities, l.City) {
		return false
	}
	if len(c.Provinces) > 0 && !contains(c.Provinces, l.Province) {
		return false
	}
	if len(c.PropertyTypes) > 0 && !containsType(c.PropertyTypes, l.PropertyType) {
		return false
	}
	if c.HasPriceBounds() {
		price, ok := ComparisonPrice(l)
		if !ok || !within(price, c.PriceMin, c.PriceMax) {
			return false
		}
	}
	if c.HasSurfaceBounds() {
		if l.SurfaceTotal == nil || !within(*l.SurfaceTotal, c.SurfaceMin, c.SurfaceMax) {
			return false
		}
	}
	return true
}

// ComparisonPrice picks the price a listing is filtered on. RENT_OR_SALE
// listings use the rent price and fall back to the sale price.
func ComparisonPrice(l listingdomain.Listing) (int64, bool) {
	var price *int64
	switch l.PriceType {
	case listingdomain.PriceTypeRent:
		price = l.RentPrice
	case listingdomain.PriceTypeSale:
		price = l.SalePrice
	case listingdomain.PriceTypeRentOrSale:
		price = l.RentPrice
		if price == nil {
			price = l.SalePrice
		}
	}
	if price == nil {
		return 0, false
	}
	return *price, true
}

// MatchedCriteria describes, for display, which set criteria the listing met.
// It assumes Matches already returned true.
func MatchedCriteria(l listingdomain.Listing, c alertdomain.Criteria) []string {
	var out []string
	if len(c.Cities) > 0 {
		out = append(out, "city: "+l.City)
	}
	if len(c.Provinces) > 0 {
		out = append(out, "province: "+l.Province)
	}
	if len(c.PropertyTypes) > 0 {
		out = append(out, "type: "+l.PropertyType)
	}
	if c.HasPriceBounds() {
		out = append(out, "price range")
	}
	if c.HasSurfaceBounds() && l.SurfaceTotal != nil {
		out = append(out, fmt.Sprintf("surface: %d m²", *l.SurfaceTotal))
	}
	return out
}

func within(v int64, min, max *int64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsType(values []alertdomain.PropertyType, v string) bool {
	for _, candidate := range values {
		if string(candidate) == v {
			return true
		}
	}
	return false
}
