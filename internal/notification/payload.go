package notification

import (
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
	alertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	userdomain "github.com/smallbiznis/horecaalert/internal/user/domain"
)

// Payload is the data rendered into the match email.
type Payload struct {
	AlertName       string   `json:"alert_name"`
	UserName        string   `json:"user_name"`
	ListingID       string   `json:"listing_id"`
	ListingTitle    string   `json:"listing_title"`
	ListingCity     string   `json:"listing_city"`
	ListingType     string   `json:"listing_type"`
	ListingPrice    string   `json:"listing_price"`
	ListingSlug     string   `json:"listing_slug"`
	MatchedCriteria []string `json:"matched_criteria"`
	ListingURL      string   `json:"listing_url"`
	ManageURL       string   `json:"manage_url"`
}

func (p Payload) Subject() string {
	return "Nieuw aanbod voor \"" + p.AlertName + "\": " + p.ListingTitle
}

// BuildPayload composes the email data for a matched pair.
func BuildPayload(alert alertdomain.SearchAlert, user userdomain.User, listing listingdomain.Listing, urls listingdomain.URLBuilder) Payload {
	return Payload{
		AlertName:       alert.Name,
		UserName:        user.DisplayName(),
		ListingID:       listing.ID,
		ListingTitle:    listing.Title,
		ListingCity:     listing.City,
		ListingType:     listing.PropertyType,
		ListingPrice:    FormatPrice(listing),
		ListingSlug:     listing.PathSlug(),
		MatchedCriteria: match.MatchedCriteria(listing, alert.Criteria()),
		ListingURL:      urls.Listing(listing),
		ManageURL:       urls.ManageAlerts(),
	}
}
