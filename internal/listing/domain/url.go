package domain

import (
	"net/url"
	"strings"

	"github.com/gosimple/slug"
)

const (
	manageAlertsPath = "/dashboard/zoekopdrachten"
	slugLang         = "nl"
)

// PathSlug is the listing's URL segment. Listings without a stored slug get
// one derived from the title and id so links stay unique.
func (l Listing) PathSlug() string {
	if s := strings.TrimSpace(l.Slug); s != "" {
		return s
	}
	base := slug.MakeLang(l.Title, slugLang)
	if base == "" {
		return url.PathEscape(l.ID)
	}
	return base + "-" + slug.MakeLang(l.ID, slugLang)
}

// URLBuilder renders absolute links into the public site.
type URLBuilder struct {
	BaseURL string
}

func NewURLBuilder(baseURL string) URLBuilder {
	return URLBuilder{BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (b URLBuilder) Listing(l Listing) string {
	return b.BaseURL + "/aanbod/" + l.PathSlug()
}

func (b URLBuilder) ManageAlerts() string {
	return b.BaseURL + manageAlertsPath
}
