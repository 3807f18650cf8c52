package notification

import (
	"strconv"
	"strings"

	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
)

const priceOnRequest = "Prijs op aanvraag"

// FormatPrice renders the comparison price the Dutch way, e.g. "€ 2.500 p/m"
// for rent and "€ 500.000 k.k." for sale.
func FormatPrice(l listingdomain.Listing) string {
	cents, ok := match.ComparisonPrice(l)
	if !ok {
		return priceOnRequest
	}

	suffix := "k.k."
	switch l.PriceType {
	case listingdomain.PriceTypeRent:
		suffix = "p/m"
	case listingdomain.PriceTypeRentOrSale:
		if l.RentPrice != nil {
			suffix = "p/m"
		}
	}
	return FormatEuroCents(cents) + " " + suffix
}

// FormatEuroCents formats integer cents with '.' thousand separators and a
// ',' decimal part only when the amount has cents.
func FormatEuroCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	euros := cents / 100
	rest := cents % 100

	out := "€ " + sign + groupThousands(strconv.FormatInt(euros, 10))
	if rest != 0 {
		out += "," + leftPad2(rest)
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func leftPad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
