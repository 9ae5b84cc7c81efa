package service

import (
	"net/url"
	"regexp"
)

const (
	maxWishlistNameLength        = 100
	maxWishlistDescriptionLength = 500
	maxItemNameLength            = 200
	maxItemDescriptionLength     = 1000
	// items.price is NUMERIC(12, 2)
	maxItemPrice                 = 9_999_999_999.99
)

var (
	colorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// validURL reports whether raw is an absolute http or https URL
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
