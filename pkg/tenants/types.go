// Package tenants manages per-restaurant configuration. Each owner account
// has exactly one restaurant, addressed publicly by its slug.
package tenants

import (
	"errors"
	"regexp"
	"time"
)

// ErrRestaurantNotFound indicates a lookup for a restaurant that does not exist
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrInvalidWaiterCode indicates a rejected service-endpoint access code
var ErrInvalidWaiterCode = errors.New("invalid waiter code")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Restaurant is the tenant configuration for one owner's restaurant
type Restaurant struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	// Theme selects the public menu page design
	Theme    string `json:"theme"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LogoURL  string `json:"logo_url,omitempty"`
	Currency string `json:"currency"`
	// WaiterCode gates the kitchen and waiter service endpoints for devices
	// that do not carry a dashboard session. Never rendered to the public.
	WaiterCode string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidSlug reports whether a slug is well-formed: lowercase alphanumeric
// segments joined by single hyphens.
func ValidSlug(slug string) bool {
	return len(slug) >= 2 && len(slug) <= 64 && slugPattern.MatchString(slug)
}
