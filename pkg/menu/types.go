// Package menu manages a restaurant's catalog: categories, dishes, and
// time-bounded specials.
package menu

import (
	"errors"
	"fmt"
	"time"
)

// ErrCategoryNotFound indicates a lookup for a category that does not exist
var ErrCategoryNotFound = errors.New("category not found")

// ErrItemNotFound indicates a lookup for a menu item that does not exist
var ErrItemNotFound = errors.New("menu item not found")

// ErrSpecialNotFound indicates a lookup for a special that does not exist
var ErrSpecialNotFound = errors.New("special not found")

// ValidationError reports a rejected field on a write request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Category groups menu items for display
type Category struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurant_id"`
	Name         string    `json:"name"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Item is one dish on the menu. Prices are integer cents.
type Item struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurant_id"`
	CategoryID   int64     `json:"category_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	ImageURL     string    `json:"image_url,omitempty"`
	Available    bool      `json:"available"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Special is a promotional price valid between two dates inclusive
type Special struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurant_id"`
	ItemID       *int64    `json:"item_id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	StartsOn     time.Time `json:"starts_on"`
	EndsOn       time.Time `json:"ends_on"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActiveAt reports whether the special applies at the given instant
func (s *Special) ActiveAt(t time.Time) bool {
	return !t.Before(s.StartsOn) && !t.After(s.EndsOn)
}

// PublicMenu is the assembled menu served on the public restaurant page
type PublicMenu struct {
	Categories []CategoryWithItems `json:"categories"`
	Specials   []Special           `json:"specials"`
}

// CategoryWithItems pairs a category with its available items
type CategoryWithItems struct {
	Category Category `json:"category"`
	Items    []Item   `json:"items"`
}
