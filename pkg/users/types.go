// Package users manages user accounts, their subscription role, and the
// explicit permission grant rows that the resolver unions with role defaults.
package users

import (
	"time"

	"github.com/menuforge/menuforge/pkg/permissions"
)

// User represents a registered account
type User struct {
	ID               int64            `json:"id"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Role             permissions.Role `json:"role"`
	StripeCustomerID *string          `json:"stripe_customer_id,omitempty"`
	// RestaurantOwnerID links a staff account to the owner whose restaurant
	// it works for. Owners have this unset.
	RestaurantOwnerID *int64    `json:"restaurant_owner_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsStaff reports whether the account belongs to another owner's restaurant
func (u *User) IsStaff() bool {
	return u.RestaurantOwnerID != nil
}

// Grant is one explicit permission row for a user
type Grant struct {
	UserID     int64                  `json:"user_id"`
	Permission permissions.Permission `json:"permission"`
	GrantedBy  *int64                 `json:"granted_by,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
