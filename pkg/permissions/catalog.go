// Package permissions defines the static permission catalog, the role tiers,
// and the resolver that derives a user's effective permission set.
package permissions

import "strings"

// Permission is a named fine-grained capability string scoped to a feature
// area, written as "<area>:<capability>".
type Permission string

// Menu management permissions
const (
	PermMenuView       Permission = "menu:view"
	PermMenuEdit       Permission = "menu:edit"
	PermMenuCategories Permission = "menu:categories"
	PermMenuSpecials   Permission = "menu:specials"
)

// Restaurant configuration permissions
const (
	PermRestaurantView   Permission = "restaurant:view"
	PermRestaurantEdit   Permission = "restaurant:edit"
	PermRestaurantDesign Permission = "restaurant:design"
)

// Order management permissions
const (
	PermOrdersView   Permission = "orders:view"
	PermOrdersManage Permission = "orders:manage"
)

// Service (kitchen/waiter) permissions
const (
	PermServicesKitchen Permission = "services:kitchen"
	PermServicesWaiter  Permission = "services:waiter"
)

// Account self-service permissions
const (
	PermAccountView Permission = "account:view"
	PermAccountEdit Permission = "account:edit"
)

// Administrative permissions
const (
	PermAdminUsers       Permission = "admin:users"
	PermAdminPermissions Permission = "admin:permissions"
	PermAdminAnalytics   Permission = "admin:analytics"
)

// AdminPrefix marks catalog entries reserved for the admin role
const AdminPrefix = "admin:"

// catalog is the seeded, immutable permission catalog
var catalog = []Permission{
	PermMenuView,
	PermMenuEdit,
	PermMenuCategories,
	PermMenuSpecials,
	PermRestaurantView,
	PermRestaurantEdit,
	PermRestaurantDesign,
	PermOrdersView,
	PermOrdersManage,
	PermServicesKitchen,
	PermServicesWaiter,
	PermAccountView,
	PermAccountEdit,
	PermAdminUsers,
	PermAdminPermissions,
	PermAdminAnalytics,
}

// Catalog returns the full permission catalog. The returned slice is a copy.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// Area returns the feature area of a permission ("menu" for "menu:edit")
func (p Permission) Area() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// IsAdminOnly reports whether the permission is reserved for the admin role
func (p Permission) IsAdminOnly() bool {
	return strings.HasPrefix(string(p), AdminPrefix)
}

// InCatalog reports whether the permission is a seeded catalog entry
func InCatalog(p Permission) bool {
	for _, c := range catalog {
		if c == p {
			return true
		}
	}
	return false
}

// SignupGrants returns the permissions granted explicitly at sign-up.
// A brand-new user has no capabilities beyond account self-service, and
// those must be stored as grant rows rather than implied by the role.
func SignupGrants() []Permission {
	return []Permission{PermAccountView, PermAccountEdit}
}
