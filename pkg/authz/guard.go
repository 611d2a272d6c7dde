// Package authz evaluates route access for authenticated sessions. A Guard
// wraps a resolved permission set; the RouteTable maps URL prefixes to the
// permissions they require, with the most specific prefix winning.
package authz

import "github.com/menuforge/menuforge/pkg/permissions"

// Guard answers permission questions for one resolved user
type Guard struct {
	resolution permissions.Resolution
}

// NewGuard creates a guard over a resolved permission set
func NewGuard(res permissions.Resolution) *Guard {
	return &Guard{resolution: res}
}

// IsAdmin reports whether the user holds the admin role
func (g *Guard) IsAdmin() bool {
	return g.resolution.IsAdmin
}

// IsPremium reports whether the user holds premium tier or above
func (g *Guard) IsPremium() bool {
	return g.resolution.IsPremium
}

// HasPermission reports whether the user holds a single permission
func (g *Guard) HasPermission(p permissions.Permission) bool {
	return g.resolution.Permissions.Has(p)
}

// HasAllPermissions reports whether the user holds every listed permission.
// An empty list is vacuously satisfied.
func (g *Guard) HasAllPermissions(perms []permissions.Permission) bool {
	for _, p := range perms {
		if !g.resolution.Permissions.Has(p) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether the user holds at least one listed
// permission. An empty list is never satisfied.
func (g *Guard) HasAnyPermission(perms []permissions.Permission) bool {
	for _, p := range perms {
		if g.resolution.Permissions.Has(p) {
			return true
		}
	}
	return false
}

// Permissions returns the effective permission list in catalog order
func (g *Guard) Permissions() []permissions.Permission {
	return g.resolution.Permissions.List()
}

// Authorize evaluates a path against the route table. Admin and premium
// sessions pass unconditionally; fine-grained route rules exist to gate
// plain users, whose access is entirely grant-driven. Everyone else: look
// up the rule, require all its permissions, deny when no rule matches.
func (g *Guard) Authorize(table *RouteTable, path string) error {
	if g.IsAdmin() || g.IsPremium() {
		return nil
	}
	rule, ok := table.Match(path)
	if !ok {
		return &AccessDeniedError{Kind: DenialNoRule, Path: path}
	}
	for _, p := range rule.Required {
		if !g.HasPermission(p) {
			return &AccessDeniedError{Kind: DenialMissingPermission, Path: path, Permission: p}
		}
	}
	return nil
}
