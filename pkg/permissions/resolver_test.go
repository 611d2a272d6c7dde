package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAdminGetsFullCatalog(t *testing.T) {
	res := Resolve(RoleAdmin, nil)

	assert.True(t, res.IsAdmin)
	assert.True(t, res.IsPremium)
	for _, p := range Catalog() {
		assert.True(t, res.Permissions.Has(p), "admin missing %s", p)
	}
	assert.Len(t, res.Permissions, len(Catalog()))
}

func TestResolvePremiumExcludesAdminArea(t *testing.T) {
	res := Resolve(RolePremium, nil)

	assert.False(t, res.IsAdmin)
	assert.True(t, res.IsPremium)
	for _, p := range Catalog() {
		if p.IsAdminOnly() {
			assert.False(t, res.Permissions.Has(p), "premium should not have %s", p)
		} else {
			assert.True(t, res.Permissions.Has(p), "premium missing %s", p)
		}
	}
}

func TestResolveUserWithoutGrantsHasNothing(t *testing.T) {
	res := Resolve(RoleUser, nil)

	assert.False(t, res.IsAdmin)
	assert.False(t, res.IsPremium)
	assert.Empty(t, res.Permissions)
	for _, p := range Catalog() {
		assert.False(t, res.Permissions.Has(p))
	}
}

func TestResolveUserGetsOnlyGrantedRows(t *testing.T) {
	res := Resolve(RoleUser, []Permission{PermAccountView, PermMenuView})

	assert.True(t, res.Permissions.Has(PermAccountView))
	assert.True(t, res.Permissions.Has(PermMenuView))
	assert.False(t, res.Permissions.Has(PermMenuEdit))
	assert.Len(t, res.Permissions, 2)
}

func TestResolveRoleIsAuthoritativeOverMissingRows(t *testing.T) {
	// An admin with zero grant rows still resolves to the full catalog.
	res := Resolve(RoleAdmin, []Permission{})
	assert.Len(t, res.Permissions, len(Catalog()))
}

func TestResolveUnionsExplicitGrants(t *testing.T) {
	res := Resolve(RolePremium, []Permission{PermAdminAnalytics})
	assert.True(t, res.Permissions.Has(PermAdminAnalytics))
}

func TestSetListOrderFollowsCatalog(t *testing.T) {
	res := Resolve(RoleUser, []Permission{PermOrdersView, PermMenuView})
	list := res.Permissions.List()

	assert.Equal(t, []Permission{PermMenuView, PermOrdersView}, list)
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RolePremium))
	assert.True(t, RolePremium.AtLeast(RoleUser))
	assert.False(t, RoleUser.AtLeast(RolePremium))
	assert.True(t, RolePremium.AtLeast(RolePremium))
}

func TestParseRole(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"premium", RolePremium},
		{"admin", RoleAdmin},
	} {
		got, err := ParseRole(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
}

func TestPermissionArea(t *testing.T) {
	assert.Equal(t, "menu", PermMenuEdit.Area())
	assert.Equal(t, "admin", PermAdminUsers.Area())
	assert.True(t, PermAdminUsers.IsAdminOnly())
	assert.False(t, PermMenuEdit.IsAdminOnly())
}

func TestSignupGrantsAreCatalogEntries(t *testing.T) {
	grants := SignupGrants()
	assert.NotEmpty(t, grants)
	for _, p := range grants {
		assert.True(t, InCatalog(p))
		assert.Equal(t, "account", p.Area())
	}
}
