package authz

import "github.com/menuforge/menuforge/pkg/permissions"

// NavItem is one dashboard navigation entry. An item is shown when the user
// holds any of its listed permissions, so the sidebar mirrors the same
// permission predicates that gate the routes it links to.
type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`

	// Any lists the permissions that each individually unlock the item
	Any []permissions.Permission `json:"-"`
}

// DefaultNav returns the dashboard navigation in display order
func DefaultNav() []NavItem {
	return []NavItem{
		{Label: "Menu", Path: "/dashboard/menu", Any: []permissions.Permission{
			permissions.PermMenuView, permissions.PermMenuEdit,
		}},
		{Label: "Categories", Path: "/dashboard/menu/categories", Any: []permissions.Permission{
			permissions.PermMenuCategories,
		}},
		{Label: "Specials", Path: "/dashboard/menu/specials", Any: []permissions.Permission{
			permissions.PermMenuSpecials,
		}},
		{Label: "Orders", Path: "/dashboard/orders", Any: []permissions.Permission{
			permissions.PermOrdersView, permissions.PermOrdersManage,
		}},
		{Label: "Kitchen", Path: "/dashboard/kitchen", Any: []permissions.Permission{
			permissions.PermServicesKitchen,
		}},
		{Label: "Waiter", Path: "/dashboard/waiter", Any: []permissions.Permission{
			permissions.PermServicesWaiter,
		}},
		{Label: "Restaurant", Path: "/dashboard/restaurant", Any: []permissions.Permission{
			permissions.PermRestaurantView, permissions.PermRestaurantEdit, permissions.PermRestaurantDesign,
		}},
		{Label: "Account", Path: "/dashboard/account", Any: []permissions.Permission{
			permissions.PermAccountView, permissions.PermAccountEdit,
		}},
		{Label: "Users", Path: "/dashboard/admin/users", Any: []permissions.Permission{
			permissions.PermAdminUsers,
		}},
		{Label: "Permissions", Path: "/dashboard/admin/permissions", Any: []permissions.Permission{
			permissions.PermAdminPermissions,
		}},
		{Label: "Analytics", Path: "/dashboard/admin/analytics", Any: []permissions.Permission{
			permissions.PermAdminAnalytics,
		}},
	}
}

// FilterNav returns the items the guard's permission set unlocks, preserving
// display order. Unlike route authorization there is no tier bypass here:
// admin and premium see every item anyway because their resolved catalogs
// satisfy the predicates.
func (g *Guard) FilterNav(items []NavItem) []NavItem {
	out := make([]NavItem, 0, len(items))
	for _, item := range items {
		if g.HasAnyPermission(item.Any) {
			out = append(out, item)
		}
	}
	return out
}
