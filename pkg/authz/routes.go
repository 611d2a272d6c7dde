package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menuforge/menuforge/pkg/permissions"
)

// RouteRule binds a URL path prefix to the permissions required to enter it
type RouteRule struct {
	Prefix   string                   `yaml:"prefix"`
	Required []permissions.Permission `yaml:"required"`
}

// RouteTable is an ordered set of route rules. Lookup is longest-prefix:
// a rule for /menu/dishes beats a rule for /menu on /menu/dishes/5.
type RouteTable struct {
	rules []RouteRule
}

// NewRouteTable builds a table from rules, sorting them so the most specific
// prefix is tried first.
func NewRouteTable(rules []RouteRule) (*RouteTable, error) {
	seen := make(map[string]bool, len(rules))
	normalized := make([]RouteRule, 0, len(rules))
	for _, r := range rules {
		prefix := normalizePrefix(r.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("route rule with empty prefix")
		}
		if seen[prefix] {
			return nil, fmt.Errorf("duplicate route rule for prefix %s", prefix)
		}
		seen[prefix] = true
		normalized = append(normalized, RouteRule{Prefix: prefix, Required: r.Required})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return len(normalized[i].Prefix) > len(normalized[j].Prefix)
	})

	return &RouteTable{rules: normalized}, nil
}

// LoadRouteTable reads a YAML route table from disk
func LoadRouteTable(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}

	var doc struct {
		Routes []RouteRule `yaml:"routes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	if len(doc.Routes) == 0 {
		return nil, fmt.Errorf("route table %s defines no routes", path)
	}

	return NewRouteTable(doc.Routes)
}

// DefaultRouteTable returns the compiled-in table covering the dashboard
// surface. Deployments override it with a YAML file.
func DefaultRouteTable() *RouteTable {
	table, err := NewRouteTable([]RouteRule{
		{Prefix: "/dashboard", Required: []permissions.Permission{permissions.PermAccountView}},
		{Prefix: "/dashboard/menu", Required: []permissions.Permission{permissions.PermMenuView}},
		{Prefix: "/dashboard/menu/edit", Required: []permissions.Permission{permissions.PermMenuEdit}},
		{Prefix: "/dashboard/menu/categories", Required: []permissions.Permission{permissions.PermMenuCategories}},
		{Prefix: "/dashboard/menu/specials", Required: []permissions.Permission{permissions.PermMenuSpecials}},
		{Prefix: "/dashboard/restaurant", Required: []permissions.Permission{permissions.PermRestaurantView}},
		{Prefix: "/dashboard/restaurant/edit", Required: []permissions.Permission{permissions.PermRestaurantEdit}},
		{Prefix: "/dashboard/restaurant/design", Required: []permissions.Permission{permissions.PermRestaurantDesign}},
		{Prefix: "/dashboard/orders", Required: []permissions.Permission{permissions.PermOrdersView}},
		{Prefix: "/dashboard/orders/manage", Required: []permissions.Permission{permissions.PermOrdersManage}},
		{Prefix: "/dashboard/kitchen", Required: []permissions.Permission{permissions.PermServicesKitchen}},
		{Prefix: "/dashboard/waiter", Required: []permissions.Permission{permissions.PermServicesWaiter}},
		{Prefix: "/dashboard/account", Required: []permissions.Permission{permissions.PermAccountView}},
		{Prefix: "/dashboard/account/edit", Required: []permissions.Permission{permissions.PermAccountEdit}},
		{Prefix: "/dashboard/admin/users", Required: []permissions.Permission{permissions.PermAdminUsers}},
		{Prefix: "/dashboard/admin/permissions", Required: []permissions.Permission{permissions.PermAdminPermissions}},
		{Prefix: "/dashboard/admin/analytics", Required: []permissions.Permission{permissions.PermAdminAnalytics}},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// Match returns the most specific rule whose prefix covers the path. Prefix
// matching is segment-aware: /menu covers /menu and /menu/dishes but not
// /menus. When no rule matches, access defaults to denied.
func (t *RouteTable) Match(path string) (RouteRule, bool) {
	path = normalizePrefix(path)
	for _, rule := range t.rules {
		if prefixCovers(rule.Prefix, path) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// Rules returns the table contents in lookup order
func (t *RouteTable) Rules() []RouteRule {
	out := make([]RouteRule, len(t.rules))
	copy(out, t.rules)
	return out
}

func normalizePrefix(p string) string {
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func prefixCovers(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
