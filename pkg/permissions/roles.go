package permissions

import (
	"encoding/json"
	"fmt"
)

// Role is a coarse-grained subscription tier. Roles are ordered: user <
// premium < admin, and the numeric rank is the single place tier
// comparisons happen.
type Role int

const (
	RoleUser Role = iota
	RolePremium
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:    "user",
	RolePremium: "premium",
	RoleAdmin:   "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "user"
}

// Rank returns the numeric rank for tier comparisons
func (r Role) Rank() int {
	return int(r)
}

// AtLeast reports whether the role ranks at or above another role
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// ParseRole parses a stored role string
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "premium":
		return RolePremium, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleUser, fmt.Errorf("unknown role: %q", s)
}

// MarshalJSON encodes the role as its string name
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role from its string name
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
