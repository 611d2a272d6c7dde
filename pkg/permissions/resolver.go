package permissions

// Set is a set of permissions keyed by name
type Set map[Permission]struct{}

// Has reports whether the set contains a permission
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts a permission into the set
func (s Set) Add(p Permission) {
	s[p] = struct{}{}
}

// List returns the set contents in catalog order; grants outside the
// catalog are appended afterwards.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for _, p := range catalog {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	for p := range s {
		if !InCatalog(p) {
			out = append(out, p)
		}
	}
	return out
}

// Resolution is a user's resolved authorization state
type Resolution struct {
	Permissions Set
	IsAdmin     bool
	IsPremium   bool
}

// Resolve derives the effective permission set from a role and the user's
// explicitly granted rows. The role is authoritative: admin implies the
// full catalog and premium implies everything non-admin even when no grant
// rows exist. Grant rows are the whole story for plain users and are
// unioned in for every tier.
func Resolve(role Role, granted []Permission) Resolution {
	res := Resolution{
		Permissions: make(Set),
		IsAdmin:     role == RoleAdmin,
		IsPremium:   role.AtLeast(RolePremium),
	}

	switch role {
	case RoleAdmin:
		for _, p := range catalog {
			res.Permissions.Add(p)
		}
	case RolePremium:
		for _, p := range catalog {
			if !p.IsAdminOnly() {
				res.Permissions.Add(p)
			}
		}
	}

	for _, p := range granted {
		res.Permissions.Add(p)
	}

	return res
}
