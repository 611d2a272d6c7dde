package authz

import (
	"fmt"

	"github.com/menuforge/menuforge/pkg/permissions"
)

// DenialKind classifies why a request was refused
type DenialKind string

const (
	// DenialUnauthenticated means no usable session was present
	DenialUnauthenticated DenialKind = "unauthenticated"
	// DenialMissingPermission means the session lacked a required permission
	DenialMissingPermission DenialKind = "missing_permission"
	// DenialNoRule means no route rule matched and access defaults to deny
	DenialNoRule DenialKind = "no_rule"
)

// AccessDeniedError reports a refused request along with the permission that
// was missing, when one applies.
type AccessDeniedError struct {
	Kind       DenialKind
	Path       string
	Permission permissions.Permission
}

func (e *AccessDeniedError) Error() string {
	switch e.Kind {
	case DenialUnauthenticated:
		return fmt.Sprintf("access denied for %s: authentication required", e.Path)
	case DenialMissingPermission:
		return fmt.Sprintf("access denied for %s: missing permission %s", e.Path, e.Permission)
	default:
		return fmt.Sprintf("access denied for %s: no matching route rule", e.Path)
	}
}
