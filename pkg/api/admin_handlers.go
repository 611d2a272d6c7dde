package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/permissions"
	"github.com/menuforge/menuforge/pkg/users"
)

// AdminHandlers serves user and permission administration. Routes are
// additionally guarded by the admin route rules, so only accounts holding
// the admin:users / admin:permissions permissions reach these handlers.
type AdminHandlers struct {
	users  *users.Service
	logger *observability.Logger
}

// NewAdminHandlers creates the administration handlers
func NewAdminHandlers(userSvc *users.Service, logger *observability.Logger) *AdminHandlers {
	return &AdminHandlers{users: userSvc, logger: logger}
}

// RegisterRoutes registers the administration endpoints
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/users", h.ListUsers).Methods("GET")
	router.HandleFunc("/admin/users/{id}/role", h.ChangeRole).Methods("PUT")
	router.HandleFunc("/admin/users/{id}/permissions", h.ListPermissions).Methods("GET")
	router.HandleFunc("/admin/users/{id}/permissions", h.GrantPermission).Methods("POST")
	router.HandleFunc("/admin/users/{id}/permissions/{permission}", h.RevokePermission).Methods("DELETE")
	router.HandleFunc("/admin/permissions", h.Catalog).Methods("GET")
	router.HandleFunc("/restaurant/staff", h.ListStaff).Methods("GET")
}

// ListUsers returns every account
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	all, err := h.users.Store().ListUsers(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list users")
		httputil.WriteInternalError(w, "failed to list users")
		return
	}
	httputil.WriteSuccess(w, all)
}

// ChangeRole updates a user's role tier
func (h *AdminHandlers) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := permissions.ParseRole(req.Role)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.users.ChangeRole(r.Context(), userID, role); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		h.logger.WithError(err).Error("failed to change role")
		httputil.WriteInternalError(w, "failed to change role")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"role": role.String()})
}

// ListPermissions returns a user's explicit grant rows
func (h *AdminHandlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	granted, err := h.users.Store().GetGrantedPermissions(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list grants")
		httputil.WriteInternalError(w, "failed to list permissions")
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"granted": granted})
}

// GrantPermission adds an explicit permission grant to a user
func (h *AdminHandlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Permission string `json:"permission"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var grantedBy *int64
	if session, ok := authz.SessionFromContext(r.Context()); ok {
		grantedBy = &session.UserID
	}

	if err := h.users.Grant(r.Context(), userID, permissions.Permission(req.Permission), grantedBy); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteCreated(w, map[string]string{"permission": req.Permission})
}

// RevokePermission removes an explicit permission grant from a user
func (h *AdminHandlers) RevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	perm, ok := httputil.ParsePathStringOrError(w, r, "permission")
	if !ok {
		return
	}
	if err := h.users.Revoke(r.Context(), userID, permissions.Permission(perm)); err != nil {
		h.logger.WithError(err).Error("failed to revoke permission")
		httputil.WriteInternalError(w, "failed to revoke permission")
		return
	}
	httputil.WriteNoContent(w)
}

// Catalog returns the seeded permission catalog
func (h *AdminHandlers) Catalog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{"permissions": permissions.Catalog()})
}

// ListStaff returns the staff accounts attached to the caller's restaurant
func (h *AdminHandlers) ListStaff(w http.ResponseWriter, r *http.Request) {
	session, ok := authz.SessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	staff, err := h.users.ListStaff(r.Context(), session.UserID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list staff")
		httputil.WriteInternalError(w, "failed to list staff")
		return
	}
	httputil.WriteSuccess(w, staff)
}
