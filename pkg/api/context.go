package api

import (
	"errors"
	"net/http"

	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/contextkeys"
	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/tenants"
	"github.com/menuforge/menuforge/pkg/users"
)

// restaurantFromContext retrieves the restaurant injected by TenantScope
func restaurantFromContext(r *http.Request) (*tenants.Restaurant, bool) {
	restaurant, ok := contextkeys.Value(r.Context(), contextkeys.TenantKey).(*tenants.Restaurant)
	return restaurant, ok
}

// TenantScope resolves the restaurant a dashboard request operates on. An
// owner works on their own restaurant; a staff account works on the
// restaurant of the owner it is attached to. An account with no restaurant
// yet passes through without one so onboarding can create it.
func TenantScope(userSvc *users.Service, tenantSvc *tenants.Service, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := authz.SessionFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			user, err := userSvc.GetByID(r.Context(), session.UserID)
			if err != nil {
				logger.WithError(err).WithField("user_id", session.UserID).
					Error("failed to load user for tenant scope")
				httputil.WriteInternalError(w, "failed to resolve restaurant")
				return
			}

			ownerID := user.ID
			if user.RestaurantOwnerID != nil {
				ownerID = *user.RestaurantOwnerID
			}

			restaurant, err := tenantSvc.GetByOwner(r.Context(), ownerID)
			if err != nil {
				if errors.Is(err, tenants.ErrRestaurantNotFound) {
					next.ServeHTTP(w, r)
					return
				}
				logger.WithError(err).Error("failed to load restaurant for tenant scope")
				httputil.WriteInternalError(w, "failed to resolve restaurant")
				return
			}

			ctx := contextkeys.WithValue(r.Context(), contextkeys.TenantKey, restaurant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
