package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/orders"
	"github.com/menuforge/menuforge/pkg/tenants"
)

// PublicHandlers serves the unauthenticated customer-facing endpoints:
// the menu page, order placement, and order tracking.
type PublicHandlers struct {
	tenants *tenants.Service
	menus   *menu.Service
	orders  *orders.Service
	logger  *observability.Logger
}

// NewPublicHandlers creates the public endpoints
func NewPublicHandlers(tenantSvc *tenants.Service, menus *menu.Service, orderSvc *orders.Service, logger *observability.Logger) *PublicHandlers {
	return &PublicHandlers{tenants: tenantSvc, menus: menus, orders: orderSvc, logger: logger}
}

// RegisterRoutes registers the public endpoints
func (h *PublicHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/r/{slug}/menu", h.GetMenu).Methods("GET")
	router.HandleFunc("/r/{slug}/orders", h.PlaceOrder).Methods("POST")
	router.HandleFunc("/r/{slug}/orders/{reference}", h.TrackOrder).Methods("GET")
}

func (h *PublicHandlers) resolveTenant(w http.ResponseWriter, r *http.Request) (*tenants.Restaurant, bool) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return nil, false
	}
	restaurant, err := h.tenants.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, tenants.ErrRestaurantNotFound) {
			httputil.WriteNotFound(w, "restaurant not found")
		} else {
			h.logger.WithError(err).Error("failed to resolve restaurant")
			httputil.WriteInternalError(w, "failed to resolve restaurant")
		}
		return nil, false
	}
	return restaurant, true
}

// GetMenu returns the public menu for a restaurant
func (h *PublicHandlers) GetMenu(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	publicMenu, err := h.menus.PublicMenu(r.Context(), restaurant.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to assemble public menu")
		httputil.WriteInternalError(w, "failed to load menu")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"restaurant": restaurant,
		"menu":       publicMenu,
	})
}

// PlaceOrder accepts a customer order against the live menu
func (h *PublicHandlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	var req orders.PlaceOrderRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	order, err := h.orders.Place(r.Context(), restaurant.ID, &req)
	if err != nil {
		var verr *menu.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.WriteDetailedError(w, http.StatusBadRequest, "invalid order", map[string]string{verr.Field: verr.Message})
		case errors.Is(err, menu.ErrItemNotFound):
			httputil.WriteBadRequest(w, "order references an unknown item")
		default:
			h.logger.WithError(err).Error("failed to place order")
			httputil.WriteInternalError(w, "failed to place order")
		}
		return
	}

	httputil.WriteCreated(w, order)
}

// TrackOrder returns an order's current state by its reference
func (h *PublicHandlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	reference, ok := httputil.ParsePathStringOrError(w, r, "reference")
	if !ok {
		return
	}

	order, err := h.orders.Track(r.Context(), restaurant.ID, reference)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			httputil.WriteNotFound(w, "order not found")
		} else {
			h.logger.WithError(err).Error("failed to track order")
			httputil.WriteInternalError(w, "failed to load order")
		}
		return
	}
	httputil.WriteSuccess(w, order)
}
