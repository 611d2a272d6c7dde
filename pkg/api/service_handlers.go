package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/orders"
	"github.com/menuforge/menuforge/pkg/tenants"
)

// WaiterCodeHeader carries the per-restaurant access code for the
// kitchen/waiter endpoints. These endpoints run on shared floor devices
// without user sessions.
const WaiterCodeHeader = "X-Waiter-Code"

// ServiceHandlers serves the kitchen and waiter endpoints, gated by the
// restaurant's waiter code instead of a user session.
type ServiceHandlers struct {
	tenants *tenants.Service
	orders  *orders.Service
	logger  *observability.Logger
}

// NewServiceHandlers creates the kitchen/waiter handlers
func NewServiceHandlers(tenantSvc *tenants.Service, orderSvc *orders.Service, logger *observability.Logger) *ServiceHandlers {
	return &ServiceHandlers{tenants: tenantSvc, orders: orderSvc, logger: logger}
}

// RegisterRoutes registers the service endpoints
func (h *ServiceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/r/{slug}/service/orders", h.ListOpenOrders).Methods("GET")
	router.HandleFunc("/r/{slug}/service/orders/{id}/status", h.UpdateOrderStatus).Methods("POST")
}

func (h *ServiceHandlers) authenticate(w http.ResponseWriter, r *http.Request) (*tenants.Restaurant, bool) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return nil, false
	}
	restaurant, err := h.tenants.VerifyWaiterCode(r.Context(), slug, r.Header.Get(WaiterCodeHeader))
	if err != nil {
		switch {
		case errors.Is(err, tenants.ErrRestaurantNotFound):
			httputil.WriteNotFound(w, "restaurant not found")
		case errors.Is(err, tenants.ErrInvalidWaiterCode):
			httputil.WriteUnauthorized(w, "invalid waiter code")
		default:
			h.logger.WithError(err).Error("failed to verify waiter code")
			httputil.WriteInternalError(w, "failed to verify waiter code")
		}
		return nil, false
	}
	return restaurant, true
}

// ListOpenOrders returns the orders still moving through the kitchen
func (h *ServiceHandlers) ListOpenOrders(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	open, err := h.orders.ListOpen(r.Context(), restaurant.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list open orders")
		httputil.WriteInternalError(w, "failed to list orders")
		return
	}
	httputil.WriteSuccess(w, open)
}

// UpdateOrderStatus moves an order to the requested status
func (h *ServiceHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	orderID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	order, err := h.orders.Transition(r.Context(), restaurant.ID, orderID, status)
	if err != nil {
		var terr *orders.InvalidTransitionError
		switch {
		case errors.As(err, &terr):
			httputil.WriteConflict(w, terr.Error())
		case errors.Is(err, orders.ErrOrderNotFound):
			httputil.WriteNotFound(w, "order not found")
		default:
			h.logger.WithError(err).Error("failed to update order status")
			httputil.WriteInternalError(w, "failed to update order")
		}
		return
	}
	httputil.WriteSuccess(w, order)
}
