package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/billing"
	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/storage/images"
	"github.com/menuforge/menuforge/pkg/tenants"
	"github.com/menuforge/menuforge/pkg/users"
)

const maxLogoSize = 5 << 20

// RestaurantHandlers serves restaurant configuration and the account's
// subscription history.
type RestaurantHandlers struct {
	tenants *tenants.Service
	users   *users.Service
	billing *billing.Store
	images  *images.Store
	logger  *observability.Logger
}

// NewRestaurantHandlers creates the restaurant configuration handlers.
// The image store is optional; without it logo uploads are rejected.
func NewRestaurantHandlers(tenantSvc *tenants.Service, userSvc *users.Service, billingStore *billing.Store, imageStore *images.Store, logger *observability.Logger) *RestaurantHandlers {
	return &RestaurantHandlers{
		tenants: tenantSvc,
		users:   userSvc,
		billing: billingStore,
		images:  imageStore,
		logger:  logger,
	}
}

// RegisterRoutes registers the restaurant configuration endpoints
func (h *RestaurantHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/restaurant", h.GetRestaurant).Methods("GET")
	router.HandleFunc("/restaurant", h.CreateRestaurant).Methods("POST")
	router.HandleFunc("/restaurant", h.UpdateRestaurant).Methods("PUT")
	router.HandleFunc("/restaurant/logo", h.UploadLogo).Methods("POST")
	router.HandleFunc("/account/subscriptions", h.ListSubscriptions).Methods("GET")
}

// GetRestaurant returns the restaurant in scope, including the waiter code
// so the owner can hand it to floor staff.
func (h *RestaurantHandlers) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"restaurant":  restaurant,
		"waiter_code": restaurant.WaiterCode,
	})
}

// CreateRestaurant onboards the caller's restaurant. One per owner; staff
// accounts cannot create restaurants of their own.
func (h *RestaurantHandlers) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	session, ok := authz.SessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if _, exists := restaurantFromContext(r); exists {
		httputil.WriteConflict(w, "restaurant already exists")
		return
	}

	user, err := h.users.GetByID(r.Context(), session.UserID)
	if err != nil {
		h.logger.WithError(err).Error("failed to load user for onboarding")
		httputil.WriteInternalError(w, "failed to create restaurant")
		return
	}
	if user.IsStaff() {
		httputil.WriteForbidden(w, "staff accounts cannot create a restaurant")
		return
	}

	var req struct {
		Slug       string `json:"slug"`
		Name       string `json:"name"`
		Theme      string `json:"theme"`
		Address    string `json:"address"`
		Phone      string `json:"phone"`
		Currency   string `json:"currency"`
		WaiterCode string `json:"waiter_code"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !tenants.ValidSlug(req.Slug) {
		httputil.WriteBadRequest(w, "slug must be lowercase alphanumeric segments joined by hyphens")
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	created, err := h.tenants.Create(r.Context(), &tenants.Restaurant{
		OwnerID:    user.ID,
		Slug:       req.Slug,
		Name:       req.Name,
		Theme:      req.Theme,
		Address:    req.Address,
		Phone:      req.Phone,
		Currency:   req.Currency,
		WaiterCode: req.WaiterCode,
	})
	if err != nil {
		h.logger.WithError(err).Error("failed to create restaurant")
		httputil.WriteInternalError(w, "failed to create restaurant")
		return
	}
	httputil.WriteCreated(w, created)
}

// UpdateRestaurant persists configuration changes. The slug and owner are
// fixed at creation and cannot be changed here.
func (h *RestaurantHandlers) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}

	var req struct {
		Name       string `json:"name"`
		Theme      string `json:"theme"`
		Address    string `json:"address"`
		Phone      string `json:"phone"`
		Currency   string `json:"currency"`
		WaiterCode string `json:"waiter_code"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	restaurant.Name = req.Name
	restaurant.Theme = req.Theme
	restaurant.Address = req.Address
	restaurant.Phone = req.Phone
	if req.Currency != "" {
		restaurant.Currency = req.Currency
	}
	if req.WaiterCode != "" {
		restaurant.WaiterCode = req.WaiterCode
	}

	if err := h.tenants.Update(r.Context(), restaurant); err != nil {
		h.logger.WithError(err).Error("failed to update restaurant")
		httputil.WriteInternalError(w, "failed to update restaurant")
		return
	}
	httputil.WriteSuccess(w, restaurant)
}

// UploadLogo accepts a multipart logo image, stores it in object storage,
// and records the resulting URL on the restaurant.
func (h *RestaurantHandlers) UploadLogo(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	if h.images == nil {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "image storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		httputil.WriteBadRequest(w, "missing logo file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxLogoSize))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read logo file")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	url, err := h.images.Upload(r.Context(), restaurant.ID, header.Filename, contentType, content)
	if err != nil {
		h.logger.WithError(err).Error("failed to upload logo")
		httputil.WriteInternalError(w, "failed to upload logo")
		return
	}

	restaurant.LogoURL = url
	if err := h.tenants.Update(r.Context(), restaurant); err != nil {
		h.logger.WithError(err).Error("failed to record logo URL")
		httputil.WriteInternalError(w, "failed to update restaurant")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"logo_url": url})
}

// ListSubscriptions returns the caller's subscription history, newest first
func (h *RestaurantHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	session, ok := authz.SessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	subs, err := h.billing.ListByUser(r.Context(), session.UserID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list subscriptions")
		httputil.WriteInternalError(w, "failed to list subscriptions")
		return
	}
	httputil.WriteSuccess(w, subs)
}
