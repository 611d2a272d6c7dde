package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/observability"
)

// MenuHandlers serves the dashboard menu management endpoints
type MenuHandlers struct {
	menus  *menu.Service
	logger *observability.Logger
}

// NewMenuHandlers creates the menu management handlers
func NewMenuHandlers(menus *menu.Service, logger *observability.Logger) *MenuHandlers {
	return &MenuHandlers{menus: menus, logger: logger}
}

// RegisterRoutes registers the menu endpoints on the protected API router
func (h *MenuHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/menu/categories", h.ListCategories).Methods("GET")
	router.HandleFunc("/menu/categories", h.CreateCategory).Methods("POST")
	router.HandleFunc("/menu/categories/{id}", h.UpdateCategory).Methods("PUT")
	router.HandleFunc("/menu/categories/{id}", h.DeleteCategory).Methods("DELETE")

	router.HandleFunc("/menu/items", h.ListItems).Methods("GET")
	router.HandleFunc("/menu/items", h.CreateItem).Methods("POST")
	router.HandleFunc("/menu/items/{id}", h.UpdateItem).Methods("PUT")
	router.HandleFunc("/menu/items/{id}", h.DeleteItem).Methods("DELETE")

	router.HandleFunc("/menu/specials", h.ListSpecials).Methods("GET")
	router.HandleFunc("/menu/specials", h.CreateSpecial).Methods("POST")
	router.HandleFunc("/menu/specials/{id}", h.DeleteSpecial).Methods("DELETE")
}

// ListCategories returns the restaurant's categories
func (h *MenuHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	categories, err := h.menus.ListCategories(r.Context(), restaurant.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list categories")
		httputil.WriteInternalError(w, "failed to list categories")
		return
	}
	httputil.WriteSuccess(w, categories)
}

// CreateCategory creates a category
func (h *MenuHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}

	var category menu.Category
	if !httputil.ParseJSONOrError(w, r, &category) {
		return
	}
	category.RestaurantID = restaurant.ID

	created, err := h.menus.CreateCategory(r.Context(), &category)
	if err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteCreated(w, created)
}

// UpdateCategory updates a category
func (h *MenuHandlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var category menu.Category
	if !httputil.ParseJSONOrError(w, r, &category) {
		return
	}
	category.ID = id
	category.RestaurantID = restaurant.ID

	if err := h.menus.UpdateCategory(r.Context(), &category); err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteSuccess(w, category)
}

// DeleteCategory removes a category and its items
func (h *MenuHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.menus.DeleteCategory(r.Context(), restaurant.ID, id); err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListItems returns the restaurant's items
func (h *MenuHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	items, err := h.menus.ListItems(r.Context(), restaurant.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list items")
		httputil.WriteInternalError(w, "failed to list items")
		return
	}
	httputil.WriteSuccess(w, items)
}

// CreateItem creates a menu item
func (h *MenuHandlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}

	var item menu.Item
	if !httputil.ParseJSONOrError(w, r, &item) {
		return
	}
	item.RestaurantID = restaurant.ID

	created, err := h.menus.CreateItem(r.Context(), &item)
	if err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteCreated(w, created)
}

// UpdateItem updates a menu item
func (h *MenuHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var item menu.Item
	if !httputil.ParseJSONOrError(w, r, &item) {
		return
	}
	item.ID = id
	item.RestaurantID = restaurant.ID

	if err := h.menus.UpdateItem(r.Context(), &item); err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

// DeleteItem removes a menu item
func (h *MenuHandlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.menus.DeleteItem(r.Context(), restaurant.ID, id); err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListSpecials returns all specials
func (h *MenuHandlers) ListSpecials(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	specials, err := h.menus.ListSpecials(r.Context(), restaurant.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list specials")
		httputil.WriteInternalError(w, "failed to list specials")
		return
	}
	httputil.WriteSuccess(w, specials)
}

// CreateSpecial creates a special
func (h *MenuHandlers) CreateSpecial(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}

	var special menu.Special
	if !httputil.ParseJSONOrError(w, r, &special) {
		return
	}
	special.RestaurantID = restaurant.ID

	created, err := h.menus.CreateSpecial(r.Context(), &special)
	if err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteCreated(w, created)
}

// DeleteSpecial removes a special
func (h *MenuHandlers) DeleteSpecial(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := restaurantFromContext(r)
	if !ok {
		httputil.WriteNotFound(w, "no restaurant configured for this account")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.menus.DeleteSpecial(r.Context(), restaurant.ID, id); err != nil {
		h.writeMenuError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *MenuHandlers) writeMenuError(w http.ResponseWriter, err error) {
	var verr *menu.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteDetailedError(w, http.StatusBadRequest, "validation failed", map[string]string{verr.Field: verr.Message})
	case errors.Is(err, menu.ErrCategoryNotFound),
		errors.Is(err, menu.ErrItemNotFound),
		errors.Is(err, menu.ErrSpecialNotFound):
		httputil.WriteNotFound(w, err.Error())
	default:
		h.logger.WithError(err).Error("menu operation failed")
		httputil.WriteInternalError(w, "operation failed")
	}
}
