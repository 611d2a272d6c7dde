package menu

import (
	"context"
	"time"

	"github.com/menuforge/menuforge/pkg/observability"
)

// Service wraps the store with validation and menu assembly
type Service struct {
	store  *Store
	logger *observability.Logger
}

// NewService creates a menu service
func NewService(store *Store, logger *observability.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateCategory validates and inserts a category
func (s *Service) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	if c.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	return s.store.CreateCategory(ctx, c)
}

// UpdateCategory validates and persists category changes
func (s *Service) UpdateCategory(ctx context.Context, c *Category) error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	return s.store.UpdateCategory(ctx, c)
}

// DeleteCategory removes a category together with its items
func (s *Service) DeleteCategory(ctx context.Context, restaurantID, categoryID int64) error {
	return s.store.DeleteCategory(ctx, restaurantID, categoryID)
}

// ListCategories returns a restaurant's categories
func (s *Service) ListCategories(ctx context.Context, restaurantID int64) ([]Category, error) {
	return s.store.ListCategories(ctx, restaurantID)
}

// CreateItem validates and inserts a menu item
func (s *Service) CreateItem(ctx context.Context, i *Item) (*Item, error) {
	if err := validateItem(i); err != nil {
		return nil, err
	}
	return s.store.CreateItem(ctx, i)
}

// UpdateItem validates and persists item changes
func (s *Service) UpdateItem(ctx context.Context, i *Item) error {
	if err := validateItem(i); err != nil {
		return err
	}
	return s.store.UpdateItem(ctx, i)
}

// GetItem retrieves one item
func (s *Service) GetItem(ctx context.Context, restaurantID, itemID int64) (*Item, error) {
	return s.store.GetItem(ctx, restaurantID, itemID)
}

// DeleteItem removes an item
func (s *Service) DeleteItem(ctx context.Context, restaurantID, itemID int64) error {
	return s.store.DeleteItem(ctx, restaurantID, itemID)
}

// ListItems returns a restaurant's items
func (s *Service) ListItems(ctx context.Context, restaurantID int64) ([]Item, error) {
	return s.store.ListItems(ctx, restaurantID)
}

// CreateSpecial validates and inserts a special
func (s *Service) CreateSpecial(ctx context.Context, sp *Special) (*Special, error) {
	if sp.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	if sp.PriceCents < 0 {
		return nil, &ValidationError{Field: "price_cents", Message: "must not be negative"}
	}
	if sp.EndsOn.Before(sp.StartsOn) {
		return nil, &ValidationError{Field: "ends_on", Message: "must not precede starts_on"}
	}
	return s.store.CreateSpecial(ctx, sp)
}

// DeleteSpecial removes a special
func (s *Service) DeleteSpecial(ctx context.Context, restaurantID, specialID int64) error {
	return s.store.DeleteSpecial(ctx, restaurantID, specialID)
}

// ListSpecials returns all specials including inactive ones
func (s *Service) ListSpecials(ctx context.Context, restaurantID int64) ([]Special, error) {
	return s.store.ListSpecials(ctx, restaurantID)
}

// PublicMenu assembles the customer-facing menu: categories in display
// order with only available items, plus the specials active right now.
func (s *Service) PublicMenu(ctx context.Context, restaurantID int64) (*PublicMenu, error) {
	categories, err := s.store.ListCategories(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	specials, err := s.store.ListSpecials(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int64][]Item)
	for _, i := range items {
		if i.Available {
			byCategory[i.CategoryID] = append(byCategory[i.CategoryID], i)
		}
	}

	out := &PublicMenu{Categories: make([]CategoryWithItems, 0, len(categories))}
	for _, c := range categories {
		out.Categories = append(out.Categories, CategoryWithItems{
			Category: c,
			Items:    byCategory[c.ID],
		})
	}

	now := time.Now()
	for _, sp := range specials {
		if sp.ActiveAt(now) {
			out.Specials = append(out.Specials, sp)
		}
	}
	return out, nil
}

func validateItem(i *Item) error {
	if i.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if i.CategoryID == 0 {
		return &ValidationError{Field: "category_id", Message: "is required"}
	}
	if i.PriceCents < 0 {
		return &ValidationError{Field: "price_cents", Message: "must not be negative"}
	}
	return nil
}
