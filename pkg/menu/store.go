package menu

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store provides database operations for menu content
type Store struct {
	db *sql.DB
}

// NewStore creates a new menu store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	now := time.Now()
	query := `
		INSERT INTO menu_categories (restaurant_id, name, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	created := *c
	err := s.db.QueryRowContext(ctx, query, c.RestaurantID, c.Name, c.Position, now, now).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// UpdateCategory updates a category's name and position
func (s *Store) UpdateCategory(ctx context.Context, c *Category) error {
	query := `UPDATE menu_categories SET name = $1, position = $2, updated_at = $3 WHERE id = $4 AND restaurant_id = $5`
	result, err := s.db.ExecContext(ctx, query, c.Name, c.Position, time.Now(), c.ID, c.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRow(result, ErrCategoryNotFound)
}

// DeleteCategory removes a category and its items
func (s *Store) DeleteCategory(ctx context.Context, restaurantID, categoryID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM menu_items WHERE restaurant_id = $1 AND category_id = $2`, restaurantID, categoryID); err != nil {
		return fmt.Errorf("failed to delete category items: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM menu_categories WHERE id = $1 AND restaurant_id = $2`, categoryID, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireRow(result, ErrCategoryNotFound)
}

// ListCategories returns a restaurant's categories in display order
func (s *Store) ListCategories(ctx context.Context, restaurantID int64) ([]Category, error) {
	query := `
		SELECT id, restaurant_id, name, position, created_at, updated_at
		FROM menu_categories WHERE restaurant_id = $1 ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const itemColumns = `id, restaurant_id, category_id, name, description, price_cents, image_url, available, position, created_at, updated_at`

// CreateItem inserts a menu item
func (s *Store) CreateItem(ctx context.Context, i *Item) (*Item, error) {
	now := time.Now()
	query := `
		INSERT INTO menu_items (restaurant_id, category_id, name, description, price_cents, image_url, available, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	created := *i
	err := s.db.QueryRowContext(ctx, query,
		i.RestaurantID, i.CategoryID, i.Name, i.Description, i.PriceCents, i.ImageURL, i.Available, i.Position, now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetItem retrieves one item scoped to a restaurant
func (s *Store) GetItem(ctx context.Context, restaurantID, itemID int64) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM menu_items WHERE id = $1 AND restaurant_id = $2`
	var i Item
	err := s.db.QueryRowContext(ctx, query, itemID, restaurantID).Scan(
		&i.ID, &i.RestaurantID, &i.CategoryID, &i.Name, &i.Description,
		&i.PriceCents, &i.ImageURL, &i.Available, &i.Position, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &i, nil
}

// UpdateItem updates the mutable item fields
func (s *Store) UpdateItem(ctx context.Context, i *Item) error {
	query := `
		UPDATE menu_items
		SET category_id = $1, name = $2, description = $3, price_cents = $4, image_url = $5, available = $6, position = $7, updated_at = $8
		WHERE id = $9 AND restaurant_id = $10`
	result, err := s.db.ExecContext(ctx, query,
		i.CategoryID, i.Name, i.Description, i.PriceCents, i.ImageURL, i.Available, i.Position, time.Now(), i.ID, i.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireRow(result, ErrItemNotFound)
}

// DeleteItem removes a menu item
func (s *Store) DeleteItem(ctx context.Context, restaurantID, itemID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2`, itemID, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireRow(result, ErrItemNotFound)
}

// ListItems returns a restaurant's items in display order
func (s *Store) ListItems(ctx context.Context, restaurantID int64) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM menu_items WHERE restaurant_id = $1 ORDER BY category_id, position, id`
	rows, err := s.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.RestaurantID, &i.CategoryID, &i.Name, &i.Description,
			&i.PriceCents, &i.ImageURL, &i.Available, &i.Position, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

const specialColumns = `id, restaurant_id, item_id, title, description, price_cents, starts_on, ends_on, created_at, updated_at`

// CreateSpecial inserts a special
func (s *Store) CreateSpecial(ctx context.Context, sp *Special) (*Special, error) {
	now := time.Now()
	query := `
		INSERT INTO menu_specials (restaurant_id, item_id, title, description, price_cents, starts_on, ends_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	created := *sp
	err := s.db.QueryRowContext(ctx, query,
		sp.RestaurantID, sp.ItemID, sp.Title, sp.Description, sp.PriceCents, sp.StartsOn, sp.EndsOn, now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create special: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// DeleteSpecial removes a special
func (s *Store) DeleteSpecial(ctx context.Context, restaurantID, specialID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM menu_specials WHERE id = $1 AND restaurant_id = $2`, specialID, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to delete special: %w", err)
	}
	return requireRow(result, ErrSpecialNotFound)
}

// ListSpecials returns all of a restaurant's specials
func (s *Store) ListSpecials(ctx context.Context, restaurantID int64) ([]Special, error) {
	query := `SELECT ` + specialColumns + ` FROM menu_specials WHERE restaurant_id = $1 ORDER BY starts_on, id`
	rows, err := s.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list specials: %w", err)
	}
	defer rows.Close()

	var out []Special
	for rows.Next() {
		var sp Special
		var itemID sql.NullInt64
		if err := rows.Scan(&sp.ID, &sp.RestaurantID, &itemID, &sp.Title, &sp.Description,
			&sp.PriceCents, &sp.StartsOn, &sp.EndsOn, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		if itemID.Valid {
			id := itemID.Int64
			sp.ItemID = &id
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
