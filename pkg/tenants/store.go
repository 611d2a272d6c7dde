package tenants

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store provides database operations for restaurants
type Store struct {
	db *sql.DB
}

// NewStore creates a new restaurant store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const restaurantColumns = `id, owner_id, slug, name, theme, address, phone, logo_url, currency, waiter_code, created_at, updated_at`

// CreateRestaurant inserts the restaurant for an owner. One restaurant per
// owner is enforced by a unique index on owner_id.
func (s *Store) CreateRestaurant(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	if !ValidSlug(r.Slug) {
		return nil, fmt.Errorf("invalid slug: %q", r.Slug)
	}

	now := time.Now()
	query := `
		INSERT INTO restaurants (owner_id, slug, name, theme, address, phone, logo_url, currency, waiter_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	created := *r
	err := s.db.QueryRowContext(ctx, query,
		r.OwnerID, r.Slug, r.Name, r.Theme, r.Address, r.Phone, r.LogoURL, r.Currency, r.WaiterCode, now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create restaurant: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetBySlug retrieves a restaurant by its public slug
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE slug = $1`
	r, err := scanRestaurant(s.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	return r, nil
}

// GetByOwner retrieves the restaurant belonging to an owner account
func (s *Store) GetByOwner(ctx context.Context, ownerID int64) (*Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE owner_id = $1`
	r, err := scanRestaurant(s.db.QueryRowContext(ctx, query, ownerID))
	if err == sql.ErrNoRows {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant by owner: %w", err)
	}
	return r, nil
}

// UpdateRestaurant updates the mutable configuration fields
func (s *Store) UpdateRestaurant(ctx context.Context, r *Restaurant) error {
	query := `
		UPDATE restaurants
		SET name = $1, theme = $2, address = $3, phone = $4, logo_url = $5, currency = $6, waiter_code = $7, updated_at = $8
		WHERE id = $9`
	result, err := s.db.ExecContext(ctx, query,
		r.Name, r.Theme, r.Address, r.Phone, r.LogoURL, r.Currency, r.WaiterCode, time.Now(), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update restaurant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRestaurantNotFound
	}
	return nil
}

func scanRestaurant(scanner interface {
	Scan(dest ...interface{}) error
}) (*Restaurant, error) {
	var r Restaurant
	err := scanner.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Slug,
		&r.Name,
		&r.Theme,
		&r.Address,
		&r.Phone,
		&r.LogoURL,
		&r.Currency,
		&r.WaiterCode,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
