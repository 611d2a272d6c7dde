package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/menuforge/menuforge/pkg/permissions"
)

// ErrUserNotFound indicates a lookup for a user that does not exist
var ErrUserNotFound = errors.New("user not found")

// Store provides database operations for users and permission grants
type Store struct {
	db *sql.DB
}

// NewStore creates a new user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, email, name, role, stripe_customer_id, restaurant_owner_id, created_at, updated_at`

// CreateUser inserts a new user and returns it with its assigned ID
func (s *Store) CreateUser(ctx context.Context, user *User) (*User, error) {
	now := time.Now()
	query := `
		INSERT INTO users (email, name, role, stripe_customer_id, restaurant_owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	created := *user
	err := s.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.Role.String(), user.StripeCustomerID, user.RestaurantOwnerID, now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByStripeCustomerID retrieves a user by their payment customer ID
func (s *Store) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, customerID))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by customer id: %w", err)
	}
	return user, nil
}

// UpdateRole sets a user's role
func (s *Store) UpdateRole(ctx context.Context, userID int64, role permissions.Role) error {
	query := `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, role.String(), time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetStripeCustomerID records the payment customer ID on a user
func (s *Store) SetStripeCustomerID(ctx context.Context, userID int64, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, customerID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set customer id: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListStaff returns the staff accounts attached to an owner's restaurant
func (s *Store) ListStaff(ctx context.Context, ownerID int64) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE restaurant_owner_id = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var staff []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, *user)
	}
	return staff, rows.Err()
}

// ListUsers returns all users ordered by ID
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}

// GrantPermission inserts an explicit permission row for a user. Granting an
// already-held permission is a no-op.
func (s *Store) GrantPermission(ctx context.Context, userID int64, p permissions.Permission, grantedBy *int64) error {
	query := `
		INSERT INTO user_permissions (user_id, permission, granted_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, permission) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, userID, string(p), grantedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// RevokePermission removes an explicit permission row
func (s *Store) RevokePermission(ctx context.Context, userID int64, p permissions.Permission) error {
	query := `DELETE FROM user_permissions WHERE user_id = $1 AND permission = $2`
	_, err := s.db.ExecContext(ctx, query, userID, string(p))
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

// GetGrantedPermissions returns the explicit permission rows for a user
func (s *Store) GetGrantedPermissions(ctx context.Context, userID int64) ([]permissions.Permission, error) {
	query := `SELECT permission FROM user_permissions WHERE user_id = $1 ORDER BY permission`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get granted permissions: %w", err)
	}
	defer rows.Close()

	var perms []permissions.Permission
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, permissions.Permission(p))
	}
	return perms, rows.Err()
}

// scanUser scans a user from a row scanner
func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*User, error) {
	var user User
	var role string
	var customerID sql.NullString
	var ownerID sql.NullInt64

	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&role,
		&customerID,
		&ownerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := permissions.ParseRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed

	if customerID.Valid {
		id := customerID.String
		user.StripeCustomerID = &id
	}
	if ownerID.Valid {
		id := ownerID.Int64
		user.RestaurantOwnerID = &id
	}

	return &user, nil
}
