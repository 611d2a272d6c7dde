package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store provides database operations for orders
type Store struct {
	db *sql.DB
}

// NewStore creates a new order store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const orderColumns = `id, restaurant_id, reference, table_label, status, total_cents, note, created_at, updated_at`

// CreateOrder inserts an order and its lines in one transaction
func (s *Store) CreateOrder(ctx context.Context, o *Order) (*Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	created := *o
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (restaurant_id, reference, table_label, status, total_cents, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		o.RestaurantID, o.Reference, o.Table, string(o.Status), o.TotalCents, o.Note, now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	created.Lines = make([]Line, len(o.Lines))
	for idx, line := range o.Lines {
		line.OrderID = created.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_lines (order_id, item_id, name, quantity, price_cents, note)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			line.OrderID, line.ItemID, line.Name, line.Quantity, line.PriceCents, line.Note,
		).Scan(&line.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create order line: %w", err)
		}
		created.Lines[idx] = line
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetByReference retrieves an order with its lines by customer reference
func (s *Store) GetByReference(ctx context.Context, restaurantID int64, reference string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE restaurant_id = $1 AND reference = $2`
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, restaurantID, reference))
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.Lines, err = s.listLines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder retrieves an order with its lines by ID, scoped to a restaurant
func (s *Store) GetOrder(ctx context.Context, restaurantID, orderID int64) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND restaurant_id = $2`
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, orderID, restaurantID))
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.Lines, err = s.listLines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus persists a status change
func (s *Store) UpdateStatus(ctx context.Context, restaurantID, orderID int64, status Status) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND restaurant_id = $4`
	result, err := s.db.ExecContext(ctx, query, string(status), time.Now(), orderID, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListOpen returns orders that still need kitchen or waiter attention,
// oldest first.
func (s *Store) ListOpen(ctx context.Context, restaurantID int64) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE restaurant_id = $1 AND status IN ($2, $3, $4)
		ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, restaurantID,
		string(StatusReceived), string(StatusPreparing), string(StatusReady))
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *Store) listLines(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, name, quantity, price_cents, note
		FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Name, &l.Quantity, &l.PriceCents, &l.Note); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanOrder(scanner interface {
	Scan(dest ...interface{}) error
}) (*Order, error) {
	var o Order
	var status string
	err := scanner.Scan(
		&o.ID, &o.RestaurantID, &o.Reference, &o.Table, &status,
		&o.TotalCents, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = parsed
	return &o, nil
}
