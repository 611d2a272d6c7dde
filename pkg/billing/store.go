package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ErrSubscriptionNotFound indicates a lookup for a subscription that does not exist
var ErrSubscriptionNotFound = fmt.Errorf("subscription not found")

// Store provides database operations for subscription records
type Store struct {
	db *sql.DB
}

// NewStore creates a new billing store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const subscriptionColumns = `id, provider, external_id, user_id, email, status, created_at, updated_at`

// CreateSubscription inserts a new subscription record. Always a new row:
// the table is an append-only history and cancelled rows are never revived.
func (s *Store) CreateSubscription(ctx context.Context, sub *Subscription) (*Subscription, error) {
	now := time.Now()
	query := `
		INSERT INTO subscriptions (provider, external_id, user_id, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	created := *sub
	err := s.db.QueryRowContext(ctx, query,
		string(sub.Provider), sub.ExternalID, sub.UserID, sub.Email, string(sub.Status), now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// UpdateStatusByExternalID sets the status of the most recent record for an
// external subscription ID. Last write wins; there is no event ordering
// guarantee from the providers.
func (s *Store) UpdateStatusByExternalID(ctx context.Context, provider Provider, externalID string, status SubscriptionStatus) error {
	query := `
		UPDATE subscriptions SET status = $1, updated_at = $2
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE provider = $3 AND external_id = $4
			ORDER BY id DESC LIMIT 1
		)`
	result, err := s.db.ExecContext(ctx, query, string(status), time.Now(), string(provider), externalID)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// GetLatestByExternalID returns the most recent record for an external ID
func (s *Store) GetLatestByExternalID(ctx context.Context, provider Provider, externalID string) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE provider = $1 AND external_id = $2
		ORDER BY id DESC LIMIT 1`
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, string(provider), externalID))
	if err == sql.ErrNoRows {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns a user's subscription history, newest first
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY id DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func scanSubscription(scanner interface {
	Scan(dest ...interface{}) error
}) (*Subscription, error) {
	var sub Subscription
	var provider, status string
	err := scanner.Scan(
		&sub.ID, &provider, &sub.ExternalID, &sub.UserID, &sub.Email, &status,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Provider = Provider(provider)
	parsed, err := ParseSubscriptionStatus(status)
	if err != nil {
		return nil, err
	}
	sub.Status = parsed
	return &sub, nil
}
