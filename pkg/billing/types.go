// Package billing reconciles inbound payment provider webhooks with user
// roles. Stripe and MercadoPago notify asynchronously; this package verifies
// the notification, records the subscription event, and moves the owner and
// their staff between tiers.
package billing

import (
	"errors"
	"fmt"
	"time"
)

// Provider identifies a payment provider
type Provider string

const (
	ProviderStripe      Provider = "stripe"
	ProviderMercadoPago Provider = "mercadopago"
)

// SubscriptionStatus is the state of a subscription record
type SubscriptionStatus string

const (
	StatusPending    SubscriptionStatus = "pending"
	StatusAuthorized SubscriptionStatus = "authorized"
	StatusCancelled  SubscriptionStatus = "cancelled"
)

// ParseSubscriptionStatus parses a stored status string
func ParseSubscriptionStatus(v string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(v) {
	case StatusPending, StatusAuthorized, StatusCancelled:
		return SubscriptionStatus(v), nil
	}
	return "", fmt.Errorf("unknown subscription status: %q", v)
}

// Subscription is one subscription record. Records are append-only: a
// re-subscription after cancellation creates a new row rather than reviving
// the old one, so the table is a history.
type Subscription struct {
	ID         int64              `json:"id"`
	Provider   Provider           `json:"provider"`
	ExternalID string             `json:"external_id"`
	UserID     int64              `json:"user_id"`
	Email      string             `json:"email"`
	Status     SubscriptionStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ErrInvalidSignature indicates a webhook whose signature did not verify.
// Nothing from such a payload is processed.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Payer carries the identifiers a provider event offers for matching the
// paying account. Any field may be empty; resolution tries them in order of
// reliability.
type Payer struct {
	// CustomerID is the provider-side customer identifier.
	CustomerID string
	// UserRef is the reference we planted at checkout time, holding our own
	// user ID in decimal form. Stripe echoes it back as client_reference_id,
	// MercadoPago as external_reference.
	UserRef string
	// Email is the payer email as the provider reports it.
	Email string
}

// MissingCorrelationError indicates a verified event that cannot be matched
// to any local account by customer ID, checkout reference, or email.
type MissingCorrelationError struct {
	Provider Provider
	Payer    Payer
}

func (e *MissingCorrelationError) Error() string {
	return fmt.Sprintf("%s event matches no account (customer=%q ref=%q email=%q)",
		e.Provider, e.Payer.CustomerID, e.Payer.UserRef, e.Payer.Email)
}

// PersistenceError wraps a datastore failure while applying an event. The
// provider will retry the delivery.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
