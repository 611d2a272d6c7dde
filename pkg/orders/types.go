// Package orders handles customer order placement and the kitchen/waiter
// status flow.
package orders

import (
	"errors"
	"fmt"
	"time"
)

// ErrOrderNotFound indicates a lookup for an order that does not exist
var ErrOrderNotFound = errors.New("order not found")

// Status is the lifecycle state of an order
type Status string

const (
	StatusReceived  Status = "received"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// validTransitions maps each status to the statuses it may move to.
// Cancellation is allowed until the order is delivered.
var validTransitions = map[Status][]Status{
	StatusReceived:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
}

// CanTransition reports whether moving from s to next is allowed
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus parses a stored status string
func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusReceived, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return Status(v), nil
	}
	return "", fmt.Errorf("unknown order status: %q", v)
}

// InvalidTransitionError reports a rejected status change
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Line is one item on an order
type Line struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	ItemID     int64  `json:"item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	Note       string `json:"note,omitempty"`
}

// Order is a customer order placed from the public menu page
type Order struct {
	ID           int64  `json:"id"`
	RestaurantID int64  `json:"restaurant_id"`
	// Reference is the opaque identifier shown to the customer
	Reference  string    `json:"reference"`
	Table      string    `json:"table,omitempty"`
	Status     Status    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Note       string    `json:"note,omitempty"`
	Lines      []Line    `json:"lines,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
