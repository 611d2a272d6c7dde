package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/observability"
)

// PlaceOrderLine is one requested item on an incoming order
type PlaceOrderLine struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// PlaceOrderRequest is a customer order from the public menu page
type PlaceOrderRequest struct {
	Table string           `json:"table,omitempty"`
	Note  string           `json:"note,omitempty"`
	Lines []PlaceOrderLine `json:"lines"`
}

// Service validates and places orders and drives the status flow
type Service struct {
	store   *Store
	menus   *menu.Service
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates an order service
func NewService(store *Store, menus *menu.Service, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		menus:   menus,
		logger:  logger,
		metrics: metrics,
	}
}

// Place validates an incoming order against the live menu and persists it.
// Prices and names are snapshotted from the menu at placement time so later
// edits do not rewrite history.
func (s *Service) Place(ctx context.Context, restaurantID int64, req *PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, &menu.ValidationError{Field: "lines", Message: "order has no items"}
	}

	order := &Order{
		RestaurantID: restaurantID,
		Reference:    uuid.NewString(),
		Table:        req.Table,
		Status:       StatusReceived,
		Note:         req.Note,
	}

	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &menu.ValidationError{Field: "quantity", Message: "must be positive"}
		}
		item, err := s.menus.GetItem(ctx, restaurantID, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", line.ItemID, err)
		}
		if !item.Available {
			return nil, &menu.ValidationError{Field: "item_id", Message: fmt.Sprintf("item %d is not available", line.ItemID)}
		}
		order.Lines = append(order.Lines, Line{
			ItemID:     item.ID,
			Name:       item.Name,
			Quantity:   line.Quantity,
			PriceCents: item.PriceCents,
			Note:       line.Note,
		})
		order.TotalCents += item.PriceCents * int64(line.Quantity)
	}

	created, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersTotal.WithLabelValues(string(StatusReceived)).Inc()
	s.logger.WithField("restaurant_id", restaurantID).WithField("reference", created.Reference).
		Info("order placed")
	return created, nil
}

// Transition moves an order to a new status, enforcing the lifecycle
func (s *Service) Transition(ctx context.Context, restaurantID, orderID int64, next Status) (*Order, error) {
	order, err := s.store.GetOrder(ctx, restaurantID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(next) {
		return nil, &InvalidTransitionError{From: order.Status, To: next}
	}
	if err := s.store.UpdateStatus(ctx, restaurantID, orderID, next); err != nil {
		return nil, err
	}

	s.metrics.OrdersTotal.WithLabelValues(string(next)).Inc()
	order.Status = next
	return order, nil
}

// Track returns an order by its customer-facing reference
func (s *Service) Track(ctx context.Context, restaurantID int64, reference string) (*Order, error) {
	return s.store.GetByReference(ctx, restaurantID, reference)
}

// ListOpen returns the orders still moving through the kitchen
func (s *Service) ListOpen(ctx context.Context, restaurantID int64) ([]Order, error) {
	return s.store.ListOpen(ctx, restaurantID)
}
