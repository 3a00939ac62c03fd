package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kahawahub/kahawa/backend/internal/config"
	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/messaging"
	"github.com/kahawahub/kahawa/backend/internal/repository"
	"github.com/kahawahub/kahawa/backend/internal/sanitize"
)

// Page describes one page of a listing.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// OrderService orchestrates order placement, status transitions and
// authorized reads.
type OrderService struct {
	orders    repository.OrderRepository
	publisher messaging.Publisher
	settings  config.StoreSettings
}

func NewOrderService(
	orders repository.OrderRepository,
	publisher messaging.Publisher,
	settings config.StoreSettings,
) *OrderService {
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		settings:  settings,
	}
}

// PlaceOrder runs the full placement flow: actor and structural checks,
// address sanitation, then the atomic catalog-backed transaction. The
// client-submitted prices and totals are cross-checked, never trusted.
func (s *OrderService) PlaceOrder(ctx context.Context, actor entity.Identity, cmd *entity.PlaceOrder) (*entity.Order, error) {
	if actor.IsAdmin() {
		return nil, fmt.Errorf("admin accounts cannot place orders: %w", entity.ErrForbidden)
	}
	if s.settings.Maintenance {
		return nil, fmt.Errorf("store is under maintenance, ordering is paused: %w", entity.ErrValidation)
	}
	if err := validatePlaceOrder(cmd); err != nil {
		return nil, err
	}

	address, err := sanitize.Address(cmd.ShippingAddress)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &entity.Order{
		ID:              uuid.NewString(),
		OrderNumber:     entity.NewOrderNumber(),
		UserID:          actor.UserID,
		Items:           append([]entity.OrderItem(nil), cmd.Items...),
		ShippingAddress: address,
		ShippingCost:    cmd.ShippingCost,
		PaymentMethod:   cmd.PaymentMethod,
		PaymentStatus:   initialPaymentStatus(cmd.PaymentMethod),
		Status:          entity.StatusConfirmed,
		Notes:           sanitize.Text(cmd.Notes),
		TrackingHistory: []entity.TrackingEvent{{
			Status:    entity.StatusConfirmed,
			Message:   "Order received and confirmed",
			Timestamp: now,
		}},
		StatusUpdatedAt: now,
		CreatedAt:       now,
	}

	decrements, err := s.orders.PlaceOrder(ctx, order, cmd.TotalAmount)
	if err != nil {
		return nil, err
	}

	slog.Info("Order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"items", len(order.Items),
		"total", order.Total,
	)

	s.publishPlacementEvents(ctx, order, decrements)
	return order, nil
}

// UpdateStatus moves an order through the lifecycle state machine.
// Calling with the current status is a refresh: no transition check, but
// tracking number and notes may still update.
func (s *OrderService) UpdateStatus(ctx context.Context, actor entity.Identity, orderID string, cmd *entity.UpdateOrderStatus) (*entity.Order, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("admin role required: %w", entity.ErrForbidden)
	}
	if !cmd.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", cmd.Status, entity.ErrValidation)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if cmd.Status != previous && !previous.CanTransitionTo(cmd.Status) {
		return nil, fmt.Errorf("cannot transition from %s to %s: %w", previous, cmd.Status, entity.ErrInvalidTransition)
	}

	if cmd.TrackingNumber != "" {
		order.TrackingNumber = cmd.TrackingNumber
	}
	if cmd.Status == entity.StatusShipped && order.TrackingNumber == "" {
		return nil, fmt.Errorf("tracking number is required to mark an order shipped: %w", entity.ErrValidation)
	}
	if cmd.AdminNotes != "" {
		order.AdminNotes = cmd.AdminNotes
	}

	now := time.Now()
	order.Status = cmd.Status
	order.StatusUpdatedAt = now

	message := cmd.Message
	if message == "" {
		message = fmt.Sprintf("Status updated to %s", cmd.Status)
	}
	event := entity.TrackingEvent{
		Status:    cmd.Status,
		Location:  cmd.Location,
		Message:   message,
		Timestamp: now,
	}

	if err := s.orders.UpdateStatus(ctx, order, event); err != nil {
		return nil, err
	}
	order.TrackingHistory = append(order.TrackingHistory, event)

	slog.Info("Order status updated",
		"order_id", order.ID,
		"from", previous,
		"to", cmd.Status,
	)

	if cmd.Status != previous {
		s.publish(ctx, messaging.TopicOrderStatusChanged, order.ID, entity.OrderStatusChanged{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			Email:          order.ShippingAddress.Email,
			PreviousStatus: previous,
			NewStatus:      cmd.Status,
			TrackingNumber: order.TrackingNumber,
			Location:       cmd.Location,
			Message:        message,
			ChangedAt:      now,
		})
	}
	return order, nil
}

// GetOrder returns a single order, visible only to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, actor entity.Identity, orderID string) (*entity.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("malformed order id %q: %w", orderID, entity.ErrValidation)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, fmt.Errorf("order %s does not belong to caller: %w", orderID, entity.ErrForbidden)
	}
	return order, nil
}

// ListMine returns one page of the caller's own orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, actor entity.Identity, page, limit int) ([]entity.Order, Page, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.orders.FindByUser(ctx, actor.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, Page{}, err
	}
	return orders, Page{Page: page, Limit: limit, Total: total}, nil
}

// ListAll returns one page of orders across all users. Admin only.
func (s *OrderService) ListAll(ctx context.Context, actor entity.Identity, filter repository.OrderFilter, page, limit int) ([]entity.Order, Page, error) {
	if !actor.IsAdmin() {
		return nil, Page{}, fmt.Errorf("admin role required: %w", entity.ErrForbidden)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, Page{}, fmt.Errorf("unknown status %q: %w", filter.Status, entity.ErrValidation)
	}

	page, limit = normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	orders, total, err := s.orders.Find(ctx, filter)
	if err != nil {
		return nil, Page{}, err
	}
	return orders, Page{Page: page, Limit: limit, Total: total}, nil
}

func validatePlaceOrder(cmd *entity.PlaceOrder) error {
	if len(cmd.Items) == 0 {
		return fmt.Errorf("order must have at least one item: %w", entity.ErrValidation)
	}
	if !cmd.PaymentMethod.Valid() {
		return fmt.Errorf("unknown payment method %q: %w", cmd.PaymentMethod, entity.ErrValidation)
	}
	for i, item := range cmd.Items {
		switch {
		case item.ProductID == "":
			return fmt.Errorf("item %d: missing product: %w", i, entity.ErrValidation)
		case item.Name == "":
			return fmt.Errorf("item %d: missing name: %w", i, entity.ErrValidation)
		case item.UnitPrice <= 0:
			return fmt.Errorf("item %d: price must be positive: %w", i, entity.ErrValidation)
		case item.Quantity <= 0:
			return fmt.Errorf("item %d: quantity must be positive: %w", i, entity.ErrValidation)
		case item.Size == "":
			return fmt.Errorf("item %d: missing size: %w", i, entity.ErrValidation)
		}
	}
	if cmd.ShippingCost < 0 {
		return fmt.Errorf("shipping cost must not be negative: %w", entity.ErrValidation)
	}
	return nil
}

func initialPaymentStatus(method entity.PaymentMethod) entity.PaymentStatus {
	if method == entity.PaymentCashOnDelivery {
		return entity.PaymentPending
	}
	return entity.PaymentPaid
}

// publishPlacementEvents fires the post-commit notifications: the order
// confirmation and a low-stock alert per depleted product. Best effort;
// a committed order is never rolled back because an event failed.
func (s *OrderService) publishPlacementEvents(ctx context.Context, order *entity.Order, decrements []entity.StockDecrement) {
	s.publish(ctx, messaging.TopicOrderPlaced, order.ID, entity.OrderPlaced{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Email:         order.ShippingAddress.Email,
		Name:          order.ShippingAddress.FirstName,
		Items:         order.Items,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		PlacedAt:      order.CreatedAt,
	})

	for _, d := range decrements {
		if !d.LowStock() {
			continue
		}
		s.publish(ctx, messaging.TopicLowStock, d.ProductID, entity.LowStockAlert{
			ProductID: d.ProductID,
			Name:      d.Name,
			Stock:     d.StockAfter,
			Threshold: d.Threshold,
			OrderID:   order.ID,
			At:        time.Now(),
		})
	}
}

func (s *OrderService) publish(ctx context.Context, topic, key string, event entity.Event) {
	// Detached from the request: cancellation after commit must not lose
	// the notification.
	ctx = context.WithoutCancel(ctx)
	if err := s.publisher.PublishEvent(ctx, topic, key, event); err != nil {
		slog.Error("Failed to publish event", "topic", topic, "event", event.EventType(), "err", err)
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
