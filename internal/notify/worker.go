// Package notify consumes committed domain events and turns them into
// emails. Delivery failures are logged and dropped; they never affect the
// transactions that produced the events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/messaging"
)

// Worker routes notification topics to the mailer.
type Worker struct {
	router *message.Router
	mailer Mailer
}

// NewWorker builds the routing table over the given subscriber.
func NewWorker(sub message.Subscriber, mailer Mailer, logger watermill.LoggerAdapter) (*Worker, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	w := &Worker{router: router, mailer: mailer}

	router.AddNoPublisherHandler("order-confirmation-email", messaging.TopicOrderPlaced, sub, w.handleOrderPlaced)
	router.AddNoPublisherHandler("order-status-email", messaging.TopicOrderStatusChanged, sub, w.handleStatusChanged)
	router.AddNoPublisherHandler("low-stock-alert", messaging.TopicLowStock, sub, w.handleLowStock)

	return w, nil
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running is closed once all handlers are up. Used by tests.
func (w *Worker) Running() <-chan struct{} {
	return w.router.Running()
}

func (w *Worker) handleOrderPlaced(msg *message.Message) error {
	var event entity.OrderPlaced
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("Failed to unmarshal OrderPlaced event", "err", err)
		return nil
	}
	if err := w.mailer.SendOrderConfirmation(msg.Context(), event); err != nil {
		slog.Error("Failed to send order confirmation", "order_id", event.OrderID, "err", err)
	}
	return nil
}

func (w *Worker) handleStatusChanged(msg *message.Message) error {
	var event entity.OrderStatusChanged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("Failed to unmarshal OrderStatusChanged event", "err", err)
		return nil
	}
	if err := w.mailer.SendStatusUpdate(msg.Context(), event); err != nil {
		slog.Error("Failed to send status update", "order_id", event.OrderID, "err", err)
	}
	return nil
}

func (w *Worker) handleLowStock(msg *message.Message) error {
	var event entity.LowStockAlert
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("Failed to unmarshal LowStockAlert event", "err", err)
		return nil
	}
	if err := w.mailer.SendLowStockAlert(msg.Context(), event); err != nil {
		slog.Error("Failed to send low-stock alert", "product_id", event.ProductID, "err", err)
	}
	return nil
}
