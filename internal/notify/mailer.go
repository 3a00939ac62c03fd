package notify

import (
	"context"
	"log/slog"

	"github.com/kahawahub/kahawa/backend/internal/entity"
)

// Mailer delivers customer and back-office emails. Templating and SMTP
// delivery live outside this service; implementations adapt to whatever
// provider is configured.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, event entity.OrderPlaced) error
	SendStatusUpdate(ctx context.Context, event entity.OrderStatusChanged) error
	SendLowStockAlert(ctx context.Context, event entity.LowStockAlert) error
}

// LogMailer writes would-be emails to the log. Default when no provider
// is configured.
type LogMailer struct{}

func (LogMailer) SendOrderConfirmation(ctx context.Context, event entity.OrderPlaced) error {
	slog.Info("📧 Order confirmation email",
		"to", event.Email,
		"order_number", event.OrderNumber,
		"total", event.Total,
	)
	return nil
}

func (LogMailer) SendStatusUpdate(ctx context.Context, event entity.OrderStatusChanged) error {
	slog.Info("📧 Order status email",
		"to", event.Email,
		"order_number", event.OrderNumber,
		"status", event.NewStatus,
	)
	return nil
}

func (LogMailer) SendLowStockAlert(ctx context.Context, event entity.LowStockAlert) error {
	slog.Info("📧 Low stock alert",
		"product_id", event.ProductID,
		"product", event.Name,
		"stock", event.Stock,
		"threshold", event.Threshold,
	)
	return nil
}
