package messaging

import "context"

// Topics carrying post-commit domain events.
const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status-changed"
	TopicLowStock           = "inventory.low-stock"
)

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// NopPublisher discards events. Used when the broker is disabled and in
// tests that don't care about notifications.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	return nil
}
