package repository

import (
	"context"
	"time"

	"github.com/kahawahub/kahawa/backend/internal/entity"
)

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	// FindAll returns all active products.
	FindAll(ctx context.Context) ([]entity.Product, error)
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status    entity.OrderStatus
	Search    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// OrderRepository handles persistence for Orders.
type OrderRepository interface {
	// PlaceOrder runs the atomic placement transaction on an order
	// skeleton: product resolution, price verification, order insert and
	// stock decrements all commit together or not at all. claimedTotal is
	// the client-submitted amount checked against the computed one.
	PlaceOrder(ctx context.Context, order *entity.Order, claimedTotal float64) ([]entity.StockDecrement, error)

	FindByID(ctx context.Context, id string) (*entity.Order, error)
	// FindByUser returns one page of a user's orders, newest first, plus
	// the total count.
	FindByUser(ctx context.Context, userID string, limit, offset int) ([]entity.Order, int, error)
	// Find returns one page of orders matching the filter, newest first,
	// plus the total count.
	Find(ctx context.Context, filter OrderFilter) ([]entity.Order, int, error)
	// UpdateStatus persists a status transition and appends the tracking
	// event in one transaction.
	UpdateStatus(ctx context.Context, order *entity.Order, event entity.TrackingEvent) error
}
