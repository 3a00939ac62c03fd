package entity

import "time"

// Event represents a domain event published after a committed transaction.
type Event interface {
	EventType() string
}

// OrderPlaced is emitted once the placement transaction commits. The
// notification worker turns it into a confirmation email.
type OrderPlaced struct {
	OrderID       string        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	UserID        string        `json:"userId"`
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	Items         []OrderItem   `json:"items"`
	Total         float64       `json:"totalAmount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PlacedAt      time.Time     `json:"placedAt"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is emitted after a successful status transition.
type OrderStatusChanged struct {
	OrderID        string      `json:"orderId"`
	OrderNumber    string      `json:"orderNumber"`
	Email          string      `json:"email"`
	PreviousStatus OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus `json:"newStatus"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
	Location       string      `json:"location,omitempty"`
	Message        string      `json:"message,omitempty"`
	ChangedAt      time.Time   `json:"changedAt"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// LowStockAlert is emitted when a placement leaves a product at or below
// its restock threshold.
type LowStockAlert struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
	OrderID   string    `json:"orderId"`
	At        time.Time `json:"at"`
}

func (e LowStockAlert) EventType() string { return "LowStockAlert" }
