package entity

import "time"

// Category classifies a product in the catalog.
type Category string

const (
	CategoryCoffeeBeans  Category = "coffee-beans"
	CategoryGroundCoffee Category = "ground-coffee"
	CategoryInstant      Category = "instant"
	CategoryEquipment    Category = "equipment"
	CategoryAccessories  Category = "accessories"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCoffeeBeans, CategoryGroundCoffee, CategoryInstant, CategoryEquipment, CategoryAccessories:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMpesa          PaymentMethod = "mpesa"
	PaymentCard           PaymentMethod = "card"
	PaymentCashOnDelivery PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMpesa, PaymentCard, PaymentCashOnDelivery:
		return true
	}
	return false
}

// PaymentStatus tracks whether an order has been paid for.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Roles of an authenticated account.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the authenticated caller, extracted from the bearer token
// by the delivery layer. Session issuance lives outside this service.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Product represents a product in the store. Per-size prices take
// precedence over the flat Price when a line item names a size.
type Product struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Category          Category           `json:"category"`
	Price             float64            `json:"price"`
	SizePrices        map[string]float64 `json:"sizePrices,omitempty"`
	Stock             int                `json:"stock"`
	LowStockThreshold int                `json:"lowStockThreshold"`
	InStock           bool               `json:"inStock"`
	Active            bool               `json:"active"`
	ImageURL          string             `json:"imageUrl"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// UnitPrice resolves the authoritative price for a size variant, falling
// back to the flat product price when the size has no entry.
func (p *Product) UnitPrice(size string) float64 {
	if v, ok := p.SizePrices[size]; ok && v > 0 {
		return v
	}
	return p.Price
}

// RecomputeInStock keeps the derived flag consistent with the stock count.
// Must be called after every stock mutation.
func (p *Product) RecomputeInStock() { p.InStock = p.Stock > 0 }

// ShippingAddress is snapshotted onto the order at creation time.
type ShippingAddress struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	County     string `json:"county"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// OrderItem is a line item within an order. Name and price are captured
// from the product at placement time and never change afterwards.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	LineTotal float64 `json:"lineTotal"`
}

// TrackingEvent is one entry in an order's append-only tracking history.
type TrackingEvent struct {
	Status    OrderStatus `json:"status"`
	Location  string      `json:"location,omitempty"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        float64         `json:"subtotal"`
	ShippingCost    float64         `json:"shippingCost"`
	Tax             float64         `json:"tax"`
	Total           float64         `json:"totalAmount"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	Status          OrderStatus     `json:"status"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	TrackingHistory []TrackingEvent `json:"trackingHistory"`
	AdminNotes      string          `json:"adminNotes,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	StatusUpdatedAt time.Time       `json:"statusUpdatedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// --- Commands ---

// PlaceOrder is a command to create a new order. Item prices and the
// submitted totals come from the client and are never trusted; the
// placement transaction recomputes both from the catalog.
type PlaceOrder struct {
	UserID          string
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	Items           []OrderItem
	Subtotal        float64
	ShippingCost    float64
	Tax             float64
	TotalAmount     float64
	Notes           string
}

// UpdateOrderStatus is a command to move an order through its lifecycle.
type UpdateOrderStatus struct {
	Status         OrderStatus
	TrackingNumber string
	AdminNotes     string
	Location       string
	Message        string
}

// StockDecrement records the per-item stock mutation computed during
// placement. It is not persisted; it drives low-stock alerting.
type StockDecrement struct {
	ProductID   string
	Name        string
	Quantity    int
	StockBefore int
	StockAfter  int
	Threshold   int
}

// LowStock reports whether this decrement left the product at or below
// its alert threshold.
func (d StockDecrement) LowStock() bool { return d.StockAfter <= d.Threshold }
