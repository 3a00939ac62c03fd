// Package memory provides in-memory repository implementations with the
// same all-or-nothing placement semantics as the Postgres ones. Used by
// tests and by the demo mode that runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/repository"
)

// Store holds products and orders behind one mutex so a placement is a
// single critical section, like the SQL transaction it stands in for.
type Store struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	orders   map[string]*entity.Order
	taxRate  float64
}

// NewStore creates an empty Store. A negative taxRate falls back to the
// standard rate; zero means tax-free.
func NewStore(taxRate float64) *Store {
	return &Store{
		products: make(map[string]*entity.Product),
		orders:   make(map[string]*entity.Order),
		taxRate:  taxRate,
	}
}

func (s *Store) Products() repository.ProductRepository { return &productRepository{s} }
func (s *Store) Orders() repository.OrderRepository     { return &orderRepository{s} }

type productRepository struct{ store *Store }

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var products []entity.Product
	for _, p := range r.store.products {
		if p.Active {
			products = append(products, *cloneProduct(p))
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	return cloneProduct(p), nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if len(r.store.products) > 0 {
		return nil // already seeded
	}
	now := time.Now()
	for _, p := range products {
		p.RecomputeInStock()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
			p.UpdatedAt = now
		}
		r.store.products[p.ID] = cloneProduct(&p)
	}
	return nil
}

type orderRepository struct{ store *Store }

func (r *orderRepository) PlaceOrder(ctx context.Context, order *entity.Order, claimedTotal float64) ([]entity.StockDecrement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	find := func(productID string) (*entity.Product, error) {
		p, ok := r.store.products[productID]
		if !ok {
			return nil, nil
		}
		return cloneProduct(p), nil
	}

	decrements, err := entity.ResolvePlacement(order, find, claimedTotal, r.store.taxRate)
	if err != nil {
		return nil, err
	}

	for i := 0; i < 3; i++ {
		if !r.orderNumberTaken(order.OrderNumber) {
			break
		}
		order.OrderNumber = entity.NewOrderNumber()
	}

	// Resolution succeeded for every line; apply the decrements and the
	// order together under the same lock.
	for _, d := range decrements {
		p := r.store.products[d.ProductID]
		p.Stock -= d.Quantity
		p.RecomputeInStock()
		p.UpdatedAt = time.Now()
	}
	r.store.orders[order.ID] = cloneOrder(order)
	return decrements, nil
}

func (r *orderRepository) orderNumberTaken(number string) bool {
	for _, o := range r.store.orders {
		if o.OrderNumber == number {
			return true
		}
	}
	return false
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, entity.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) FindByUser(ctx context.Context, userID string, limit, offset int) ([]entity.Order, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	matches := r.matching(func(o *entity.Order) bool { return o.UserID == userID })
	return page(matches, limit, offset), len(matches), nil
}

func (r *orderRepository) Find(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	search := strings.ToLower(filter.Search)
	matches := r.matching(func(o *entity.Order) bool {
		if filter.Status != "" && o.Status != filter.Status {
			return false
		}
		if search != "" && !hasPrefixAny(search,
			o.OrderNumber, o.ShippingAddress.Email, o.ShippingAddress.FirstName, o.ShippingAddress.LastName) {
			return false
		}
		if !filter.StartDate.IsZero() && o.CreatedAt.Before(filter.StartDate) {
			return false
		}
		if !filter.EndDate.IsZero() && o.CreatedAt.After(filter.EndDate) {
			return false
		}
		return true
	})
	return page(matches, filter.Limit, filter.Offset), len(matches), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *entity.Order, event entity.TrackingEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", order.ID, entity.ErrNotFound)
	}
	stored.Status = order.Status
	stored.StatusUpdatedAt = order.StatusUpdatedAt
	stored.TrackingNumber = order.TrackingNumber
	stored.AdminNotes = order.AdminNotes
	stored.TrackingHistory = append(stored.TrackingHistory, event)
	return nil
}

// matching returns clones of matching orders, newest first. Callers must
// hold the store lock.
func (r *orderRepository) matching(match func(*entity.Order) bool) []entity.Order {
	var orders []entity.Order
	for _, o := range r.store.orders {
		if match(o) {
			orders = append(orders, *cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func page(orders []entity.Order, limit, offset int) []entity.Order {
	if offset >= len(orders) {
		return nil
	}
	orders = orders[offset:]
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders
}

func hasPrefixAny(prefix string, fields ...string) bool {
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), prefix) {
			return true
		}
	}
	return false
}

func cloneProduct(p *entity.Product) *entity.Product {
	cp := *p
	if p.SizePrices != nil {
		cp.SizePrices = make(map[string]float64, len(p.SizePrices))
		for k, v := range p.SizePrices {
			cp.SizePrices[k] = v
		}
	}
	return &cp
}

func cloneOrder(o *entity.Order) *entity.Order {
	co := *o
	co.Items = append([]entity.OrderItem(nil), o.Items...)
	co.TrackingHistory = append([]entity.TrackingEvent(nil), o.TrackingHistory...)
	return &co
}
