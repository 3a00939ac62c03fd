package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/repository"
)

const orderColumns = `id, order_number, user_id, status, payment_method, payment_status,
	subtotal, shipping_cost, tax, total, tracking_number, admin_notes, notes,
	first_name, last_name, email, phone, street, city, county, country, postal_code,
	status_updated_at, created_at`

type orderRepository struct {
	db      *sql.DB
	taxRate float64
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
// A negative taxRate falls back to the standard rate; zero means
// tax-free.
func NewOrderRepository(db *sql.DB, taxRate float64) repository.OrderRepository {
	return &orderRepository{db: db, taxRate: taxRate}
}

func (r *orderRepository) PlaceOrder(ctx context.Context, order *entity.Order, claimedTotal float64) ([]entity.StockDecrement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Row locks serialize concurrent placements against the same product,
	// so a second transaction sees the already-decremented stock.
	find := func(productID string) (*entity.Product, error) {
		var p entity.Product
		var sizePrices []byte
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, price, size_prices, stock, low_stock_threshold, active
			 FROM products WHERE id = $1 FOR UPDATE`, productID,
		).Scan(&p.ID, &p.Name, &p.Price, &sizePrices, &p.Stock, &p.LowStockThreshold, &p.Active)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
		}
		if len(sizePrices) > 0 {
			if err := json.Unmarshal(sizePrices, &p.SizePrices); err != nil {
				return nil, fmt.Errorf("failed to unmarshal size prices for %s: %w", productID, err)
			}
		}
		return &p, nil
	}

	decrements, err := entity.ResolvePlacement(order, find, claimedTotal, r.taxRate)
	if err != nil {
		return nil, err
	}

	// Guard against the improbable order-number collision before the
	// UNIQUE constraint turns it into an aborted transaction.
	for i := 0; i < 3; i++ {
		var taken bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)", order.OrderNumber,
		).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("failed to check order number: %w", err)
		}
		if !taken {
			break
		}
		order.OrderNumber = entity.NewOrderNumber()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, status, payment_method, payment_status,
			subtotal, shipping_cost, tax, total, tracking_number, admin_notes, notes,
			first_name, last_name, email, phone, street, city, county, country, postal_code,
			status_updated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		order.ID, order.OrderNumber, order.UserID, order.Status, order.PaymentMethod, order.PaymentStatus,
		order.Subtotal, order.ShippingCost, order.Tax, order.Total, order.TrackingNumber, order.AdminNotes, order.Notes,
		order.ShippingAddress.FirstName, order.ShippingAddress.LastName, order.ShippingAddress.Email,
		order.ShippingAddress.Phone, order.ShippingAddress.Street, order.ShippingAddress.City,
		order.ShippingAddress.County, order.ShippingAddress.Country, order.ShippingAddress.PostalCode,
		order.StatusUpdatedAt, order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, size, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.Size, item.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	for _, ev := range order.TrackingHistory {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_tracking_events (order_id, status, location, message, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			order.ID, ev.Status, ev.Location, ev.Message, ev.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert tracking event: %w", err)
		}
	}

	for _, d := range decrements {
		res, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET stock = stock - $1, in_stock = stock - $1 > 0, updated_at = NOW()
			 WHERE id = $2 AND stock >= $1`,
			d.Quantity, d.ProductID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update product stock: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, fmt.Errorf("insufficient stock for %s: %w", d.Name, entity.ErrInsufficientStock)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return decrements, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) FindByUser(ctx context.Context, userID string, limit, offset int) ([]entity.Order, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE user_id = $1", userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) Find(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, int, error) {
	where := []string{"TRUE"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.Search != "" {
		p := arg(filter.Search + "%")
		where = append(where, fmt.Sprintf("(order_number ILIKE %s OR email ILIKE %s OR first_name ILIKE %s OR last_name ILIKE %s)", p, p, p, p))
	}
	if !filter.StartDate.IsZero() {
		where = append(where, "created_at >= "+arg(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		where = append(where, "created_at <= "+arg(filter.EndDate))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE "+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s",
		orderColumns, cond, arg(filter.Limit), arg(filter.Offset))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *entity.Order, event entity.TrackingEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, status_updated_at = $2, tracking_number = $3, admin_notes = $4
		 WHERE id = $5`,
		order.Status, order.StatusUpdatedAt, order.TrackingNumber, order.AdminNotes, order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("order %s: %w", order.ID, entity.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_tracking_events (order_id, status, location, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		order.ID, event.Status, event.Location, event.Message, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tracking event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) collectOrders(ctx context.Context, rows *sql.Rows) ([]entity.Order, error) {
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadDetails(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadDetails(ctx context.Context, order *entity.Order) error {
	itemRows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, unit_price, quantity, size, line_total FROM order_items WHERE order_id = $1 ORDER BY id",
		order.ID)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item entity.OrderItem
		if err := itemRows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Size, &item.LineTotal); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	eventRows, err := r.db.QueryContext(ctx,
		"SELECT status, location, message, created_at FROM order_tracking_events WHERE order_id = $1 ORDER BY id",
		order.ID)
	if err != nil {
		return fmt.Errorf("failed to query tracking events: %w", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var ev entity.TrackingEvent
		if err := eventRows.Scan(&ev.Status, &ev.Location, &ev.Message, &ev.Timestamp); err != nil {
			return fmt.Errorf("failed to scan tracking event: %w", err)
		}
		order.TrackingHistory = append(order.TrackingHistory, ev)
	}
	return eventRows.Err()
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var o entity.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total, &o.TrackingNumber, &o.AdminNotes, &o.Notes,
		&o.ShippingAddress.FirstName, &o.ShippingAddress.LastName, &o.ShippingAddress.Email,
		&o.ShippingAddress.Phone, &o.ShippingAddress.Street, &o.ShippingAddress.City,
		&o.ShippingAddress.County, &o.ShippingAddress.Country, &o.ShippingAddress.PostalCode,
		&o.StatusUpdatedAt, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}
