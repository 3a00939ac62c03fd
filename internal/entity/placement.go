package entity

import (
	"fmt"

	"github.com/kahawahub/kahawa/backend/internal/pricing"
)

// ProductLookup loads a product by id for exclusive use within the
// enclosing transaction.
type ProductLookup func(productID string) (*Product, error)

// ResolvePlacement performs the in-transaction half of order placement:
// it resolves each line of the order skeleton against the live catalog,
// substitutes authoritative prices for the client-submitted ones, verifies
// the client's claimed total, and fills in the computed totals and
// per-line snapshots. The returned decrements are the stock mutations the
// caller must apply before committing. Any failure aborts the whole
// placement; the order must not be persisted and no stock touched.
func ResolvePlacement(order *Order, find ProductLookup, claimedTotal, taxRate float64) ([]StockDecrement, error) {
	decrements := make([]StockDecrement, 0, len(order.Items))
	lines := make([]pricing.Line, 0, len(order.Items))

	// A cart may carry the same product on several lines (different
	// sizes), so stock checks run against the quantity already reserved
	// by earlier lines, not the stored count alone.
	reserved := make(map[string]int)

	for i := range order.Items {
		item := &order.Items[i]

		product, err := find(item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.Active {
			return nil, fmt.Errorf("product not found: %s: %w", item.ProductID, ErrValidation)
		}
		available := product.Stock - reserved[product.ID]
		if available < item.Quantity {
			return nil, fmt.Errorf("insufficient stock for %s (available: %d, requested: %d): %w",
				product.Name, available, item.Quantity, ErrInsufficientStock)
		}
		reserved[product.ID] += item.Quantity

		item.Name = product.Name
		item.UnitPrice = product.UnitPrice(item.Size)
		item.LineTotal = pricing.LineTotal(item.UnitPrice, item.Quantity)

		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
		decrements = append(decrements, StockDecrement{
			ProductID:   product.ID,
			Name:        product.Name,
			Quantity:    item.Quantity,
			StockBefore: available,
			StockAfter:  available - item.Quantity,
			Threshold:   product.LowStockThreshold,
		})
	}

	totals := pricing.CalculateWithRate(lines, order.ShippingCost, taxRate)
	if !pricing.WithinTolerance(totals.Total, claimedTotal, pricing.Tolerance) {
		return nil, fmt.Errorf("submitted total %.2f does not match computed total %.2f: %w",
			claimedTotal, totals.Total, ErrPriceMismatch)
	}

	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.Total = totals.Total
	return decrements, nil
}
