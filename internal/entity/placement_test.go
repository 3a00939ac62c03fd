package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahawahub/kahawa/backend/internal/pricing"
)

func placementCatalog() map[string]*Product {
	return map[string]*Product{
		"p1": {
			ID: "p1", Name: "Kiambu AA Single Origin", Price: 650,
			SizePrices: map[string]float64{"250g": 500, "500g": 950},
			Stock:      10, LowStockThreshold: 5, Active: true,
		},
		"p2": {
			ID: "p2", Name: "French Press 1L", Price: 2400,
			Stock: 3, LowStockThreshold: 2, Active: true,
		},
		"p3": {
			ID: "p3", Name: "Retired Blend", Price: 400,
			Stock: 5, LowStockThreshold: 5, Active: false,
		},
	}
}

func catalogLookup(catalog map[string]*Product) ProductLookup {
	return func(id string) (*Product, error) {
		return catalog[id], nil
	}
}

func TestResolvePlacementSubstitutesCatalogPrices(t *testing.T) {
	order := &Order{
		ShippingCost: 200,
		Items: []OrderItem{
			// Client claims 999 for a size that really costs 500.
			{ProductID: "p1", Name: "whatever", UnitPrice: 999, Quantity: 2, Size: "250g"},
		},
	}

	// Claimed total consistent with the real catalog price.
	decrements, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 1360, pricing.TaxRate)
	require.NoError(t, err)

	assert.Equal(t, 500.0, order.Items[0].UnitPrice)
	assert.Equal(t, 1000.0, order.Items[0].LineTotal)
	assert.Equal(t, "Kiambu AA Single Origin", order.Items[0].Name)
	assert.Equal(t, 1000.0, order.Subtotal)
	assert.Equal(t, 160.0, order.Tax)
	assert.Equal(t, 1360.0, order.Total)

	require.Len(t, decrements, 1)
	assert.Equal(t, 10, decrements[0].StockBefore)
	assert.Equal(t, 8, decrements[0].StockAfter)
	assert.False(t, decrements[0].LowStock())
}

func TestResolvePlacementRejectsTamperedTotal(t *testing.T) {
	order := &Order{
		ShippingCost: 200,
		Items: []OrderItem{
			{ProductID: "p1", Name: "x", UnitPrice: 999, Quantity: 2, Size: "250g"},
		},
	}

	// Client total computed from the tampered unit price.
	_, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 2517.68, pricing.TaxRate)
	assert.ErrorIs(t, err, ErrPriceMismatch)
}

func TestResolvePlacementFlatPriceFallback(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{ProductID: "p2", Name: "x", UnitPrice: 2400, Quantity: 1, Size: "standard"},
		},
	}

	decrements, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 2784, pricing.TaxRate)
	require.NoError(t, err)

	assert.Equal(t, 2400.0, order.Items[0].UnitPrice)
	assert.True(t, decrements[0].LowStock()) // 3 - 1 = 2, at threshold
}

func TestResolvePlacementUnknownProduct(t *testing.T) {
	order := &Order{
		Items: []OrderItem{{ProductID: "nope", Name: "x", UnitPrice: 1, Quantity: 1, Size: "250g"}},
	}

	_, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 0, pricing.TaxRate)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "product not found")
}

func TestResolvePlacementInactiveProduct(t *testing.T) {
	order := &Order{
		Items: []OrderItem{{ProductID: "p3", Name: "x", UnitPrice: 400, Quantity: 1, Size: "250g"}},
	}

	_, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 464, pricing.TaxRate)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolvePlacementInsufficientStock(t *testing.T) {
	order := &Order{
		Items: []OrderItem{{ProductID: "p2", Name: "x", UnitPrice: 2400, Quantity: 4, Size: "standard"}},
	}

	_, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 11136, pricing.TaxRate)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorContains(t, err, "French Press 1L")
}

func TestResolvePlacementDuplicateLinesCannotOversell(t *testing.T) {
	// Two lines of the same product whose sum exceeds stock must be
	// rejected even though each line alone fits.
	order := &Order{
		Items: []OrderItem{
			{ProductID: "p2", Name: "x", UnitPrice: 2400, Quantity: 2, Size: "standard"},
			{ProductID: "p2", Name: "x", UnitPrice: 2400, Quantity: 2, Size: "standard"},
		},
	}

	_, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 11136, pricing.TaxRate)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorContains(t, err, "available: 1, requested: 2")
}

func TestResolvePlacementDuplicateLinesRunningStock(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{ProductID: "p1", Name: "x", UnitPrice: 500, Quantity: 2, Size: "250g"},
			{ProductID: "p1", Name: "x", UnitPrice: 950, Quantity: 3, Size: "500g"},
		},
	}

	decrements, err := ResolvePlacement(order, catalogLookup(placementCatalog()), 4466, pricing.TaxRate)
	require.NoError(t, err)

	// Each decrement reflects the stock already reserved by earlier lines.
	require.Len(t, decrements, 2)
	assert.Equal(t, 10, decrements[0].StockBefore)
	assert.Equal(t, 8, decrements[0].StockAfter)
	assert.Equal(t, 8, decrements[1].StockBefore)
	assert.Equal(t, 5, decrements[1].StockAfter)
	assert.True(t, decrements[1].LowStock(), "5 left is at the threshold")
}

func TestResolvePlacementTotalsMatchPricing(t *testing.T) {
	order := &Order{
		ShippingCost: 450,
		Items: []OrderItem{
			{ProductID: "p1", Name: "x", UnitPrice: 950, Quantity: 1, Size: "500g"},
			{ProductID: "p2", Name: "x", UnitPrice: 2400, Quantity: 1, Size: ""},
		},
	}

	want := pricing.Calculate([]pricing.Line{
		{UnitPrice: 950, Quantity: 1},
		{UnitPrice: 2400, Quantity: 1},
	}, 450)

	_, err := ResolvePlacement(order, catalogLookup(placementCatalog()), want.Total, pricing.TaxRate)
	require.NoError(t, err)
	assert.Equal(t, want.Subtotal, order.Subtotal)
	assert.Equal(t, want.Tax, order.Tax)
	assert.Equal(t, want.Total, order.Total)
}
