// Package pricing computes order totals. All arithmetic runs on decimals
// so repeated float accumulation cannot drift; floats exist only at the
// JSON and SQL boundaries.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is the standard VAT rate applied to order subtotals.
const TaxRate = 0.16

// Tolerance is the maximum accepted divergence, in currency units,
// between a client-submitted total and the server-computed one.
const Tolerance = 1.0

// Line is a priced quantity within a cart.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Totals is the result of a pricing calculation, rounded to two decimal
// places.
type Totals struct {
	Subtotal     float64
	ShippingCost float64
	Tax          float64
	Total        float64
}

// Calculate prices the given lines with the standard tax rate. Shipping
// is a flat addend supplied by the region lookup.
func Calculate(lines []Line, shippingCost float64) Totals {
	return CalculateWithRate(lines, shippingCost, TaxRate)
}

// CalculateWithRate prices the given lines with an explicit tax rate.
// Pure and deterministic: subtotal = Σ(unitPrice × quantity),
// tax = subtotal × rate, total = subtotal + shipping + tax.
// A zero rate means tax-free; a negative rate means "use the standard
// rate".
func CalculateWithRate(lines []Line, shippingCost, taxRate float64) Totals {
	if taxRate < 0 {
		taxRate = TaxRate
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		line := decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	shipping := decimal.NewFromFloat(shippingCost)
	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Round(2)
	total := subtotal.Add(shipping).Add(tax).Round(2)

	return Totals{
		Subtotal:     subtotal.InexactFloat64(),
		ShippingCost: shipping.InexactFloat64(),
		Tax:          tax.InexactFloat64(),
		Total:        total.InexactFloat64(),
	}
}

// LineTotal returns unitPrice × quantity rounded to two decimal places.
func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// WithinTolerance reports whether |a − b| ≤ tol.
func WithinTolerance(a, b, tol float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(tol))
}
