package orders

import (
	"math"

	"github.com/farmstand-app/orderflow/internal/monitoring"
)

// TaxRate applied to every order subtotal.
const TaxRate = 0.085

// AmountTolerance is the maximum acceptable deviation between a stored
// monetary value and its recomputed expectation, in currency units.
const AmountTolerance = 0.01

// floatSlack absorbs float64 noise so a deviation of exactly the tolerance
// does not flag.
const floatSlack = 1e-9

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func exceedsTolerance(expected, actual float64) bool {
	return math.Abs(expected-actual) > AmountTolerance+floatSlack
}

// ComputeTotals derives the order amounts from its line items.
func ComputeTotals(items []LineItem) (subtotal, tax, total float64) {
	for _, it := range items {
		subtotal += it.Subtotal
	}
	subtotal = roundCents(subtotal)
	tax = roundCents(subtotal * TaxRate)
	total = roundCents(subtotal + tax)
	return subtotal, tax, total
}

// ReconcileLines checks each line subtotal against unit price × quantity.
// Deviations beyond tolerance are auto-corrected to the expected value and
// recorded for monitoring; the order is never rejected for this alone.
func ReconcileLines(mon *monitoring.Monitor, orderID string, items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	for i := range out {
		expected := roundCents(out[i].UnitPrice * float64(out[i].Quantity))
		if !exceedsTolerance(expected, out[i].Subtotal) {
			continue
		}
		mon.RecordCalculationMismatch(monitoring.CalculationMismatch{
			Type:       "line_subtotal",
			Expected:   expected,
			Actual:     out[i].Subtotal,
			Difference: roundCents(out[i].Subtotal - expected),
			Tolerance:  AmountTolerance,
			OrderID:    orderID,
			ProductID:  out[i].ProductID,
		})
		out[i].Subtotal = expected
	}
	return out
}

// CheckOrderTotals reconciles a hydrated order's stored amounts against the
// recomputed values, correcting silently and recording each mismatch.
func CheckOrderTotals(mon *monitoring.Monitor, o *Order) {
	if o == nil {
		return
	}
	if len(o.Items) > 0 {
		var sum float64
		for _, it := range o.Items {
			sum += it.Subtotal
		}
		sum = roundCents(sum)
		if exceedsTolerance(sum, o.Subtotal) {
			mon.RecordCalculationMismatch(monitoring.CalculationMismatch{
				Type:       "order_subtotal",
				Expected:   sum,
				Actual:     o.Subtotal,
				Difference: roundCents(o.Subtotal - sum),
				Tolerance:  AmountTolerance,
				OrderID:    o.OrderID,
			})
			o.Subtotal = sum
		}
	}
	expectedTotal := roundCents(o.Subtotal + o.Tax)
	if exceedsTolerance(expectedTotal, o.Total) {
		mon.RecordCalculationMismatch(monitoring.CalculationMismatch{
			Type:       "order_total",
			Expected:   expectedTotal,
			Actual:     o.Total,
			Difference: roundCents(o.Total - expectedTotal),
			Tolerance:  AmountTolerance,
			OrderID:    o.OrderID,
		})
		o.Total = expectedTotal
	}
}

// lineQty is an aggregated reservation request for one product.
type lineQty struct {
	productID   string
	productName string
	qty         int
}

// aggregateLineQuantities merges duplicate product lines while preserving
// first-seen order.
func aggregateLineQuantities(items []LineItem) []lineQty {
	index := make(map[string]int, len(items))
	out := make([]lineQty, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].qty += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, lineQty{productID: it.ProductID, productName: it.ProductName, qty: it.Quantity})
	}
	return out
}
