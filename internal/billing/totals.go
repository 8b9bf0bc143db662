// Package billing holds the pure monetary arithmetic of an invoice.
package billing

import "github.com/samber/lo"

// DefaultTaxRate is the percentage applied when none is given
const DefaultTaxRate = 8.25

// Line is anything that contributes quantity * price to a subtotal
type Line interface {
	GetQuantity() float64
	GetPrice() float64
}

// Totals is the derived money triple of an invoice
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// CalculateTotals sums quantity*price over lines and applies taxRate
// (a percentage, 8.25 means 8.25%). No rounding is performed.
func CalculateTotals[T Line](lines []T, taxRate float64) Totals {
	subtotal := lo.SumBy(lines, func(l T) float64 {
		return l.GetQuantity() * l.GetPrice()
	})
	tax := subtotal * (taxRate / 100)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// CalculateTotalsDefault is CalculateTotals at DefaultTaxRate
func CalculateTotalsDefault[T Line](lines []T) Totals {
	return CalculateTotals(lines, DefaultTaxRate)
}
