package models

import (
	"slices"
	"time"

	"invoicer/internal/billing"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultDueDays is the distance between a fresh invoice's date and its due date
const DefaultDueDays = 15

// Invoice is the single editable draft. Line items, tax rate and the
// derived totals are only reachable through methods so the totals can
// never drift from what billing.CalculateTotals would produce.
type Invoice struct {
	ID string

	BusinessName    string
	BusinessEmail   string
	BusinessAddress string
	BusinessPhone   string

	ClientName    string
	ClientEmail   string
	ClientAddress string
	ClientPhone   string

	InvoiceNumber string
	InvoiceDate   string
	DueDate       string
	Notes         string

	CreatedAt time.Time

	lineItems []LineItem
	taxRate   float64
	totals    billing.Totals
}

// NewDefaultInvoice builds the blank draft shown when nothing is saved:
// one empty line item, a generated number, today's date and the default
// tax rate.
func NewDefaultInvoice(now time.Time) *Invoice {
	inv := &Invoice{
		ID:            uuid.NewString(),
		InvoiceNumber: GenerateInvoiceNumber(now),
		InvoiceDate:   FormatDate(now),
		DueDate:       FormatDate(now.AddDate(0, 0, DefaultDueDays)),
		CreatedAt:     now,
		lineItems:     []LineItem{NewLineItem()},
		taxRate:       billing.DefaultTaxRate,
	}
	inv.recalculate()
	return inv
}

// LineItems returns a copy of the items in display order
func (inv *Invoice) LineItems() []LineItem {
	return slices.Clone(inv.lineItems)
}

// LineItem looks up an item by id
func (inv *Invoice) LineItem(id string) (LineItem, bool) {
	return lo.Find(inv.lineItems, func(item LineItem) bool { return item.ID == id })
}

func (inv *Invoice) TaxRate() float64 { return inv.taxRate }

func (inv *Invoice) Totals() billing.Totals { return inv.totals }

func (inv *Invoice) Subtotal() float64 { return inv.totals.Subtotal }

func (inv *Invoice) Tax() float64 { return inv.totals.Tax }

func (inv *Invoice) Total() float64 { return inv.totals.Total }

// AddLineItem appends a blank item (quantity 1, price 0) and returns it
func (inv *Invoice) AddLineItem() LineItem {
	item := NewLineItem()
	inv.lineItems = append(inv.lineItems, item)
	inv.recalculate()
	return item
}

// UpdateLineItemField sets one field of the item with the given id.
// Descriptions are stored verbatim; quantity and price are coerced to a
// number with invalid input stored as 0. An unknown id is a no-op and
// reports false. Only an unknown field name is an error.
func (inv *Invoice) UpdateLineItemField(id string, field LineItemField, value any) (bool, error) {
	if !field.IsValid() {
		return false, ErrUnknownLineItemField(field)
	}

	idx := slices.IndexFunc(inv.lineItems, func(item LineItem) bool { return item.ID == id })
	if idx < 0 {
		return false, nil
	}

	item := &inv.lineItems[idx]
	switch field {
	case LineItemFieldDescription:
		item.Description = CoerceText(value)
	case LineItemFieldQuantity:
		item.Quantity = CoerceNumber(value)
	case LineItemFieldPrice:
		item.Price = CoerceNumber(value)
	}

	inv.recalculate()
	return true, nil
}

// RemoveLineItem deletes the item with the given id. The list may end up
// empty; that is only rejected when saving.
func (inv *Invoice) RemoveLineItem(id string) bool {
	before := len(inv.lineItems)
	inv.lineItems = slices.DeleteFunc(inv.lineItems, func(item LineItem) bool { return item.ID == id })
	removed := len(inv.lineItems) != before
	inv.recalculate()
	return removed
}

// SetTaxRate coerces value to a percentage, storing 0 for invalid input
func (inv *Invoice) SetTaxRate(value any) float64 {
	inv.taxRate = CoerceNumber(value)
	inv.recalculate()
	return inv.taxRate
}

// Clone returns a deep copy
func (inv *Invoice) Clone() *Invoice {
	c := *inv
	c.lineItems = slices.Clone(inv.lineItems)
	return &c
}

// Record converts the draft into its persisted wire form
func (inv *Invoice) Record() InvoiceRecord {
	taxRate := inv.taxRate
	return InvoiceRecord{
		ID:              inv.ID,
		BusinessName:    inv.BusinessName,
		BusinessEmail:   inv.BusinessEmail,
		BusinessAddress: inv.BusinessAddress,
		BusinessPhone:   inv.BusinessPhone,
		ClientName:      inv.ClientName,
		ClientEmail:     inv.ClientEmail,
		ClientAddress:   inv.ClientAddress,
		ClientPhone:     inv.ClientPhone,
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceDate:     inv.InvoiceDate,
		DueDate:         inv.DueDate,
		Notes:           inv.Notes,
		LineItems:       inv.LineItems(),
		TaxRate:         &taxRate,
		Subtotal:        inv.totals.Subtotal,
		Tax:             inv.totals.Tax,
		Total:           inv.totals.Total,
		CreatedAt:       Timestamp{Time: inv.CreatedAt},
	}
}

// MarshalJSON writes the wire form so derived totals are included
func (inv *Invoice) MarshalJSON() ([]byte, error) {
	return marshalRecord(inv.Record())
}

func (inv *Invoice) recalculate() {
	inv.totals = billing.CalculateTotals(inv.lineItems, inv.taxRate)
}
